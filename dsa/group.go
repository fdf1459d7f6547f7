// Package dsa implements discrete logarithm groups and the Digital
// Signature Algorithm.
package dsa

import (
	"io"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// A prime order subgroup of the multiplicative group modulo P.
type Group struct {
	P bigint.Int // modulus
	Q bigint.Int // order of G
	G bigint.Int // generator
}

// Entry in the registry of named groups
type groupEntry struct {
	name    string
	p, q, g string
}

// Registry of named groups
var groupRegistry = []groupEntry{
	{"dsa/cryptocore-1024",
		"0xA57578E42301EEC223B7413E74972A352E31F733E9F944A57F2C221DB383615742F5992EDBD8022B80EC7D865E13EA2F0E00387C5F370E2DCFE6BB537B7139739241AB57C55A8E442ED5F0CBB2F35F0974571973381B6032F12BFDC11B9154E5828D494F89E03B4958787E448A414FAFB99B2789891BFE4F756C755325FFA6E3",
		"0xDA1F234344196EC63449B1D5C03C5BAA4D2A4B61",
		"0x6AC03E37A99396BEA7649000AA04D18E91452EA6534941918039EC99CC8D2A157CA9A58C2343B25E678A6065EF7623FB9F1AC3ED085CC749E4BA36586335E1CD4DC32E3635FB2ED9DCF985DB380B855FFFAB2BD4C1231FAEB159029C5EF5878EE114AB95D5A4C7C17BDE00147B2666F95A32B8854E0ABC97BE5385041949D21F"},
	{"dsa/cryptocore-2048",
		"0x8858B40062A5C0AE98E1FE26A1CE04C4A968238C735CCF73DF2E7AD15345442483BFC8E154F2D3D630D50D61F8214FC501238D46527B9A8C37056DA0B418CE7C8D16179DFA0ADDD7C91454C7AFACAADB17EC181330B9FE0084DADFC8D042435DF7D98A14AE6A849D89A203A5DC0FE417BA187FC20875B54BE375D388F612674BDD99BA334E56C6B3718AA9907C167310A69308885525F4BD3787FDBE3A11FA419AA1182C73D8FEE15BCDBC5F9E2A28450F8D6AE8B1E4C118D295303EF7233A66514BB14375CC4D32B8EF4179ADB33E95FB6E72B9A3B35B0E98FBD189947B457BD56C6214B2BA42ADE40994817C2EC714090398955FF7ADC4A9E6C2D0C61B8F2B",
		"0xBB516EFE5F1D1AC3040EB973B8126E8A94CD5DC62A4C4EC098738385BF4EFB8B",
		"0x45F0634E645654D26C511F0975CB19EFBC87CC870FE3E9A3728BAD712FB4E9492DB30648756B49842E84B8120003739F65A433F46F91FBC0EF14C4FD8345408B83CD6E20A2DC9B3123427FD0746D35925765C9ACE809AD119B722D55409D40FFFEBAD66D8E922E4B558AEF01BC988B7DAFC367DBF84BEDB214E4D651FC6F27300A4DE9667A23CAAE4DCFF0B11CCE531C015C38596B1914A368354D8585C45D9D795B6FF816FE004E1CD2CE2886F62D0DD08D5C28B7676F1A1B718F92AAFD40A0587886BDF00BEB09B05938B43F6EC204BC320BE132C42C4D53FB0C002A8B379326D796090F5ACD3F093DAA8F5F2D8D2783889AF663CF230BEC884319240EF3CF"},
}

// Returns the named group.
func NamedGroup(name string) (*Group, error) {
	for _, entry := range groupRegistry {
		if entry.name == name {
			return &Group{
				P: bigint.MustFromString(entry.p),
				Q: bigint.MustFromString(entry.q),
				G: bigint.MustFromString(entry.g),
			}, nil
		}
	}
	return nil, errs.Errorf(errs.NotFound, "Unknown DL group %s", name)
}

// Lists the names of the named groups.
func ListNames() []string {
	ret := make([]string, len(groupRegistry))
	for i, entry := range groupRegistry {
		ret[i] = entry.name
	}
	return ret
}

// Generates a group with a pbits bit modulus and a qbits bit subgroup
// order.
func GenerateGroup(rng io.Reader, pbits, qbits int) (*Group, error) {
	if qbits < 16 || pbits < qbits+16 {
		return nil, errs.Errorf(errs.InvalidArgument,
			"Cannot generate a DL group with %d/%d bits", pbits, qbits)
	}
	q, err := bigint.RandomPrime(rng, qbits)
	if err != nil {
		return nil, err
	}

	// Search p = 1 mod 2q.
	q2 := q.Lsh(1)
	var p bigint.Int
	for {
		x, err := bigint.RandomBits(rng, pbits, true)
		if err != nil {
			return nil, err
		}
		p = x.Sub(x.Mod(q2)).Add(bigint.One)
		if p.Bits() != pbits {
			continue
		}
		ok, err := bigint.IsProbablePrime(rng, p, 40)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
	}

	e := p.Sub(bigint.One).Div(q)
	g := bigint.One
	for h := int64(2); g.Equal(bigint.One); h++ {
		g = bigint.PowerMod(bigint.New(h), e, p)
	}
	log("Generated %d/%d bit DL group", pbits, qbits)
	return &Group{P: p, Q: q, G: g}, nil
}

// Checks the structure of the group.  With strong set, P and Q are tested
// for primality and G for its order as well.
func (g *Group) Verify(rng io.Reader, strong bool) bool {
	if g.G.Cmp(bigint.Two) < 0 || g.P.Cmp(bigint.New(3)) < 0 || g.Q.IsNeg() {
		return false
	}
	if g.G.Cmp(g.P) >= 0 {
		return false
	}
	if !g.Q.IsZero() && !g.P.Sub(bigint.One).Mod(g.Q).IsZero() {
		return false
	}
	if !strong {
		return true
	}
	if ok, err := bigint.IsProbablePrime(rng, g.P, 40); err != nil || !ok {
		return false
	}
	if !g.Q.IsZero() {
		if ok, err := bigint.IsProbablePrime(rng, g.Q, 40); err != nil || !ok {
			return false
		}
		if !bigint.PowerMod(g.G, g.Q, g.P).Equal(bigint.One) {
			return false
		}
	}
	return true
}

func (g *Group) Equal(other *Group) bool {
	return g.P.Equal(other.P) && g.Q.Equal(other.Q) && g.G.Equal(other.G)
}

// Encodes the group as Dss-Parms: SEQUENCE { p, q, g }.
func (g *Group) EncodeInto(e *asn1.Encoder) {
	e.StartSequence()
	e.EncodeBigInt(g.P)
	e.EncodeBigInt(g.Q)
	e.EncodeBigInt(g.G)
	e.EndCons()
}

func (g *Group) DecodeFrom(d *asn1.Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "Dss-Parms")
	}
	for _, dst := range []*bigint.Int{&g.P, &g.Q, &g.G} {
		if *dst, err = seq.DecodeBigInt(); err != nil {
			return errs.Wrapf(err, errs.DecodingError, "Dss-Parms")
		}
	}
	if _, err = seq.EndCons(); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "Dss-Parms")
	}
	return nil
}

// Returns the DER encoding of the group.
func (g *Group) Encode() ([]byte, error) {
	return asn1.Marshal(g)
}

// Decodes a group encoded with Encode.
func DecodeGroup(der []byte) (*Group, error) {
	var g Group
	if err := asn1.Unmarshal(der, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
