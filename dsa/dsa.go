package dsa

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/internal/logging"
	"github.com/bwesterb/go-cryptocore/pubkey"
)

const Algorithm = "DSA"

func init() {
	pubkey.RegisterKeyType(Algorithm, loadPublicKey, loadPrivateKey)
}

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}

// DSA public key y = g^x mod p.
type PublicKey struct {
	group *Group
	y     bigint.Int
}

// DSA private key.
type PrivateKey struct {
	PublicKey
	x bigint.Int

	mux      sync.Mutex // guards blind and blindInv
	blind    bigint.Int
	blindInv bigint.Int
}

// Creates a public key from the group and public value y.
func NewPublicKey(group *Group, y bigint.Int) (*PublicKey, error) {
	if group == nil || y.Cmp(bigint.Two) < 0 || y.Cmp(group.P) >= 0 {
		return nil, errs.Errorf(errs.InvalidArgument, "DSA public value out of range")
	}
	return &PublicKey{group: group, y: y}, nil
}

// Generates a new private key in the group.
func GenerateKey(rng io.Reader, group *Group) (*PrivateKey, error) {
	return NewPrivateKey(rng, group, bigint.Zero)
}

// Creates the private key with exponent x.  If x is zero, a random
// exponent in [2, q) is picked.
func NewPrivateKey(rng io.Reader, group *Group, x bigint.Int) (*PrivateKey, error) {
	if group == nil || !group.Q.IsPositive() {
		return nil, errs.Errorf(errs.InvalidArgument, "DSA requires a group with known order")
	}
	generated := x.IsZero()
	if generated {
		var err error
		x, err = bigint.RandomInteger(rng, bigint.Two, group.Q)
		if err != nil {
			return nil, err
		}
	}
	key := &PrivateKey{
		PublicKey: PublicKey{group: group, y: bigint.PowerMod(group.G, x, group.P)},
		x:         x,
	}
	if !key.CheckKey(rng, false) {
		return nil, errs.Errorf(errs.InvalidArgument, "Invalid DSA private key")
	}

	blind, err := bigint.RandomInteger(rng, bigint.One, group.Q)
	if err != nil {
		return nil, err
	}
	key.blind = blind
	key.blindInv = bigint.InverseMod(blind, group.Q)
	if key.blindInv.IsZero() {
		return nil, errs.Errorf(errs.InternalError, "DSA blinding factor not invertible")
	}
	return key, nil
}

func (pk *PublicKey) Algorithm() string  { return Algorithm }
func (pk *PublicKey) Group() *Group      { return pk.group }
func (pk *PublicKey) Y() bigint.Int      { return pk.y }
func (pk *PublicKey) MessageParts() int  { return 2 }
func (pk *PublicKey) MaxInputBits() int  { return pk.group.Q.Bits() }
func (pk *PublicKey) MessagePartSize() int {
	return pk.group.Q.ByteLen()
}

func (pk *PublicKey) AlgorithmIdentifier() asn1.AlgorithmIdentifier {
	params, err := pk.group.Encode()
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "Encoding DSA group"))
	}
	oid, err := asn1.OIDFromName(Algorithm)
	if err != nil {
		panic(err)
	}
	return asn1.AlgorithmIdentifier{OID: oid, Parameters: params}
}

// Returns the DER INTEGER y.
func (pk *PublicKey) PublicBits() []byte {
	return encodeInt(pk.y)
}

func encodeInt(x bigint.Int) []byte {
	e := asn1.NewEncoder()
	e.EncodeBigInt(x)
	ret, err := e.Bytes()
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "Encoding INTEGER"))
	}
	return ret
}

func decodeInt(der []byte) (bigint.Int, error) {
	d := asn1.NewDecoder(der)
	x, err := d.DecodeBigInt()
	if err != nil {
		return x, err
	}
	return x, d.VerifyEnd()
}

func (pk *PublicKey) CheckKey(rng io.Reader, strong bool) bool {
	if pk.y.Cmp(bigint.Two) < 0 || pk.y.Cmp(pk.group.P) >= 0 {
		return false
	}
	return pk.group.Verify(rng, strong)
}

// Checks the signature r||s on the encoded message msg.
func (pk *PublicKey) VerifyRaw(msg, sig []byte) bool {
	q := pk.group.Q
	size := q.ByteLen()
	if len(sig) != 2*size || len(msg) > size {
		return false
	}
	r := bigint.FromBytes(sig[:size])
	s := bigint.FromBytes(sig[size:])
	if r.IsZero() || r.Cmp(q) >= 0 || s.IsZero() || s.Cmp(q) >= 0 {
		return false
	}
	i := bigint.FromBytes(msg)

	modQ := bigint.NewReducer(q)
	modP := bigint.NewReducer(pk.group.P)
	w := bigint.InverseMod(s, q)
	u1 := modQ.Multiply(w, i)
	u2 := modQ.Multiply(w, r)
	v := modP.Multiply(modP.PowerMod(pk.group.G, u1), modP.PowerMod(pk.y, u2))
	return modQ.Reduce(v).Equal(r)
}

func (sk *PrivateKey) X() bigint.Int             { return sk.x }
func (sk *PrivateKey) Public() pubkey.PublicKey { return &sk.PublicKey }

// Returns the DER INTEGER x.
func (sk *PrivateKey) PrivateBits() []byte {
	return encodeInt(sk.x)
}

func (sk *PrivateKey) CheckKey(rng io.Reader, strong bool) bool {
	p := sk.group.P
	if sk.x.Cmp(bigint.Two) < 0 || sk.x.Cmp(sk.group.Q) >= 0 {
		return false
	}
	if !sk.PublicKey.CheckKey(rng, strong) {
		return false
	}
	if !strong {
		return true
	}
	if !bigint.PowerMod(sk.group.G, sk.x, p).Equal(sk.y) {
		return false
	}

	// Signature consistency.
	s, err := pubkey.NewSigner(sk, "EMSA1(SHA-1)", pubkey.IEEE1363)
	if err != nil {
		return false
	}
	msg := []byte("DSA key consistency check")
	sig, err := s.SignMessage(rng, msg)
	if err != nil {
		return false
	}
	v, err := pubkey.NewVerifier(&sk.PublicKey, "EMSA1(SHA-1)", pubkey.IEEE1363)
	if err != nil {
		return false
	}
	return v.VerifyMessage(msg, sig)
}

// Returns the current blinding pair and squares it for the next
// signature.
func (sk *PrivateKey) nextBlind(modQ bigint.Reducer) (bigint.Int, bigint.Int) {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	b, bInv := sk.blind, sk.blindInv
	sk.blind = modQ.Square(b)
	sk.blindInv = modQ.Square(bInv)
	return b, bInv
}

// Signs the encoded message msg.  Returns r||s.
func (sk *PrivateKey) SignRaw(rng io.Reader, msg []byte) ([]byte, error) {
	q := sk.group.Q
	if len(msg) > q.ByteLen() {
		return nil, errs.Errorf(errs.InvalidArgument,
			"DSA: message of %d bytes too long", len(msg))
	}
	modQ := bigint.NewReducer(q)
	i := bigint.FromBytes(msg)

	k, err := bigint.RandomInteger(rng, bigint.One, q)
	if err != nil {
		return nil, err
	}
	r := modQ.Reduce(bigint.PowerMod(sk.group.G, k, sk.group.P))

	// s = k^-1 (x r + i), computed as k^-1 (b x r + b i) b^-1.
	b, bInv := sk.nextBlind(modQ)
	kInv := bigint.InverseMod(k, q)
	t := modQ.Reduce(modQ.Multiply(b, modQ.Multiply(sk.x, r)).Add(modQ.Multiply(b, i)))
	s := modQ.Multiply(modQ.Multiply(kInv, t), bInv)

	if r.IsZero() || s.IsZero() {
		return nil, errs.Errorf(errs.InternalError, "DSA signature has r or s equal to zero")
	}
	return bigint.EncodeFixedPair(r, s, q.ByteLen())
}

func decodeParams(id asn1.AlgorithmIdentifier) (*Group, error) {
	if id.Parameters == nil {
		return nil, errs.Errorf(errs.DecodingError, "DSA key without group")
	}
	return DecodeGroup(id.Parameters)
}

func loadPublicKey(id asn1.AlgorithmIdentifier, bits []byte) (pubkey.PublicKey, error) {
	group, err := decodeParams(id)
	if err != nil {
		return nil, err
	}
	y, err := decodeInt(bits)
	if err != nil {
		return nil, err
	}
	return NewPublicKey(group, y)
}

func loadPrivateKey(id asn1.AlgorithmIdentifier, bits []byte) (pubkey.PrivateKey, error) {
	group, err := decodeParams(id)
	if err != nil {
		return nil, err
	}
	x, err := decodeInt(bits)
	if err != nil {
		return nil, err
	}
	if x.IsZero() {
		return nil, errs.Errorf(errs.DecodingError, "DSA private exponent is zero")
	}
	return NewPrivateKey(rand.Reader, group, x)
}
