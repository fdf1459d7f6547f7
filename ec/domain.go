package ec

import (
	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Elliptic curve domain parameters: a curve and a base point of prime
// order.
type Domain struct {
	Name     string
	OID      asn1.OID
	Curve    *Curve
	Base     Point
	Order    bigint.Int
	Cofactor bigint.Int
}

// Entry in the registry of named curves
type domainEntry struct {
	name  string
	alias string
	p, b  string
	gx    string
	gy    string
	n     string
}

// Registry of named curves.  All have a = p - 3 and cofactor 1.
var domainRegistry = []domainEntry{
	{"secp224r1", "P-224",
		"0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF000000000000000000000001",
		"0xB4050A850C04B3ABF54132565044B0B7D7BFD8BA270B39432355FFB4",
		"0xB70E0CBD6BB4BF7F321390B94A03C1D356C21122343280D6115C1D21",
		"0xBD376388B5F723FB4C22DFE6CD4375A05A07476444D5819985007E34",
		"0xFFFFFFFFFFFFFFFFFFFFFFFFFFFF16A2E0B8F03E13DD29455C5C2A3D"},
	{"secp256r1", "P-256",
		"0xFFFFFFFF00000001000000000000000000000000FFFFFFFFFFFFFFFFFFFFFFFF",
		"0x5AC635D8AA3A93E7B3EBBD55769886BC651D06B0CC53B0F63BCE3C3E27D2604B",
		"0x6B17D1F2E12C4247F8BCE6E563A440F277037D812DEB33A0F4A13945D898C296",
		"0x4FE342E2FE1A7F9B8EE7EB4A7C0F9E162BCE33576B315ECECBB6406837BF51F5",
		"0xFFFFFFFF00000000FFFFFFFFFFFFFFFFBCE6FAADA7179E84F3B9CAC2FC632551"},
	{"secp384r1", "P-384",
		"0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFFFF0000000000000000FFFFFFFF",
		"0xB3312FA7E23EE7E4988E056BE3F82D19181D9C6EFE8141120314088F5013875AC656398D8A2ED19D2A85C8EDD3EC2AEF",
		"0xAA87CA22BE8B05378EB1C71EF320AD746E1D3B628BA79B9859F741E082542A385502F25DBF55296C3A545E3872760AB7",
		"0x3617DE4A96262C6F5D9E98BF9292DC29F8F41DBD289A147CE9DA3113B5F0B8C00A60B1CE1D7E819D7A431D7C90EA0E5F",
		"0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFC7634D81F4372DDF581A0DB248B0A77AECEC196ACCC52973"},
	{"secp521r1", "P-521",
		"0x1FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF",
		"0x51953EB9618E1C9A1F929A21A0B68540EEA2DA725B99B315F3B8B489918EF109E156193951EC7E937B1652C0BD3BB1BF073573DF883D2C34F1EF451FD46B503F00",
		"0xC6858E06B70404E9CD9E3ECB662395B4429C648139053FB521F828AF606B4D3DBAA14B5E77EFE75928FE1DC127A2FFA8DE3348B3C1856A429BF97E7E31C2E5BD66",
		"0x11839296A789A3BC0045C8A5FB42C7D1BD998F54449579B446817AFBD17273E662C97EE72995EF42640C550B9013FAD0761353C7086A272C24088BE94769FD16650",
		"0x1FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFA51868783BF2F966B7FCC0148F709A5D03BB5C9B8899C47AEBB6FB71E91386409"},
}

func (entry *domainEntry) domain() *Domain {
	p := bigint.MustFromString(entry.p)
	curve, err := NewCurve(p, p.Sub(bigint.New(3)), bigint.MustFromString(entry.b))
	if err != nil {
		panic(err)
	}
	base, err := curve.NewPoint(bigint.MustFromString(entry.gx), bigint.MustFromString(entry.gy))
	if err != nil {
		panic(err)
	}
	oid, err := asn1.OIDFromName(entry.name)
	if err != nil {
		panic(err)
	}
	return &Domain{
		Name:     entry.name,
		OID:      oid,
		Curve:    curve,
		Base:     base,
		Order:    bigint.MustFromString(entry.n),
		Cofactor: bigint.One,
	}
}

// Returns the named domain, eg. "secp256r1" or "P-256".
func DomainByName(name string) (*Domain, error) {
	for i := range domainRegistry {
		if domainRegistry[i].name == name || domainRegistry[i].alias == name {
			return domainRegistry[i].domain(), nil
		}
	}
	return nil, errs.Errorf(errs.NotFound, "Unknown curve %s", name)
}

// Returns the domain with the given OID.
func DomainByOID(oid asn1.OID) (*Domain, error) {
	name, ok := asn1.NameOfOID(oid)
	if !ok {
		return nil, errs.Errorf(errs.NotFound, "Unknown curve %s", oid)
	}
	return DomainByName(name)
}

// Lists the names of the named domains.
func ListNames() []string {
	ret := make([]string, len(domainRegistry))
	for i, entry := range domainRegistry {
		ret[i] = entry.name
	}
	return ret
}

func (d *Domain) Equal(other *Domain) bool {
	return d.Curve.Equal(other.Curve) && d.Base.Equal(other.Base) &&
		d.Order.Equal(other.Order) && d.Cofactor.Equal(other.Cofactor)
}

// Returns the encoded namedCurve parameters.
func (d *Domain) EncodeParams() ([]byte, error) {
	e := asn1.NewEncoder()
	e.EncodeOID(d.OID)
	return e.Bytes()
}

// Decodes namedCurve parameters.  Explicit parameters are not supported.
func DecodeParams(der []byte) (*Domain, error) {
	d := asn1.NewDecoder(der)
	oid, err := d.DecodeOID()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "EC parameters must name a curve")
	}
	if err = d.VerifyEnd(); err != nil {
		return nil, err
	}
	return DomainByOID(oid)
}
