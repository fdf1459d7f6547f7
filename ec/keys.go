package ec

import (
	"crypto/rand"
	"io"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/pubkey"
)

// Signature scheme an EC key is used with.
type Scheme int

const (
	ECDSA Scheme = iota

	// The public point of an ECGDSA key is G x^-1.
	ECGDSA
)

func (s Scheme) String() string {
	if s == ECGDSA {
		return "ECGDSA"
	}
	return "ECDSA"
}

// Returns whether the public point is derived from the inverse of the
// private scalar.
func (s Scheme) Inverse() bool {
	return s == ECGDSA
}

func init() {
	for _, scheme := range []Scheme{ECDSA, ECGDSA} {
		scheme := scheme
		pubkey.RegisterKeyType(scheme.String(),
			func(id asn1.AlgorithmIdentifier, bits []byte) (pubkey.PublicKey, error) {
				return loadPublicKey(scheme, id, bits)
			},
			func(id asn1.AlgorithmIdentifier, bits []byte) (pubkey.PrivateKey, error) {
				return loadPrivateKey(scheme, id, bits)
			})
	}
}

type PublicKey struct {
	scheme Scheme
	domain *Domain
	point  Point
}

type PrivateKey struct {
	PublicKey
	x bigint.Int
}

// Creates a public key.  The point must be on the curve and not be the
// point at infinity.
func NewPublicKey(scheme Scheme, domain *Domain, point Point) (*PublicKey, error) {
	if point.IsZero() || !point.OnCurve() || !point.Curve().Equal(domain.Curve) {
		return nil, errs.Errorf(errs.InvalidArgument, "Invalid %s public point", scheme)
	}
	return &PublicKey{scheme: scheme, domain: domain, point: point}, nil
}

// Generates a private key.
func GenerateKey(rng io.Reader, scheme Scheme, domain *Domain) (*PrivateKey, error) {
	return NewPrivateKey(rng, scheme, domain, bigint.Zero)
}

// Creates the private key with scalar x.  If x is zero, a random scalar
// in [1, n) is picked.
func NewPrivateKey(rng io.Reader, scheme Scheme, domain *Domain, x bigint.Int) (
	*PrivateKey, error) {
	if x.IsZero() {
		var err error
		x, err = bigint.RandomInteger(rng, bigint.One, domain.Order)
		if err != nil {
			return nil, err
		}
	} else if x.IsNeg() || x.Cmp(domain.Order) >= 0 {
		return nil, errs.Errorf(errs.InvalidArgument, "%s private scalar out of range", scheme)
	}

	k := x
	if scheme.Inverse() {
		k = bigint.InverseMod(x, domain.Order)
	}
	point := domain.Base.ScalarMult(k)
	if point.IsZero() || !point.OnCurve() {
		return nil, errs.Errorf(errs.InternalError,
			"%s public point not on the curve", scheme)
	}
	return &PrivateKey{
		PublicKey: PublicKey{scheme: scheme, domain: domain, point: point},
		x:         x,
	}, nil
}

func (pk *PublicKey) Algorithm() string   { return pk.scheme.String() }
func (pk *PublicKey) Scheme() Scheme      { return pk.scheme }
func (pk *PublicKey) Domain() *Domain     { return pk.domain }
func (pk *PublicKey) Point() Point        { return pk.point }
func (pk *PublicKey) MessageParts() int   { return 2 }
func (pk *PublicKey) MaxInputBits() int   { return pk.domain.Order.Bits() }
func (pk *PublicKey) PublicBits() []byte  { return pk.point.Encode(false) }
func (pk *PublicKey) MessagePartSize() int {
	return pk.domain.Order.ByteLen()
}

func (pk *PublicKey) AlgorithmIdentifier() asn1.AlgorithmIdentifier {
	params, err := pk.domain.EncodeParams()
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "Encoding curve"))
	}
	oid, err := asn1.OIDFromName(pk.scheme.String())
	if err != nil {
		panic(err)
	}
	return asn1.AlgorithmIdentifier{OID: oid, Parameters: params}
}

func (pk *PublicKey) CheckKey(rng io.Reader, strong bool) bool {
	if pk.point.IsZero() || !pk.point.OnCurve() {
		return false
	}
	if !strong {
		return true
	}
	return pk.point.ScalarMult(pk.domain.Order).IsZero()
}

func (sk *PrivateKey) X() bigint.Int             { return sk.x }
func (sk *PrivateKey) Public() pubkey.PublicKey { return &sk.PublicKey }

func (sk *PrivateKey) CheckKey(rng io.Reader, strong bool) bool {
	if sk.x.IsZero() || sk.x.IsNeg() || sk.x.Cmp(sk.domain.Order) >= 0 {
		return false
	}
	if !sk.PublicKey.CheckKey(rng, strong) {
		return false
	}
	if !strong {
		return true
	}
	k := sk.x
	if sk.scheme.Inverse() {
		k = bigint.InverseMod(k, sk.domain.Order)
	}
	return sk.domain.Base.ScalarMult(k).Equal(sk.point)
}

// Returns the ECPrivateKey structure of SEC1:
//
//	SEQUENCE { version 1, privateKey OCTET STRING, [1] publicKey BIT STRING }
func (sk *PrivateKey) PrivateBits() []byte {
	xb, err := sk.x.FillBytes(sk.domain.Order.ByteLen())
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "Encoding private scalar"))
	}
	e := asn1.NewEncoder()
	e.StartSequence()
	e.EncodeInt(1)
	e.EncodeOctetString(xb)
	e.StartCons(1, asn1.ContextSpecific)
	e.EncodeBitString(sk.point.Encode(false))
	e.EndCons()
	e.EndCons()
	ret, err := e.Bytes()
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "Encoding ECPrivateKey"))
	}
	return ret
}

func loadPublicKey(scheme Scheme, id asn1.AlgorithmIdentifier, bits []byte) (
	pubkey.PublicKey, error) {
	domain, err := DecodeParams(id.Parameters)
	if err != nil {
		return nil, err
	}
	point, err := domain.Curve.DecodePoint(bits)
	if err != nil {
		return nil, err
	}
	return NewPublicKey(scheme, domain, point)
}

func loadPrivateKey(scheme Scheme, id asn1.AlgorithmIdentifier, bits []byte) (
	pubkey.PrivateKey, error) {
	domain, err := DecodeParams(id.Parameters)
	if err != nil {
		return nil, err
	}
	d := asn1.NewDecoder(bits)
	seq, err := d.StartSequence()
	if err != nil {
		return nil, err
	}
	version, err := seq.DecodeInt()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, errs.Errorf(errs.DecodingError, "ECPrivateKey version %d", version)
	}
	xb, err := seq.DecodeOctetString()
	if err != nil {
		return nil, err
	}
	if _, err = seq.StartOptionalCons(0, asn1.ContextSpecific); err != nil {
		return nil, err
	}
	var encodedPoint []byte
	pubCons, err := seq.StartOptionalCons(1, asn1.ContextSpecific)
	if err != nil {
		return nil, err
	}
	if pubCons != nil {
		if encodedPoint, err = pubCons.DecodeBitString(); err != nil {
			return nil, err
		}
	}
	if _, err = seq.EndCons(); err != nil {
		return nil, err
	}
	if err = d.VerifyEnd(); err != nil {
		return nil, err
	}

	x := bigint.FromBytes(xb)
	if x.IsZero() {
		return nil, errs.Errorf(errs.DecodingError, "%s private scalar is zero", scheme)
	}
	key, err := NewPrivateKey(rand.Reader, scheme, domain, x)
	if err != nil {
		return nil, err
	}
	if encodedPoint != nil {
		point, err := domain.Curve.DecodePoint(encodedPoint)
		if err != nil {
			return nil, err
		}
		if !point.Equal(key.point) {
			return nil, errs.Errorf(errs.DecodingError,
				"%s public point does not match private scalar", scheme)
		}
	}
	return key, nil
}
