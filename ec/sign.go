package ec

import (
	"io"

	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Returns the x coordinate of k G reduced modulo the order.
func (d *Domain) commitment(k bigint.Int) (bigint.Int, error) {
	x, _, err := d.Base.ScalarMult(k).Affine()
	if err != nil {
		return x, errs.Wrapf(err, errs.InternalError, "k G is the point at infinity")
	}
	return x.Mod(d.Order), nil
}

// Signs the encoded message msg.  Returns r||s.
//
//	ECDSA:  r = (k G).x, s = k^-1 (e + x r)
//	ECGDSA: r = (k G).x, s = x (k r - e)
func (sk *PrivateKey) SignRaw(rng io.Reader, msg []byte) ([]byte, error) {
	n := sk.domain.Order
	if len(msg) > n.ByteLen() {
		return nil, errs.Errorf(errs.InvalidArgument,
			"%s: message of %d bytes too long", sk.scheme, len(msg))
	}
	modN := bigint.NewReducer(n)
	e := modN.Reduce(bigint.FromBytes(msg))

	var r, s bigint.Int
	for r.IsZero() || s.IsZero() {
		k, err := bigint.RandomInteger(rng, bigint.One, n)
		if err != nil {
			return nil, err
		}
		if r, err = sk.domain.commitment(k); err != nil {
			return nil, err
		}
		switch sk.scheme {
		case ECDSA:
			s = modN.Multiply(bigint.InverseMod(k, n),
				modN.Reduce(modN.Multiply(sk.x, r).Add(e)))
		case ECGDSA:
			s = modN.Multiply(sk.x, modN.Reduce(modN.Multiply(k, r).Sub(e)))
		}
	}
	return bigint.EncodeFixedPair(r, s, n.ByteLen())
}

// Checks the signature r||s of the encoded message msg.
//
//	ECDSA:  (e s^-1 G + r s^-1 Q).x = r
//	ECGDSA: (e r^-1 G + s r^-1 Q).x = r
func (pk *PublicKey) VerifyRaw(msg, sig []byte) bool {
	n := pk.domain.Order
	size := n.ByteLen()
	if len(sig) != 2*size || len(msg) > size {
		return false
	}
	r := bigint.FromBytes(sig[:size])
	s := bigint.FromBytes(sig[size:])
	if r.IsZero() || r.Cmp(n) >= 0 || s.IsZero() || s.Cmp(n) >= 0 {
		return false
	}
	modN := bigint.NewReducer(n)
	e := modN.Reduce(bigint.FromBytes(msg))

	var u1, u2 bigint.Int
	switch pk.scheme {
	case ECDSA:
		w := bigint.InverseMod(s, n)
		u1, u2 = modN.Multiply(e, w), modN.Multiply(r, w)
	case ECGDSA:
		w := bigint.InverseMod(r, n)
		u1, u2 = modN.Multiply(e, w), modN.Multiply(s, w)
	default:
		return false
	}
	R := pk.domain.Base.ScalarMult(u1).Add(pk.point.ScalarMult(u2))
	x, _, err := R.Affine()
	if err != nil {
		return false
	}
	return x.Mod(n).Equal(r)
}
