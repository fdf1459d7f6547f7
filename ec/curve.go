// Package ec implements elliptic curves over prime fields and the ECDSA
// and ECGDSA signature schemes.
package ec

import (
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// The curve y^2 = x^3 + ax + b over GF(p).
type Curve struct {
	p, a, b bigint.Int
	red     bigint.Reducer
	size    int // length of a field element in bytes
}

// Creates the curve y^2 = x^3 + ax + b over GF(p).  p must be an odd
// prime; this is not checked.
func NewCurve(p, a, b bigint.Int) (*Curve, error) {
	if p.Cmp(bigint.New(3)) < 0 || p.IsEven() {
		return nil, errs.Errorf(errs.InvalidArgument, "Curve modulus must be an odd prime")
	}
	if a.IsNeg() || a.Cmp(p) >= 0 || b.IsNeg() || b.Cmp(p) >= 0 {
		return nil, errs.Errorf(errs.InvalidArgument, "Curve coefficients out of range")
	}
	return &Curve{p: p, a: a, b: b, red: bigint.NewReducer(p), size: p.ByteLen()}, nil
}

func (c *Curve) P() bigint.Int { return c.p }
func (c *Curve) A() bigint.Int { return c.a }
func (c *Curve) B() bigint.Int { return c.b }

func (c *Curve) Equal(other *Curve) bool {
	return c.p.Equal(other.p) && c.a.Equal(other.a) && c.b.Equal(other.b)
}

// Field arithmetic.  Operands are in [0, p).

func (c *Curve) mul(x, y bigint.Int) bigint.Int { return c.red.Multiply(x, y) }
func (c *Curve) sqr(x bigint.Int) bigint.Int    { return c.red.Square(x) }

func (c *Curve) add(x, y bigint.Int) bigint.Int {
	ret := x.Add(y)
	if ret.Cmp(c.p) >= 0 {
		ret = ret.Sub(c.p)
	}
	return ret
}

func (c *Curve) sub(x, y bigint.Int) bigint.Int {
	ret := x.Sub(y)
	if ret.IsNeg() {
		ret = ret.Add(c.p)
	}
	return ret
}

func (c *Curve) mulWord(x bigint.Int, w bigint.Word) bigint.Int {
	return c.red.Reduce(x.MulWord(w))
}

// Returns x^3 + ax + b.
func (c *Curve) rhs(x bigint.Int) bigint.Int {
	return c.add(c.add(c.mul(c.sqr(x), x), c.mul(c.a, x)), c.b)
}

// Returns the point at infinity.
func (c *Curve) Infinity() Point {
	return Point{curve: c, x: bigint.One, y: bigint.One}
}

// Returns the point with affine coordinates (x, y).  Fails if it is not
// on the curve.
func (c *Curve) NewPoint(x, y bigint.Int) (Point, error) {
	if x.IsNeg() || x.Cmp(c.p) >= 0 || y.IsNeg() || y.Cmp(c.p) >= 0 {
		return Point{}, errs.Errorf(errs.InvalidArgument, "Point coordinates out of range")
	}
	pt := Point{curve: c, x: x, y: y, z: bigint.One}
	if !pt.OnCurve() {
		return Point{}, errs.Errorf(errs.InvalidArgument, "Point is not on the curve")
	}
	return pt, nil
}

// Decodes a point in SEC1 format: compressed, uncompressed or the single
// zero byte for infinity.
func (c *Curve) DecodePoint(data []byte) (Point, error) {
	if len(data) == 1 && data[0] == 0 {
		return c.Infinity(), nil
	}
	if len(data) == 0 {
		return Point{}, errs.Errorf(errs.DecodingError, "Empty point encoding")
	}
	switch data[0] {
	case 0x04:
		if len(data) != 1+2*c.size {
			return Point{}, errs.Errorf(errs.DecodingError,
				"Uncompressed point of %d bytes", len(data))
		}
		pt, err := c.NewPoint(bigint.FromBytes(data[1:1+c.size]),
			bigint.FromBytes(data[1+c.size:]))
		if err != nil {
			return Point{}, errs.Wrapf(err, errs.DecodingError, "Decoding point")
		}
		return pt, nil
	case 0x02, 0x03:
		if len(data) != 1+c.size {
			return Point{}, errs.Errorf(errs.DecodingError,
				"Compressed point of %d bytes", len(data))
		}
		x := bigint.FromBytes(data[1:])
		if x.Cmp(c.p) >= 0 {
			return Point{}, errs.Errorf(errs.DecodingError, "Point coordinate out of range")
		}
		y, ok := bigint.SqrtModPrime(c.rhs(x), c.p)
		if !ok {
			return Point{}, errs.Errorf(errs.DecodingError, "Point is not on the curve")
		}
		if y.IsOdd() != (data[0] == 0x03) {
			y = c.p.Sub(y)
		}
		return Point{curve: c, x: x, y: y, z: bigint.One}, nil
	}
	return Point{}, errs.Errorf(errs.DecodingError, "Unknown point format %#02x", data[0])
}
