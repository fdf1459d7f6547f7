package ec

import (
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// A point on a Curve in Jacobian coordinates: (x/z^2, y/z^3).  The
// point at infinity has z = 0.
type Point struct {
	curve   *Curve
	x, y, z bigint.Int
}

func (pt Point) Curve() *Curve { return pt.curve }

// Returns whether this is the point at infinity.
func (pt Point) IsZero() bool {
	return pt.z.IsZero()
}

func (pt Point) Negate() Point {
	if pt.IsZero() {
		return pt
	}
	return Point{curve: pt.curve, x: pt.x, y: pt.curve.sub(bigint.Zero, pt.y), z: pt.z}
}

// Returns 2 pt.
func (pt Point) Double() Point {
	c := pt.curve
	if pt.IsZero() || pt.y.IsZero() {
		return c.Infinity()
	}
	y2 := c.sqr(pt.y)
	s := c.mulWord(c.mul(pt.x, y2), 4)
	z2 := c.sqr(pt.z)
	m := c.add(c.mulWord(c.sqr(pt.x), 3), c.mul(c.a, c.sqr(z2)))
	x := c.sub(c.sqr(m), c.add(s, s))
	y := c.sub(c.mul(m, c.sub(s, x)), c.mulWord(c.sqr(y2), 8))
	z := c.mulWord(c.mul(pt.y, pt.z), 2)
	return Point{curve: c, x: x, y: y, z: z}
}

// Returns pt + other.
func (pt Point) Add(other Point) Point {
	c := pt.curve
	if pt.IsZero() {
		return other
	}
	if other.IsZero() {
		return pt
	}
	z1z1 := c.sqr(pt.z)
	z2z2 := c.sqr(other.z)
	u1 := c.mul(pt.x, z2z2)
	u2 := c.mul(other.x, z1z1)
	s1 := c.mul(pt.y, c.mul(other.z, z2z2))
	s2 := c.mul(other.y, c.mul(pt.z, z1z1))

	h := c.sub(u2, u1)
	r := c.sub(s2, s1)
	if h.IsZero() {
		if r.IsZero() {
			return pt.Double()
		}
		return c.Infinity()
	}
	hh := c.sqr(h)
	hhh := c.mul(hh, h)
	v := c.mul(u1, hh)
	x := c.sub(c.sub(c.sqr(r), hhh), c.add(v, v))
	y := c.sub(c.mul(r, c.sub(v, x)), c.mul(s1, hhh))
	z := c.mul(h, c.mul(pt.z, other.z))
	return Point{curve: c, x: x, y: y, z: z}
}

const scalarWindow = 4

// Returns k pt for k >= 0.
func (pt Point) ScalarMult(k bigint.Int) Point {
	if k.IsNeg() {
		panic(errs.Errorf(errs.InvalidArgument, "ec: negative scalar"))
	}
	var table [1 << scalarWindow]Point
	table[0] = pt.curve.Infinity()
	for i := 1; i < len(table); i++ {
		table[i] = table[i-1].Add(pt)
	}

	ret := pt.curve.Infinity()
	windows := (k.Bits() + scalarWindow - 1) / scalarWindow
	for w := windows - 1; w >= 0; w-- {
		for i := 0; i < scalarWindow; i++ {
			ret = ret.Double()
		}
		var idx int
		for i := scalarWindow - 1; i >= 0; i-- {
			idx <<= 1
			if k.Bit(w*scalarWindow + i) {
				idx |= 1
			}
		}
		ret = ret.Add(table[idx])
	}
	return ret
}

// Returns the affine coordinates.  Fails for the point at infinity.
func (pt Point) Affine() (x, y bigint.Int, err error) {
	if pt.IsZero() {
		return x, y, errs.Errorf(errs.InvalidState,
			"Cannot convert the point at infinity to affine coordinates")
	}
	c := pt.curve
	zInv := bigint.InverseMod(pt.z, c.p)
	zInv2 := c.sqr(zInv)
	return c.mul(pt.x, zInv2), c.mul(pt.y, c.mul(zInv2, zInv)), nil
}

// Checks y^2 = x^3 + a x z^4 + b z^6.
func (pt Point) OnCurve() bool {
	if pt.curve == nil {
		return false
	}
	if pt.IsZero() {
		return true
	}
	c := pt.curve
	z2 := c.sqr(pt.z)
	z4 := c.sqr(z2)
	z6 := c.mul(z4, z2)
	rhs := c.add(c.add(c.mul(c.sqr(pt.x), pt.x), c.mul(c.a, c.mul(pt.x, z4))),
		c.mul(c.b, z6))
	return c.sqr(pt.y).Equal(rhs)
}

func (pt Point) Equal(other Point) bool {
	if pt.IsZero() || other.IsZero() {
		return pt.IsZero() == other.IsZero()
	}
	c := pt.curve
	z1z1 := c.sqr(pt.z)
	z2z2 := c.sqr(other.z)
	if !c.mul(pt.x, z2z2).Equal(c.mul(other.x, z1z1)) {
		return false
	}
	return c.mul(pt.y, c.mul(z2z2, other.z)).Equal(c.mul(other.y, c.mul(z1z1, pt.z)))
}

// Encodes the point in SEC1 format.
func (pt Point) Encode(compressed bool) []byte {
	if pt.IsZero() {
		return []byte{0}
	}
	x, y, _ := pt.Affine()
	size := pt.curve.size
	xb, _ := x.FillBytes(size)
	if compressed {
		prefix := byte(0x02)
		if y.IsOdd() {
			prefix = 0x03
		}
		return append([]byte{prefix}, xb...)
	}
	yb, _ := y.FillBytes(size)
	ret := append([]byte{0x04}, xb...)
	return append(ret, yb...)
}
