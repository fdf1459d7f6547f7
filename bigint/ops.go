package bigint

import (
	"math/bits"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Adds the magnitude y with sign yNeg to x.
func add2(x Int, y []Word, yNeg bool) Int {
	xw, yw := sigWords(x.mag), sigWords(y)
	xm, ym := x.mag[:xw], y[:yw]
	size := xw
	if yw > size {
		size = yw
	}
	z := make([]Word, size+1)

	if x.neg == yNeg {
		addWords(z, xm, ym)
		return makeInt(z, x.neg)
	}

	switch cmpWords(xm, ym) {
	case -1:
		subWords(z, ym, xm)
		return makeInt(z, yNeg)
	case 1:
		subWords(z, xm, ym)
		return makeInt(z, x.neg)
	}
	return Int{}
}

func (x Int) Add(y Int) Int {
	return add2(x, y.mag, y.neg)
}

func (x Int) Sub(y Int) Int {
	return add2(x, y.mag, !y.neg && !y.IsZero())
}

func (x Int) Mul(y Int) Int {
	xw, yw := x.SigWords(), y.SigWords()
	if xw == 0 || yw == 0 {
		return Int{}
	}
	z := make([]Word, xw+yw)
	if xw == 1 {
		linmulWords(z, y.mag[:yw], x.mag[0])
	} else if yw == 1 {
		linmulWords(z, x.mag[:xw], y.mag[0])
	} else {
		mulWords(z, x.mag[:xw], y.mag[:yw])
	}
	return makeInt(z, x.neg != y.neg)
}

func (x Int) MulWord(y Word) Int {
	xw := x.SigWords()
	if xw == 0 || y == 0 {
		return Int{}
	}
	z := make([]Word, xw+1)
	linmulWords(z, x.mag[:xw], y)
	return makeInt(z, x.neg)
}

func (x Int) Square() Int {
	return x.Mul(x)
}

// Returns x << shift.  The sign is kept.
func (x Int) Lsh(shift uint) Int {
	if x.IsZero() {
		return Int{}
	}
	return makeInt(shlWords(x.mag[:x.SigWords()], shift), x.neg)
}

// Returns x >> shift, shifting the magnitude.  The sign is kept, except
// that a zero result is Positive.
func (x Int) Rsh(shift uint) Int {
	return makeInt(shrWords(x.mag[:x.SigWords()], shift), x.neg)
}

// Divides the magnitude by a single word.
func (x Int) quoRemWord(d Word) (Int, Word) {
	n := x.SigWords()
	q := make([]Word, n)
	var r Word
	for i := n - 1; i >= 0; i-- {
		q[i], r = bits.Div64(r, x.mag[i], d)
	}
	return makeInt(q, false), r
}

// Whether x is a positive power of two.
func (x Int) isPowerOf2() bool {
	n := x.SigWords()
	if n == 0 || x.neg {
		return false
	}
	for i := 0; i < n-1; i++ {
		if x.mag[i] != 0 {
			return false
		}
	}
	top := x.mag[n-1]
	return top&(top-1) == 0
}

// Computes q and r with x = q*y + r and 0 <= r < |y|.  Fails with
// DivideByZero if y is zero.
func (x Int) QuoRem(y Int) (q, r Int, err error) {
	if y.IsZero() {
		return Int{}, Int{}, errs.Errorf(errs.DivideByZero,
			"bigint: division by zero")
	}

	r = x.Abs()
	yy := y.Abs()

	switch r.CmpAbs(yy) {
	case -1:
		q = Int{}
	case 0:
		q = One
		r = Int{}
	case 1:
		q, r = divideMag(r, yy)
	}

	// sign fix up
	if x.neg {
		q = q.Neg()
		if !r.IsZero() {
			q = q.Sub(One)
			r = yy.Sub(r)
		}
	}
	if y.neg {
		q = q.Neg()
	}
	return q, r, nil
}

// Long division of positive magnitudes with r > y.
func divideMag(r, y Int) (Int, Int) {
	shifts := uint(bits.LeadingZeros64(y.mag[y.SigWords()-1]))
	y = y.Lsh(shifts)
	r = r.Lsh(shifts)

	n := r.SigWords() - 1
	t := y.SigWords() - 1
	q := make([]Word, n-t+1)

	if n == t {
		for r.CmpAbs(y) >= 0 {
			r = r.Sub(y)
			q[0]++
		}
		return makeInt(q, false), r.Rsh(shifts)
	}

	temp := y.Lsh(wordBits * uint(n-t))
	for r.Cmp(temp) >= 0 {
		r = r.Sub(temp)
		q[n-t]++
	}

	yt := y.Word(t)
	yt1 := y.Word(t - 1)
	for j := n; j != t; j-- {
		xj0 := r.Word(j)
		xj1 := r.Word(j - 1)
		var qj Word
		if xj0 == yt {
			qj = ^Word(0)
		} else {
			qj, _ = bits.Div64(xj0, xj1, yt)
		}
		for divisionCheck(qj, yt, yt1, xj0, xj1, r.Word(j-2)) {
			qj--
		}
		shift := wordBits * uint(j-t-1)
		r = r.Sub(y.MulWord(qj).Lsh(shift))
		if r.neg {
			r = r.Add(y.Lsh(shift))
			qj--
		}
		q[j-t-1] = qj
	}
	return makeInt(q, false), r.Rsh(shifts)
}

// Returns the floored quotient x / y.  Panics if y is zero.
func (x Int) Div(y Int) Int {
	if !x.neg && y.isPowerOf2() {
		return x.Rsh(uint(y.Bits() - 1))
	}
	q, _, err := x.QuoRem(y)
	if err != nil {
		panic(err)
	}
	return q
}

// Returns x mod m in [0, m).  Panics with DivideByZero if m is zero
// and with InvalidArgument if m is negative.
func (x Int) Mod(m Int) Int {
	r, err := x.ModChecked(m)
	if err != nil {
		panic(err)
	}
	return r
}

// Like Mod, but returns an error instead of panicking.
func (x Int) ModChecked(m Int) (Int, error) {
	if m.IsZero() {
		return Int{}, errs.Errorf(errs.DivideByZero,
			"bigint: reduction modulo zero")
	}
	if m.neg {
		return Int{}, errs.Errorf(errs.InvalidArgument,
			"bigint: modulus must be positive")
	}
	if !x.neg && x.CmpAbs(m) < 0 {
		return x, nil
	}
	_, r, err := x.QuoRem(m)
	return r, err
}

// Returns x mod m for a single word modulus.  For negative x the result
// is m minus the remainder of |x|.  Panics if m is zero.
func (x Int) ModWord(m Word) Word {
	if m == 0 {
		panic(errs.Errorf(errs.DivideByZero, "bigint: reduction modulo zero"))
	}
	if m == 1 {
		return 0
	}

	var r Word
	if m&(m-1) == 0 {
		r = x.Word(0) & (m - 1)
	} else {
		for i := x.SigWords() - 1; i >= 0; i-- {
			_, r = bits.Div64(r, x.mag[i], m)
		}
	}

	if r != 0 && x.neg {
		return m - r
	}
	return r
}
