package bigint

import (
	"io"

	"github.com/bwesterb/go-cryptocore/errs"
)

const powerModWindow = 4

// Returns base^exp mod mod using a fixed window.  Panics if mod is not
// positive or exp is negative.
func PowerMod(base, exp, mod Int) Int {
	if exp.neg {
		panic(errs.Errorf(errs.InvalidArgument,
			"bigint: PowerMod with negative exponent"))
	}
	red := NewReducer(mod)
	if mod.Equal(One) {
		return Int{}
	}
	return red.PowerMod(base, exp)
}

// Returns base^exp mod m for the reducer's modulus m.
func (r Reducer) PowerMod(base, exp Int) Int {
	base = r.Reduce(base)

	var table [1 << powerModWindow]Int
	table[0] = One
	for i := 1; i < len(table); i++ {
		table[i] = r.Multiply(table[i-1], base)
	}

	ret := One
	nbits := exp.Bits()
	windows := (nbits + powerModWindow - 1) / powerModWindow
	for w := windows - 1; w >= 0; w-- {
		for i := 0; i < powerModWindow; i++ {
			ret = r.Square(ret)
		}
		var idx int
		for i := powerModWindow - 1; i >= 0; i-- {
			idx <<= 1
			if exp.Bit(w*powerModWindow + i) {
				idx |= 1
			}
		}
		ret = r.Multiply(ret, table[idx])
	}
	return r.Reduce(ret)
}

// Returns the inverse of n modulo mod, or zero if it does not exist.
// Panics if mod is not positive.
func InverseMod(n, mod Int) Int {
	if !mod.IsPositive() {
		panic(errs.Errorf(errs.InvalidArgument,
			"bigint: InverseMod modulus must be positive"))
	}
	n = n.Mod(mod)
	if n.IsZero() {
		return Int{}
	}

	r0, r1 := mod, n
	t0, t1 := Int{}, One
	for !r1.IsZero() {
		q, r, _ := r0.QuoRem(r1)
		r0, r1 = r1, r
		t0, t1 = t1, t0.Sub(q.Mul(t1))
	}
	if !r0.Equal(One) {
		return Int{}
	}
	return t0.Mod(mod)
}

// Greatest common divisor of |a| and |b|.
func GCD(a, b Int) Int {
	a, b = a.Abs(), b.Abs()
	for !b.IsZero() {
		_, r, _ := a.QuoRem(b)
		a, b = b, r
	}
	return a
}

// Least common multiple of |a| and |b|.
func LCM(a, b Int) Int {
	if a.IsZero() || b.IsZero() {
		return Int{}
	}
	return a.Abs().Mul(b.Abs()).Div(GCD(a, b))
}

// Jacobi symbol (a/n) for odd positive n.  Panics otherwise.
func Jacobi(a, n Int) int {
	if !n.IsPositive() || n.IsEven() {
		panic(errs.Errorf(errs.InvalidArgument,
			"bigint: Jacobi needs an odd positive modulus"))
	}
	x := a.Mod(n)
	y := n
	j := 1
	for !x.IsZero() {
		z := 0
		for x.IsEven() {
			x = x.Rsh(1)
			z++
		}
		if z%2 == 1 {
			if m := y.ModWord(8); m == 3 || m == 5 {
				j = -j
			}
		}
		if x.ModWord(4) == 3 && y.ModWord(4) == 3 {
			j = -j
		}
		x, y = y.Mod(x), x
	}
	if y.Equal(One) {
		return j
	}
	return 0
}

// Returns a square root of a modulo the odd prime p using Tonelli-Shanks.
// The second return value is false if a is not a quadratic residue.
func SqrtModPrime(a, p Int) (Int, bool) {
	a = a.Mod(p)
	if a.IsZero() {
		return Int{}, true
	}
	if Jacobi(a, p) != 1 {
		return Int{}, false
	}

	red := NewReducer(p)
	if p.ModWord(4) == 3 {
		return red.PowerMod(a, p.Add(One).Rsh(2)), true
	}

	pm1 := p.Sub(One)
	s := 0
	q := pm1
	for q.IsEven() {
		q = q.Rsh(1)
		s++
	}

	z := Two
	for Jacobi(z, p) != -1 {
		z = z.Add(One)
	}

	c := red.PowerMod(z, q)
	r := red.PowerMod(a, q.Add(One).Rsh(1))
	t := red.PowerMod(a, q)
	m := s
	for !t.Equal(One) {
		i := 0
		t2 := t
		for !t2.Equal(One) {
			t2 = red.Square(t2)
			i++
			if i == m {
				return Int{}, false
			}
		}
		b := c
		for k := 0; k < m-i-1; k++ {
			b = red.Square(b)
		}
		r = red.Multiply(r, b)
		c = red.Square(b)
		t = red.Multiply(t, c)
		m = i
	}
	return r, true
}

// Returns a uniformly random integer of at most nbits bits.  If
// setHighBit is true, the result has exactly nbits bits.
func RandomBits(rng io.Reader, nbits int, setHighBit bool) (Int, error) {
	if nbits <= 0 {
		return Int{}, nil
	}
	buf := make([]byte, (nbits+7)/8)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return Int{}, errs.Wrapf(err, errs.InvalidState,
			"bigint: reading random bytes")
	}
	if excess := uint(8*len(buf) - nbits); excess > 0 {
		buf[0] &= 0xff >> excess
	}
	if setHighBit {
		buf[0] |= 0x80 >> uint(8*len(buf)-nbits)
	}
	return FromBytes(buf), nil
}

// Returns a uniformly random integer in [min, max).
func RandomInteger(rng io.Reader, min, max Int) (Int, error) {
	if min.neg || max.neg || max.Cmp(min) <= 0 {
		return Int{}, errs.Errorf(errs.InvalidArgument,
			"bigint: RandomInteger invalid range")
	}
	nbits := max.Bits()
	for {
		r, err := RandomBits(rng, nbits, false)
		if err != nil {
			return Int{}, err
		}
		if r.Cmp(min) >= 0 && r.Cmp(max) < 0 {
			return r, nil
		}
	}
}

var smallPrimes = sieve(2000)

func sieve(limit int) []Word {
	composite := make([]bool, limit)
	var ret []Word
	for i := 2; i < limit; i++ {
		if composite[i] {
			continue
		}
		ret = append(ret, Word(i))
		for j := i * i; j < limit; j += i {
			composite[j] = true
		}
	}
	return ret
}

// Tests n for primality by trial division followed by the given number
// of Miller-Rabin rounds with random bases.
func IsProbablePrime(rng io.Reader, n Int, rounds int) (bool, error) {
	if n.Cmp(Two) < 0 {
		return false, nil
	}
	for _, p := range smallPrimes {
		if n.SigWords() == 1 && n.mag[0] == p {
			return true, nil
		}
		if n.ModWord(p) == 0 {
			return false, nil
		}
	}
	if n.SigWords() == 1 && n.mag[0] < smallPrimes[len(smallPrimes)-1]*
		smallPrimes[len(smallPrimes)-1] {
		return true, nil
	}

	red := NewReducer(n)
	nm1 := n.Sub(One)
	d := nm1
	s := 0
	for d.IsEven() {
		d = d.Rsh(1)
		s++
	}

	for i := 0; i < rounds; i++ {
		a, err := RandomInteger(rng, Two, nm1)
		if err != nil {
			return false, err
		}
		y := red.PowerMod(a, d)
		if y.Equal(One) || y.Equal(nm1) {
			continue
		}
		composite := true
		for r := 1; r < s; r++ {
			y = red.Square(y)
			if y.Equal(nm1) {
				composite = false
				break
			}
		}
		if composite {
			return false, nil
		}
	}
	return true, nil
}

// Returns a random prime of exactly nbits bits.
func RandomPrime(rng io.Reader, nbits int) (Int, error) {
	if nbits < 2 {
		return Int{}, errs.Errorf(errs.InvalidArgument,
			"bigint: cannot generate a %d bit prime", nbits)
	}
	for {
		p, err := RandomBits(rng, nbits, true)
		if err != nil {
			return Int{}, err
		}
		if p.IsEven() {
			p = p.Add(One)
		}
		if p.Bits() != nbits {
			continue
		}
		ok, err := IsProbablePrime(rng, p, 40)
		if err != nil {
			return Int{}, err
		}
		if ok {
			return p, nil
		}
	}
}
