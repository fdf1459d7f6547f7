package bigint

import (
	"github.com/bwesterb/go-cryptocore/errs"
)

// Barrett reduction modulo a fixed positive modulus.
type Reducer struct {
	mod Int
	mu  Int // floor(2^(2*64*k) / mod)
	k   int // significant words of mod
}

// Panics if mod is not positive.
func NewReducer(mod Int) Reducer {
	if !mod.IsPositive() {
		panic(errs.Errorf(errs.InvalidArgument,
			"bigint: Reducer modulus must be positive"))
	}
	k := mod.SigWords()
	mu := One.Lsh(uint(2 * wordBits * k)).Div(mod)
	return Reducer{mod: mod, mu: mu, k: k}
}

func (r Reducer) Modulus() Int { return r.mod }

// Returns x mod m in [0, m).
func (r Reducer) Reduce(x Int) Int {
	if x.neg {
		t := r.Reduce(x.Abs())
		if t.IsZero() {
			return t
		}
		return r.mod.Sub(t)
	}
	if x.CmpAbs(r.mod) < 0 {
		return x
	}
	if x.SigWords() > 2*r.k {
		return x.Mod(r.mod)
	}

	q := x.Rsh(uint(wordBits * (r.k - 1))).Mul(r.mu).Rsh(uint(wordBits * (r.k + 1)))
	t := x.Sub(q.Mul(r.mod))
	for t.Cmp(r.mod) >= 0 {
		t = t.Sub(r.mod)
	}
	return t
}

// Returns x*y mod m.
func (r Reducer) Multiply(x, y Int) Int {
	return r.Reduce(x.Mul(y))
}

// Returns x^2 mod m.
func (r Reducer) Square(x Int) Int {
	return r.Reduce(x.Square())
}

// Returns x^3 mod m.
func (r Reducer) Cube(x Int) Int {
	return r.Multiply(x, r.Square(x))
}
