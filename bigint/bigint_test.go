package bigint

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/bwesterb/go-cryptocore/errs"
	"pgregory.net/rapid"
)

func drawInt(t *rapid.T, label string) (Int, *big.Int) {
	buf := rapid.SliceOfN(rapid.Byte(), 0, 72).Draw(t, label)
	neg := rapid.Bool().Draw(t, label+"-neg")
	x := FromBytes(buf)
	ref := new(big.Int).SetBytes(buf)
	if neg {
		x = x.Neg()
		ref.Neg(ref)
	}
	return x, ref
}

func checkEqual(t *rapid.T, op string, got Int, want *big.Int) {
	if got.Big().Cmp(want) != 0 {
		t.Fatalf("%s: got %s, want %s", op, got.String(), want.String())
	}
	if got.IsZero() && got.Sign() != Positive {
		t.Fatalf("%s: zero with negative sign", op)
	}
}

func TestArithmeticAgainstBig(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x, xr := drawInt(t, "x")
		y, yr := drawInt(t, "y")

		checkEqual(t, "Add", x.Add(y), new(big.Int).Add(xr, yr))
		checkEqual(t, "Sub", x.Sub(y), new(big.Int).Sub(xr, yr))
		checkEqual(t, "Mul", x.Mul(y), new(big.Int).Mul(xr, yr))
		checkEqual(t, "Square", x.Square(), new(big.Int).Mul(xr, xr))
		if x.Cmp(y) != xr.Cmp(yr) {
			t.Fatalf("Cmp(%s, %s) = %d", x, y, x.Cmp(y))
		}

		if yr.Sign() != 0 {
			q, r, err := x.QuoRem(y)
			if err != nil {
				t.Fatalf("QuoRem(): %v", err)
			}
			qr, rr := new(big.Int).DivMod(xr, yr, new(big.Int))
			checkEqual(t, "QuoRem q", q, qr)
			checkEqual(t, "QuoRem r", r, rr)
			checkEqual(t, "Div", x.Div(y), qr)
		}
		if yr.Sign() > 0 {
			checkEqual(t, "Mod", x.Mod(y), new(big.Int).Mod(xr, yr))
		}
	})
}

func TestSingleWordOperands(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64().Draw(t, "b")
		ar := new(big.Int).SetUint64(a)
		br := new(big.Int).SetUint64(b)
		checkEqual(t, "Add", FromUint64(a).Add(FromUint64(b)), new(big.Int).Add(ar, br))
		checkEqual(t, "Mul", FromUint64(a).Mul(FromUint64(b)), new(big.Int).Mul(ar, br))
	})
}

func TestShifts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x, xr := drawInt(t, "x")
		n := rapid.UintRange(0, 300).Draw(t, "n")
		checkEqual(t, "Lsh", x.Lsh(n), new(big.Int).Lsh(xr, n))

		want := new(big.Int).Rsh(new(big.Int).Abs(xr), n)
		if xr.Sign() < 0 {
			want.Neg(want)
		}
		checkEqual(t, "Rsh", x.Rsh(n), want)
	})
}

func TestModWord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x, xr := drawInt(t, "x")
		m := rapid.SampledFrom([]Word{1, 2, 3, 7, 10, 64, 1 << 32,
			1<<63 + 25, ^Word(0)}).Draw(t, "m")
		got := x.ModWord(m)

		abs := new(big.Int).Abs(xr)
		r := new(big.Int).Mod(abs, new(big.Int).SetUint64(m)).Uint64()
		if xr.Sign() < 0 && r != 0 {
			r = m - r
		}
		if got != r {
			t.Fatalf("%s mod %d: got %d, want %d", x, m, got, r)
		}
	})
}

func expectPanic(t *testing.T, kind errs.Kind, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected a panic with an error, got %v", r)
		}
		if !errs.Is(err, kind) {
			t.Fatalf("expected %v, got %v", kind, err)
		}
	}()
	f()
}

func TestContractViolations(t *testing.T) {
	expectPanic(t, errs.DivideByZero, func() { New(5).Mod(Zero) })
	expectPanic(t, errs.InvalidArgument, func() { New(5).Mod(New(-3)) })
	expectPanic(t, errs.DivideByZero, func() { New(5).ModWord(0) })
	expectPanic(t, errs.DivideByZero, func() { New(5).Div(Zero) })
	if _, err := New(5).ModChecked(Zero); !errs.Is(err, errs.DivideByZero) {
		t.Fatalf("ModChecked(0): %v", err)
	}
	if New(12345).ModWord(1) != 0 {
		t.Fatalf("x mod 1 should be 0")
	}
}

func TestZeroIsPositive(t *testing.T) {
	z := New(-7).Add(New(7))
	if z.Sign() != Positive || !z.IsZero() {
		t.Fatalf("-7 + 7 should be positive zero")
	}
	if New(-1).Rsh(1).Sign() != Positive {
		t.Fatalf("-1 >> 1 should be positive zero")
	}
	if Zero.Neg().Sign() != Positive {
		t.Fatalf("-0 should be positive")
	}
	if New(-3).Mul(Zero).Sign() != Positive {
		t.Fatalf("-3 * 0 should be positive")
	}
}

func TestStrings(t *testing.T) {
	x := MustFromString("-123456789012345678901234567890")
	if x.String() != "-123456789012345678901234567890" {
		t.Fatalf("String(): %s", x.String())
	}
	y := MustFromString("0xDeadBeefCafeBabe0011")
	if y.Text(16) != "deadbeefcafebabe0011" {
		t.Fatalf("Text(16): %s", y.Text(16))
	}
	if New(0).String() != "0" || New(10000000000).String() != "10000000000" {
		t.Fatalf("String() of small values")
	}
	for _, bad := range []string{"", "-", "12a", "0x"} {
		if _, err := FromString(bad); !errs.Is(err, errs.InvalidArgument) {
			t.Fatalf("FromString(%q) should fail", bad)
		}
	}
}

func TestBytes(t *testing.T) {
	x := FromBytes([]byte{0, 0, 1, 2, 3})
	if !bytes.Equal(x.Bytes(), []byte{1, 2, 3}) {
		t.Fatalf("Bytes(): %x", x.Bytes())
	}
	b, err := x.FillBytes(5)
	if err != nil || !bytes.Equal(b, []byte{0, 0, 1, 2, 3}) {
		t.Fatalf("FillBytes(5): %x %v", b, err)
	}
	if _, err = x.FillBytes(2); err == nil {
		t.Fatalf("FillBytes(2) should fail")
	}
	if FromBytesBits([]byte{0xff, 0x00, 0xff}, 12).Uint64() != 0xff0 {
		t.Fatalf("FromBytesBits(12)")
	}
	if FromBytesBits([]byte{0xab, 0xcd}, 64).Uint64() != 0xabcd {
		t.Fatalf("FromBytesBits(64)")
	}
	pair, _ := EncodeFixedPair(New(1), New(2), 3)
	if !bytes.Equal(pair, []byte{0, 0, 1, 0, 0, 2}) {
		t.Fatalf("EncodeFixedPair(): %x", pair)
	}
	if x.Bits() != 17 || x.ByteLen() != 3 || !x.Bit(16) || x.Bit(15) {
		t.Fatalf("Bits()/Bit()")
	}
}

func TestNumberTheory(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x, xr := drawInt(t, "x")
		e, er := drawInt(t, "e")
		m, mr := drawInt(t, "m")
		e, er = e.Abs(), new(big.Int).Abs(er)
		m, mr = m.Abs(), new(big.Int).Abs(mr)
		if m.IsZero() {
			return
		}

		checkEqual(t, "PowerMod", PowerMod(x, e, m),
			new(big.Int).Exp(new(big.Int).Mod(xr, mr), er, mr))
		checkEqual(t, "GCD", GCD(x, m),
			new(big.Int).GCD(nil, nil, new(big.Int).Abs(xr), mr))
		checkEqual(t, "Reduce", NewReducer(m).Reduce(x), new(big.Int).Mod(xr, mr))

		inv := InverseMod(x, m)
		want := new(big.Int).ModInverse(new(big.Int).Mod(xr, mr), mr)
		if want == nil || mr.Cmp(big.NewInt(1)) == 0 {
			want = new(big.Int)
		}
		checkEqual(t, "InverseMod", inv, want)

		if mr.Bit(0) == 1 {
			if Jacobi(x, m) != big.Jacobi(xr, mr) {
				t.Fatalf("Jacobi(%s, %s)", x, m)
			}
		}
	})
}

func TestSqrtModPrime(t *testing.T) {
	// p = 1 mod 4 forces the Tonelli-Shanks path, p = 3 mod 4 the shortcut
	for _, ps := range []string{"17", "1000000007", "998244353",
		"0xffffffffffffffffffffffffffffffff000000000000000000000001",
		"0xffffffff00000001000000000000000000000000ffffffffffffffffffffffff"} {
		p := MustFromString(ps)
		for i := int64(2); i < 40; i++ {
			a := New(i)
			r, ok := SqrtModPrime(a, p)
			isResidue := big.Jacobi(a.Big(), p.Big()) == 1
			if ok != isResidue {
				t.Fatalf("SqrtModPrime(%d, %s): ok=%v", i, ps, ok)
			}
			if ok && !r.Square().Mod(p).Equal(a) {
				t.Fatalf("SqrtModPrime(%d, %s) = %s is wrong", i, ps, r)
			}
		}
	}
}

func TestPrimes(t *testing.T) {
	for _, tc := range []struct {
		n     string
		prime bool
	}{
		{"1", false}, {"2", true}, {"97", true}, {"561", false},
		{"3215031751", false},
		{"170141183460469231731687303715884105727", true},
		{"170141183460469231731687303715884105729", false},
	} {
		ok, err := IsProbablePrime(rand.Reader, MustFromString(tc.n), 20)
		if err != nil {
			t.Fatalf("IsProbablePrime(): %v", err)
		}
		if ok != tc.prime {
			t.Fatalf("IsProbablePrime(%s) = %v", tc.n, ok)
		}
	}

	p, err := RandomPrime(rand.Reader, 96)
	if err != nil {
		t.Fatalf("RandomPrime(): %v", err)
	}
	if p.Bits() != 96 || !p.Big().ProbablyPrime(20) {
		t.Fatalf("RandomPrime() returned %s", p)
	}
}

func TestRandomInteger(t *testing.T) {
	min, max := New(1000), New(1010)
	seen := make(map[uint64]bool)
	for i := 0; i < 500; i++ {
		r, err := RandomInteger(rand.Reader, min, max)
		if err != nil {
			t.Fatalf("RandomInteger(): %v", err)
		}
		if r.Cmp(min) < 0 || r.Cmp(max) >= 0 {
			t.Fatalf("RandomInteger() out of range: %s", r)
		}
		seen[r.Uint64()] = true
	}
	if len(seen) != 10 {
		t.Fatalf("RandomInteger() hit only %d values", len(seen))
	}
	if _, err := RandomInteger(rand.Reader, max, min); err == nil {
		t.Fatalf("RandomInteger() with empty range should fail")
	}
}
