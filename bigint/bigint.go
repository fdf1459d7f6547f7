// Package bigint implements sign-magnitude arbitrary precision integers.
//
// An Int is a value: every operation returns a new Int and never modifies
// its operands.  Contract violations, such as dividing by zero, panic with
// an errs.Error in the same way math/big panics.
package bigint

import (
	"math/big"
	"math/bits"
	"strings"

	"github.com/bwesterb/go-cryptocore/errs"
)

type Sign int

const (
	Negative Sign = -1
	Positive Sign = 1
)

// Arbitrary precision integer.  The zero value is 0.
type Int struct {
	neg bool
	mag []Word // little-endian; leading zero words are not significant
}

var (
	Zero = Int{}
	One  = FromUint64(1)
	Two  = FromUint64(2)
)

// Builds an Int from a magnitude, normalizing zero to Positive.
func makeInt(mag []Word, neg bool) Int {
	n := sigWords(mag)
	if n == 0 {
		return Int{}
	}
	return Int{neg: neg, mag: mag[:n]}
}

func New(x int64) Int {
	if x < 0 {
		return makeInt([]Word{Word(-x)}, true)
	}
	return makeInt([]Word{Word(x)}, false)
}

func FromUint64(x uint64) Int {
	return makeInt([]Word{x}, false)
}

// Interprets b as an unsigned big-endian integer.
func FromBytes(b []byte) Int {
	mag := make([]Word, (len(b)+7)/8)
	for i := 0; i < len(b); i++ {
		pos := len(b) - 1 - i
		mag[i/8] |= Word(b[pos]) << (8 * uint(i%8))
	}
	return makeInt(mag, false)
}

// Interprets the leftmost maxBits bits of b as an unsigned big-endian
// integer.
func FromBytesBits(b []byte, maxBits int) Int {
	maxBytes := (maxBits + 7) / 8
	if maxBytes > len(b) {
		maxBytes = len(b)
	}
	ret := FromBytes(b[:maxBytes])
	if excess := 8*maxBytes - maxBits; excess > 0 {
		ret = ret.Rsh(uint(excess))
	}
	return ret
}

// Parses a decimal number, or a hexadecimal one prefixed with 0x.  A
// leading minus sign is allowed.
func FromString(s string) (Int, error) {
	orig := s
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	base := Word(10)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	if len(s) == 0 {
		return Int{}, errs.Errorf(errs.InvalidArgument,
			"bigint: cannot parse %q", orig)
	}
	ret := Int{}
	for _, c := range s {
		var d Word
		switch {
		case c >= '0' && c <= '9':
			d = Word(c - '0')
		case base == 16 && c >= 'a' && c <= 'f':
			d = Word(c-'a') + 10
		case base == 16 && c >= 'A' && c <= 'F':
			d = Word(c-'A') + 10
		default:
			return Int{}, errs.Errorf(errs.InvalidArgument,
				"bigint: invalid digit %q in %q", c, orig)
		}
		ret = ret.MulWord(base).Add(FromUint64(d))
	}
	if neg {
		ret = ret.Neg()
	}
	return ret, nil
}

// Like FromString, but panics on malformed input.  For constants.
func MustFromString(s string) Int {
	ret, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return ret
}

func FromBig(x *big.Int) Int {
	ret := FromBytes(x.Bytes())
	if x.Sign() < 0 {
		ret = ret.Neg()
	}
	return ret
}

// Converts to a math/big integer.
func (x Int) Big() *big.Int {
	ret := new(big.Int).SetBytes(x.Bytes())
	if x.neg {
		ret.Neg(ret)
	}
	return ret
}

func (x Int) Sign() Sign {
	if x.neg {
		return Negative
	}
	return Positive
}

func (x Int) IsZero() bool     { return sigWords(x.mag) == 0 }
func (x Int) IsNeg() bool      { return x.neg }
func (x Int) IsPositive() bool { return !x.neg && !x.IsZero() }
func (x Int) IsOdd() bool      { return x.Word(0)&1 == 1 }
func (x Int) IsEven() bool     { return !x.IsOdd() }

// Number of significant words.
func (x Int) SigWords() int { return sigWords(x.mag) }

// Returns the i-th word of the magnitude, or 0 if out of range.
func (x Int) Word(i int) Word {
	if i < 0 || i >= len(x.mag) {
		return 0
	}
	return x.mag[i]
}

// Returns the low 64 bits of the magnitude.
func (x Int) Uint64() uint64 { return x.Word(0) }

// Number of significant bits of the magnitude.
func (x Int) Bits() int {
	n := x.SigWords()
	if n == 0 {
		return 0
	}
	return (n-1)*wordBits + bits.Len64(x.mag[n-1])
}

// Number of bytes needed to encode the magnitude.
func (x Int) ByteLen() int {
	return (x.Bits() + 7) / 8
}

// Returns bit i of the magnitude.
func (x Int) Bit(i int) bool {
	return (x.Word(i/wordBits)>>(uint(i)%wordBits))&1 == 1
}

func (x Int) Abs() Int {
	return Int{mag: x.mag}
}

func (x Int) Neg() Int {
	return makeInt(x.mag, !x.neg)
}

// Returns the minimal big-endian encoding of the magnitude.  Zero
// encodes as the empty string.
func (x Int) Bytes() []byte {
	ret, _ := x.FillBytes(x.ByteLen())
	return ret
}

// Returns the big-endian encoding of the magnitude left-padded with
// zeroes to n bytes.
func (x Int) FillBytes(n int) ([]byte, error) {
	if x.ByteLen() > n {
		return nil, errs.Errorf(errs.InvalidArgument,
			"bigint: %d bit value does not fit in %d bytes", x.Bits(), n)
	}
	ret := make([]byte, n)
	for i := 0; i < n; i++ {
		ret[n-1-i] = byte(x.Word(i/8) >> (8 * uint(i%8)))
	}
	return ret, nil
}

// Encodes a and b both padded to n bytes and concatenated.
func EncodeFixedPair(a, b Int, n int) ([]byte, error) {
	ab, err := a.FillBytes(n)
	if err != nil {
		return nil, err
	}
	bb, err := b.FillBytes(n)
	if err != nil {
		return nil, err
	}
	return append(ab, bb...), nil
}

// Three-way comparison of x and y.
func (x Int) Cmp(y Int) int {
	if x.neg != y.neg {
		if x.neg {
			return -1
		}
		return 1
	}
	if x.neg {
		return -cmpWords(x.mag, y.mag)
	}
	return cmpWords(x.mag, y.mag)
}

// Three-way comparison of the absolute values of x and y.
func (x Int) CmpAbs(y Int) int {
	return cmpWords(x.mag, y.mag)
}

func (x Int) Equal(y Int) bool {
	return x.Cmp(y) == 0
}

// Returns the decimal representation.
func (x Int) String() string {
	return x.Text(10)
}

// Returns the representation of x in base 10 or 16.
func (x Int) Text(base int) string {
	if x.IsZero() {
		return "0"
	}
	var digits []byte
	if base == 16 {
		const hexDigits = "0123456789abcdef"
		for _, b := range x.Bytes() {
			digits = append(digits, hexDigits[b>>4], hexDigits[b&15])
		}
		s := strings.TrimLeft(string(digits), "0")
		if x.neg {
			return "-" + s
		}
		return s
	}

	// peel off 19 decimal digits at a time
	const chunk = Word(10000000000000000000)
	mag := x.Abs()
	for !mag.IsZero() {
		q, r := mag.quoRemWord(chunk)
		for i := 0; i < 19; i++ {
			digits = append(digits, byte('0'+r%10))
			r /= 10
		}
		mag = q
	}
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
	}
	if x.neg {
		digits = append(digits, '-')
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
