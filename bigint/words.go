package bigint

import (
	"math/bits"
)

// Machine word of the magnitude.
type Word = uint64

const wordBits = 64

// Number of words of x ignoring leading zero words.
func sigWords(x []Word) int {
	n := len(x)
	for n > 0 && x[n-1] == 0 {
		n--
	}
	return n
}

// Three-way comparison of the magnitudes x and y.
func cmpWords(x, y []Word) int {
	xn, yn := sigWords(x), sigWords(y)
	if xn != yn {
		if xn < yn {
			return -1
		}
		return 1
	}
	for i := xn - 1; i >= 0; i-- {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// z = x + y.  len(z) must be at least max(len(x), len(y)) + 1.
func addWords(z, x, y []Word) {
	if len(x) < len(y) {
		x, y = y, x
	}
	var c Word
	for i := range y {
		z[i], c = bits.Add64(x[i], y[i], c)
	}
	for i := len(y); i < len(x); i++ {
		z[i], c = bits.Add64(x[i], 0, c)
	}
	z[len(x)] = c
}

// z = x - y.  Requires x >= y and len(z) >= len(x).
func subWords(z, x, y []Word) {
	var b Word
	for i := range y {
		z[i], b = bits.Sub64(x[i], y[i], b)
	}
	for i := len(y); i < len(x); i++ {
		z[i], b = bits.Sub64(x[i], 0, b)
	}
}

// z = x * y.  len(z) must be at least len(x) + 1.
func linmulWords(z, x []Word, y Word) {
	var carry Word
	for i := range x {
		hi, lo := bits.Mul64(x[i], y)
		var c Word
		z[i], c = bits.Add64(lo, carry, 0)
		carry = hi + c
	}
	z[len(x)] = carry
}

// z += x * y over len(x) words.  Returns the carry word.
func mulAddWords(z, x []Word, y Word) Word {
	var carry Word
	for i := range x {
		hi, lo := bits.Mul64(x[i], y)
		var c Word
		lo, c = bits.Add64(lo, z[i], 0)
		hi += c
		lo, c = bits.Add64(lo, carry, 0)
		hi += c
		z[i] = lo
		carry = hi
	}
	return carry
}

// z = x * y by schoolbook multiplication.  z must be zeroed and
// have room for len(x) + len(y) words.
func mulWords(z, x, y []Word) {
	for j, yj := range y {
		if yj == 0 {
			continue
		}
		z[j+len(x)] = mulAddWords(z[j:j+len(x)], x, yj)
	}
}

// Returns x << shift as a new slice.
func shlWords(x []Word, shift uint) []Word {
	ws := int(shift / wordBits)
	bs := shift % wordBits
	z := make([]Word, len(x)+ws+1)
	if bs == 0 {
		copy(z[ws:], x)
		return z
	}
	var carry Word
	for i, w := range x {
		z[i+ws] = w<<bs | carry
		carry = w >> (wordBits - bs)
	}
	z[len(x)+ws] = carry
	return z
}

// Returns x >> shift as a new slice.
func shrWords(x []Word, shift uint) []Word {
	ws := int(shift / wordBits)
	bs := shift % wordBits
	if ws >= len(x) {
		return nil
	}
	z := make([]Word, len(x)-ws)
	if bs == 0 {
		copy(z, x[ws:])
		return z
	}
	for i := range z {
		z[i] = x[i+ws] >> bs
		if i+ws+1 < len(x) {
			z[i] |= x[i+ws+1] << (wordBits - bs)
		}
	}
	return z
}

// Reports whether q * (y2,y1) > (x3,x2,x1).  Used to correct the
// estimated quotient word during long division.
func divisionCheck(q, y2, y1, x3, x2, x1 Word) bool {
	hi1, lo1 := bits.Mul64(q, y1)
	hi2, lo2 := bits.Mul64(q, y2)
	w1, c := bits.Add64(lo2, hi1, 0)
	w2 := hi2 + c
	if w2 != x3 {
		return w2 > x3
	}
	if w1 != x2 {
		return w1 > x2
	}
	return lo1 > x1
}
