// Package whirlpool implements the Whirlpool hash function.
package whirlpool

import (
	"encoding/binary"
	"math/bits"

	"github.com/bwesterb/go-cryptocore/algo"
)

const (
	Size      = 64
	BlockSize = 64
	rounds    = 10
)

var (
	sbox [256]byte

	// table[k][x] is the row contribution of byte x in column k after
	// substitution, diffusion by the circulant matrix and rotation by k.
	table [8][256]uint64

	roundConstants [rounds + 1]uint64
)

func init() {
	// The S-box is built from the mini-boxes E, E^-1 and R.
	e := [16]byte{1, 0xb, 9, 0xc, 0xd, 6, 0xf, 3, 0xe, 8, 7, 4, 0xa, 2, 5, 0}
	rbox := [16]byte{7, 0xc, 0xb, 0xd, 0xe, 4, 9, 0xf, 6, 3, 8, 0xa, 2, 5, 1, 0}
	var eInv [16]byte
	for i, v := range e {
		eInv[v] = byte(i)
	}
	for x := 0; x < 256; x++ {
		u := e[x>>4]
		l := eInv[x&15]
		t := rbox[u^l]
		sbox[x] = e[u^t]<<4 | eInv[l^t]
	}

	circ := [8]byte{1, 1, 4, 1, 8, 5, 2, 9}
	for x := 0; x < 256; x++ {
		var v uint64
		for j := 0; j < 8; j++ {
			v = v<<8 | uint64(gmul(sbox[x], circ[j]))
		}
		for k := 0; k < 8; k++ {
			table[k][x] = bits.RotateLeft64(v, -8*k)
		}
	}

	for r := 1; r <= rounds; r++ {
		roundConstants[r] = binary.BigEndian.Uint64(sbox[8*(r-1):])
	}
}

// Multiplication in GF(2^8) modulo x^8 + x^4 + x^3 + x^2 + 1.
func gmul(a, b byte) byte {
	var p byte
	for b != 0 {
		if b&1 == 1 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1d
		}
		b >>= 1
	}
	return p
}

// Applies SubBytes, ShiftColumns and MixRows to x.
func rho(x *[8]uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < 8; i++ {
		var v uint64
		for k := 0; k < 8; k++ {
			v ^= table[k][byte(x[(i-k)&7]>>(56-8*uint(k)))]
		}
		out[i] = v
	}
	return out
}

// Whirlpool state.  Implements algo.HashFunction.
type Digest struct {
	h     [8]uint64
	buf   [BlockSize]byte
	nbuf  int
	count uint64 // bytes processed
}

func New() *Digest {
	return &Digest{}
}

func (d *Digest) Name() string   { return "Whirlpool" }
func (d *Digest) Size() int      { return Size }
func (d *Digest) BlockSize() int { return BlockSize }

func (d *Digest) Reset() {
	d.h = [8]uint64{}
	d.nbuf = 0
	d.count = 0
}

func (d *Digest) Clear() {
	algo.Zeroize(d.buf[:])
	d.Reset()
}

func (d *Digest) Clone() algo.HashFunction {
	ret := *d
	return &ret
}

func (d *Digest) Write(p []byte) (int, error) {
	n := len(p)
	d.count += uint64(n)
	for len(p) > 0 {
		c := copy(d.buf[d.nbuf:], p)
		d.nbuf += c
		p = p[c:]
		if d.nbuf == BlockSize {
			d.compress(d.buf[:])
			d.nbuf = 0
		}
	}
	return n, nil
}

// Appends the digest to in without changing the state.
func (d *Digest) Sum(in []byte) []byte {
	tmp := *d
	var pad [BlockSize + 32]byte
	pad[0] = 0x80
	padLen := 32 - int(tmp.count%BlockSize)
	if padLen <= 0 {
		padLen += BlockSize
	}
	// the 256 bit length field; only its low 67 bits can be non-zero
	lenField := pad[padLen : padLen+32]
	binary.BigEndian.PutUint64(lenField[24:], tmp.count<<3)
	lenField[23] = byte(tmp.count >> 61)
	tmp.Write(pad[:padLen+32])

	var out [Size]byte
	for i := 0; i < 8; i++ {
		binary.BigEndian.PutUint64(out[8*i:], tmp.h[i])
	}
	return append(in, out[:]...)
}

// Miyaguchi-Preneel step over the W block cipher.
func (d *Digest) compress(block []byte) {
	var m, k, state [8]uint64
	for i := 0; i < 8; i++ {
		m[i] = binary.BigEndian.Uint64(block[8*i:])
		k[i] = d.h[i]
		state[i] = m[i] ^ k[i]
	}
	for r := 1; r <= rounds; r++ {
		k = rho(&k)
		k[0] ^= roundConstants[r]
		state = rho(&state)
		for i := 0; i < 8; i++ {
			state[i] ^= k[i]
		}
	}
	for i := 0; i < 8; i++ {
		d.h[i] ^= state[i] ^ m[i]
	}
}
