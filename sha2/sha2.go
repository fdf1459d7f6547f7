// Package sha2 implements the SHA-224 and SHA-256 hash functions.
package sha2

import (
	"encoding/binary"
	"math/bits"

	"github.com/bwesterb/go-cryptocore/algo"
)

const (
	BlockSize = 64
	Size256   = 32
	Size224   = 28
)

var iv256 = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var iv224 = [8]uint32{
	0xc1059ed8, 0x367cd507, 0x3070dd17, 0xf70e5939,
	0xffc00b31, 0x68581511, 0x64f98fa7, 0xbefa4fa4,
}

var roundConstants = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// SHA-224 or SHA-256 state.  Implements algo.HashFunction.
type Digest struct {
	h     [8]uint32
	buf   [BlockSize]byte
	nbuf  int
	count uint64 // bytes processed
	is224 bool
}

func New256() *Digest {
	d := &Digest{}
	d.Reset()
	return d
}

func New224() *Digest {
	d := &Digest{is224: true}
	d.Reset()
	return d
}

func (d *Digest) Name() string {
	if d.is224 {
		return "SHA-224"
	}
	return "SHA-256"
}

func (d *Digest) Size() int {
	if d.is224 {
		return Size224
	}
	return Size256
}

func (d *Digest) BlockSize() int { return BlockSize }

func (d *Digest) Reset() {
	if d.is224 {
		d.h = iv224
	} else {
		d.h = iv256
	}
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
	if d.nbuf > 0 {
		c := copy(d.buf[d.nbuf:], p)
		d.nbuf += c
		p = p[c:]
		if d.nbuf == BlockSize {
			d.compressN(d.buf[:])
			d.nbuf = 0
		}
	}
	if full := len(p) &^ (BlockSize - 1); full > 0 {
		d.compressN(p[:full])
		p = p[full:]
	}
	d.nbuf += copy(d.buf[:], p)
	return n, nil
}

// Appends the digest to in without changing the state.
func (d *Digest) Sum(in []byte) []byte {
	tmp := *d
	var pad [BlockSize + 8]byte
	pad[0] = 0x80
	padLen := BlockSize - int((tmp.count+8)%BlockSize)
	binary.BigEndian.PutUint64(pad[padLen:], tmp.count*8)
	tmp.Write(pad[:padLen+8])

	var out [Size256]byte
	for i := 0; i < 8; i++ {
		binary.BigEndian.PutUint32(out[4*i:], tmp.h[i])
	}
	return append(in, out[:d.Size()]...)
}

func ch(x, y, z uint32) uint32  { return (x & y) ^ (^x & z) }
func maj(x, y, z uint32) uint32 { return (x & y) ^ (x & z) ^ (y & z) }

func bigSigma0(x uint32) uint32 {
	return bits.RotateLeft32(x, -2) ^ bits.RotateLeft32(x, -13) ^ bits.RotateLeft32(x, -22)
}

func bigSigma1(x uint32) uint32 {
	return bits.RotateLeft32(x, -6) ^ bits.RotateLeft32(x, -11) ^ bits.RotateLeft32(x, -25)
}

func sigma0(x uint32) uint32 {
	return bits.RotateLeft32(x, -7) ^ bits.RotateLeft32(x, -18) ^ (x >> 3)
}

func sigma1(x uint32) uint32 {
	return bits.RotateLeft32(x, -17) ^ bits.RotateLeft32(x, -19) ^ (x >> 10)
}

// Compresses len(blocks)/BlockSize consecutive blocks into the state.
func (d *Digest) compressN(blocks []byte) {
	var w [64]uint32
	for len(blocks) >= BlockSize {
		for i := 0; i < 16; i++ {
			w[i] = binary.BigEndian.Uint32(blocks[4*i:])
		}
		for i := 16; i < 64; i++ {
			w[i] = sigma1(w[i-2]) + w[i-7] + sigma0(w[i-15]) + w[i-16]
		}

		a, b, c, e := d.h[0], d.h[1], d.h[2], d.h[4]
		dd, f, g, h := d.h[3], d.h[5], d.h[6], d.h[7]
		for i := 0; i < 64; i++ {
			t1 := h + bigSigma1(e) + ch(e, f, g) + roundConstants[i] + w[i]
			t2 := bigSigma0(a) + maj(a, b, c)
			h, g, f, e = g, f, e, dd+t1
			dd, c, b, a = c, b, a, t1+t2
		}

		d.h[0] += a
		d.h[1] += b
		d.h[2] += c
		d.h[3] += dd
		d.h[4] += e
		d.h[5] += f
		d.h[6] += g
		d.h[7] += h
		blocks = blocks[BlockSize:]
	}
}
