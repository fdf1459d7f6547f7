// Package salsa20 implements the Salsa20 and XSalsa20 stream ciphers.
package salsa20

import (
	"encoding/binary"
	"math/bits"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/templexxx/xorsimd"
)

const blockSize = 64

var (
	// "expand 16-byte k"
	tau = [4]uint32{0x61707865, 0x3120646e, 0x79622d36, 0x6b206574}
	// "expand 32-byte k"
	sigma = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}
)

// Salsa20 stream cipher.  An 8 byte IV selects Salsa20 and a 24 byte
// IV selects XSalsa20.  Implements algo.StreamCipher.
type Cipher struct {
	key    []byte
	state  [16]uint32
	buffer [blockSize]byte
	pos    int // position in buffer
	keyed  bool
	ivSet  bool
}

func New() *Cipher {
	return &Cipher{}
}

// Returns a Salsa20 instance with the given key and IV.
func NewCipher(key, iv []byte) (*Cipher, error) {
	c := New()
	if err := c.SetKey(key); err != nil {
		return nil, err
	}
	if err := c.SetIV(iv); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cipher) Name() string                { return "Salsa20" }
func (c *Cipher) KeySpec() algo.KeyLengthSpec { return algo.KeyLengthSpec{Min: 16, Max: 32, Multiple: 16} }
func (c *Cipher) Clone() algo.StreamCipher    { return New() }
func (c *Cipher) ValidIVLength(n int) bool    { return n == 8 || n == 24 }

func (c *Cipher) SetKey(key []byte) error {
	if err := algo.CheckKeyLength(c.Name(), c.KeySpec(), key); err != nil {
		return err
	}
	c.key = append(c.key[:0], key...)
	c.keyed = true
	return c.SetIV(make([]byte, 8))
}

// Fills the constant and key words of the state.
func (c *Cipher) loadKey(key []byte) {
	constants := &tau
	if len(key) == 32 {
		constants = &sigma
	}
	c.state[0] = constants[0]
	c.state[5] = constants[1]
	c.state[10] = constants[2]
	c.state[15] = constants[3]

	for i := 0; i < 4; i++ {
		c.state[1+i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	if len(key) == 32 {
		key = key[16:]
	}
	for i := 0; i < 4; i++ {
		c.state[11+i] = binary.LittleEndian.Uint32(key[4*i:])
	}
}

func (c *Cipher) SetIV(iv []byte) error {
	if !c.keyed {
		return errs.Errorf(errs.InvalidState, "Salsa20: key not set")
	}
	if !c.ValidIVLength(len(iv)) {
		return errs.Errorf(errs.InvalidIVLength,
			"Salsa20: IV of length %d", len(iv))
	}

	c.loadKey(c.key)
	if len(iv) == 24 {
		for i := 0; i < 4; i++ {
			c.state[6+i] = binary.LittleEndian.Uint32(iv[4*i:])
		}
		var sub [8]uint32
		hsalsa20(&sub, &c.state)
		copy(c.state[1:5], sub[:4])
		copy(c.state[11:15], sub[4:])
		iv = iv[16:]
	}
	c.state[6] = binary.LittleEndian.Uint32(iv[0:])
	c.state[7] = binary.LittleEndian.Uint32(iv[4:])
	c.ivSet = true
	return c.Seek(0)
}

// Jumps to the given byte offset in the keystream.
func (c *Cipher) Seek(offset uint64) error {
	if !c.ivSet {
		return errs.Errorf(errs.InvalidState, "Salsa20: IV not set")
	}
	block := offset / blockSize
	c.state[8] = uint32(block)
	c.state[9] = uint32(block >> 32)
	c.refill()
	c.pos = int(offset % blockSize)
	return nil
}

// Computes the next keystream block and advances the counter.
func (c *Cipher) refill() {
	salsa20(&c.buffer, &c.state)
	c.state[8]++
	if c.state[8] == 0 {
		c.state[9]++
	}
	c.pos = 0
}

// XORs src with the keystream into dst.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	if !c.ivSet {
		panic(errs.Errorf(errs.InvalidState, "Salsa20: key not set"))
	}
	for len(src) >= blockSize-c.pos {
		n := blockSize - c.pos
		xorsimd.Bytes(dst[:n], src[:n], c.buffer[c.pos:])
		dst, src = dst[n:], src[n:]
		c.refill()
	}
	if len(src) > 0 {
		xorsimd.Bytes(dst[:len(src)], src, c.buffer[c.pos:c.pos+len(src)])
		c.pos += len(src)
	}
}

func (c *Cipher) Clear() {
	algo.Zeroize(c.key)
	algo.Zeroize(c.buffer[:])
	c.state = [16]uint32{}
	c.key = nil
	c.keyed = false
	c.ivSet = false
	c.pos = 0
}

func quarterRound(x *[16]uint32, a, b, c, d int) {
	x[b] ^= bits.RotateLeft32(x[a]+x[d], 7)
	x[c] ^= bits.RotateLeft32(x[b]+x[a], 9)
	x[d] ^= bits.RotateLeft32(x[c]+x[b], 13)
	x[a] ^= bits.RotateLeft32(x[d]+x[c], 18)
}

func doubleRounds(x *[16]uint32) {
	for i := 0; i < 10; i++ {
		quarterRound(x, 0, 4, 8, 12)
		quarterRound(x, 5, 9, 13, 1)
		quarterRound(x, 10, 14, 2, 6)
		quarterRound(x, 15, 3, 7, 11)

		quarterRound(x, 0, 1, 2, 3)
		quarterRound(x, 5, 6, 7, 4)
		quarterRound(x, 10, 11, 8, 9)
		quarterRound(x, 15, 12, 13, 14)
	}
}

// Salsa20 core: 10 double rounds followed by the feed forward.
func salsa20(out *[blockSize]byte, in *[16]uint32) {
	x := *in
	doubleRounds(&x)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[4*i:], x[i]+in[i])
	}
}

// HSalsa20: the core without feed forward, reduced to 8 words.
func hsalsa20(out *[8]uint32, in *[16]uint32) {
	x := *in
	doubleRounds(&x)
	out[0] = x[0]
	out[1] = x[5]
	out[2] = x[10]
	out[3] = x[15]
	out[4] = x[6]
	out[5] = x[7]
	out[6] = x[8]
	out[7] = x[9]
}
