package cryptocore

import (
	"crypto/cipher"
	"encoding"
	"encoding/binary"
	"hash"

	"github.com/templexxx/xorsimd"
	"golang.org/x/crypto/salsa20/salsa"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Turns a constructor such as aes.NewCipher into an algo.BlockCipher.
type blockCipherAdapter struct {
	name     string
	spec     algo.KeyLengthSpec
	bs       int
	parallel int
	newFunc  func(key []byte) (cipher.Block, error)
	block    cipher.Block
}

func (c *blockCipherAdapter) Name() string                { return c.name }
func (c *blockCipherAdapter) KeySpec() algo.KeyLengthSpec { return c.spec }
func (c *blockCipherAdapter) BlockSize() int              { return c.bs }
func (c *blockCipherAdapter) ParallelBlocks() int         { return c.parallel }
func (c *blockCipherAdapter) Clear()                      { c.block = nil }

func (c *blockCipherAdapter) Clone() algo.BlockCipher {
	ret := *c
	ret.block = nil
	return &ret
}

func (c *blockCipherAdapter) SetKey(key []byte) error {
	if err := algo.CheckKeyLength(c.name, c.spec, key); err != nil {
		return err
	}
	block, err := c.newFunc(key)
	if err != nil {
		return errs.Wrapf(err, errs.InvalidKeyLength, "%s: SetKey", c.name)
	}
	c.block = block
	return nil
}

func (c *blockCipherAdapter) keyed() cipher.Block {
	if c.block == nil {
		panic(errs.Errorf(errs.InvalidState, "%s: key not set", c.name))
	}
	return c.block
}

func (c *blockCipherAdapter) Encrypt(dst, src []byte) { c.keyed().Encrypt(dst, src) }
func (c *blockCipherAdapter) Decrypt(dst, src []byte) { c.keyed().Decrypt(dst, src) }

// Turns a constructor such as sha256.New into an algo.HashFunction.
type hashAdapter struct {
	hash.Hash
	name    string
	newFunc func() hash.Hash
	written bool
}

func newHashAdapter(name string, newFunc func() hash.Hash) *hashAdapter {
	return &hashAdapter{Hash: newFunc(), name: name, newFunc: newFunc}
}

func (h *hashAdapter) Name() string { return h.name }

func (h *hashAdapter) Write(p []byte) (int, error) {
	h.written = true
	return h.Hash.Write(p)
}

func (h *hashAdapter) Reset() {
	h.written = false
	h.Hash.Reset()
}

func (h *hashAdapter) Clear() {
	h.Reset()
}

// Copies the state through encoding.BinaryMarshaler.  Panics if the
// underlying hash does not support it and data has been written.
func (h *hashAdapter) Clone() algo.HashFunction {
	ret := newHashAdapter(h.name, h.newFunc)
	if !h.written {
		return ret
	}
	m, ok1 := h.Hash.(encoding.BinaryMarshaler)
	u, ok2 := ret.Hash.(encoding.BinaryUnmarshaler)
	if !ok1 || !ok2 {
		panic(errs.Errorf(errs.InvalidState, "%s: cannot copy hash state", h.name))
	}
	state, err := m.MarshalBinary()
	if err == nil {
		err = u.UnmarshalBinary(state)
	}
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "%s: cannot copy hash state", h.name))
	}
	ret.written = true
	return ret
}

// Salsa20 with 256-bit keys through golang.org/x/crypto/salsa20/salsa.
type xcryptoSalsa20 struct {
	key     [32]byte
	input   [16]byte // nonce followed by the little-endian block counter
	counter uint64   // next block
	buf     [64]byte
	pos     int
	keyed   bool
}

func newXCryptoSalsa20() *xcryptoSalsa20 {
	return &xcryptoSalsa20{pos: 64}
}

func (c *xcryptoSalsa20) Name() string                { return "Salsa20" }
func (c *xcryptoSalsa20) KeySpec() algo.KeyLengthSpec { return algo.FixedKeyLength(32) }
func (c *xcryptoSalsa20) ValidIVLength(n int) bool    { return n == 8 }
func (c *xcryptoSalsa20) Clone() algo.StreamCipher    { return newXCryptoSalsa20() }

func (c *xcryptoSalsa20) SetKey(key []byte) error {
	if err := algo.CheckKeyLength(c.Name(), c.KeySpec(), key); err != nil {
		return err
	}
	copy(c.key[:], key)
	c.keyed = true
	return c.SetIV(make([]byte, 8))
}

func (c *xcryptoSalsa20) SetIV(iv []byte) error {
	if !c.ValidIVLength(len(iv)) {
		return errs.Errorf(errs.InvalidIVLength, "Salsa20: IV of length %d", len(iv))
	}
	copy(c.input[:8], iv)
	return c.Seek(0)
}

func (c *xcryptoSalsa20) Seek(offset uint64) error {
	if !c.keyed {
		return errs.Errorf(errs.InvalidState, "Salsa20: key not set")
	}
	c.counter = offset / 64
	c.refill()
	c.pos = int(offset % 64)
	return nil
}

func (c *xcryptoSalsa20) refill() {
	var zero [64]byte
	binary.LittleEndian.PutUint64(c.input[8:], c.counter)
	salsa.XORKeyStream(c.buf[:], zero[:], &c.input, &c.key)
	c.counter++
	c.pos = 0
}

func (c *xcryptoSalsa20) XORKeyStream(dst, src []byte) {
	if !c.keyed {
		panic(errs.Errorf(errs.InvalidState, "Salsa20: key not set"))
	}
	for len(src) > 0 {
		if c.pos == len(c.buf) {
			c.refill()
		}
		n := len(c.buf) - c.pos
		if n > len(src) {
			n = len(src)
		}
		xorsimd.Bytes(dst[:n], src[:n], c.buf[c.pos:c.pos+n])
		dst, src = dst[n:], src[n:]
		c.pos += n
	}
}

func (c *xcryptoSalsa20) Clear() {
	*c = *newXCryptoSalsa20()
}
