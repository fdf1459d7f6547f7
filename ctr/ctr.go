// Package ctr implements counter mode with a big-endian counter field
// (CTR-BE) over any block cipher.
package ctr

import (
	"encoding/binary"
	"fmt"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/templexxx/xorsimd"
)

// Number of cipher invocations batched per pad, per block the cipher
// prefers to process in parallel.
const parallelMultiplier = 4

// Counter mode stream cipher.  Implements algo.StreamCipher.
type CTR struct {
	cipher    algo.BlockCipher
	blockSize int
	ctrSize   int // width of the counter field at the end of each block
	ctrBlocks int // number of counter blocks per pad

	iv      []byte // nil until SetIV
	counter []byte // ctrBlocks consecutive counter blocks
	pad     []byte // encrypted counter blocks
	padPos  int    // next unused byte of pad
}

// Wraps cipher.  The last ctrSize bytes of each counter block are
// incremented; ctrSize must be between 4 and the block size.
func New(cipher algo.BlockCipher, ctrSize int) (*CTR, error) {
	bs := cipher.BlockSize()
	if ctrSize < 4 || ctrSize > bs {
		return nil, errs.Errorf(errs.InvalidArgument,
			"CTR-BE: invalid counter size %d for %s", ctrSize, cipher.Name())
	}
	ctrBlocks := cipher.ParallelBlocks() * parallelMultiplier
	if ctrBlocks < 1 {
		ctrBlocks = 1
	}
	return &CTR{
		cipher:    cipher,
		blockSize: bs,
		ctrSize:   ctrSize,
		ctrBlocks: ctrBlocks,
		counter:   make([]byte, ctrBlocks*bs),
		pad:       make([]byte, ctrBlocks*bs),
	}, nil
}

func (c *CTR) Name() string {
	if c.ctrSize == c.blockSize {
		return fmt.Sprintf("CTR-BE(%s)", c.cipher.Name())
	}
	return fmt.Sprintf("CTR-BE(%s,%d)", c.cipher.Name(), c.ctrSize)
}

func (c *CTR) KeySpec() algo.KeyLengthSpec { return c.cipher.KeySpec() }
func (c *CTR) ValidIVLength(n int) bool    { return n <= c.blockSize }

// Size of the keystream pad in bytes.
func (c *CTR) PadSize() int { return len(c.pad) }

func (c *CTR) Clone() algo.StreamCipher {
	ret, _ := New(c.cipher.Clone(), c.ctrSize)
	return ret
}

// Keys the underlying cipher.  SetIV must be called before use.
func (c *CTR) SetKey(key []byte) error {
	if err := c.cipher.SetKey(key); err != nil {
		return err
	}
	c.iv = nil
	return nil
}

// Sets the initial counter block.  The IV is right-aligned in the block
// and padded with zeroes on the left.
func (c *CTR) SetIV(iv []byte) error {
	if !c.ValidIVLength(len(iv)) {
		return errs.Errorf(errs.InvalidIVLength,
			"%s: IV of length %d", c.Name(), len(iv))
	}
	c.iv = make([]byte, c.blockSize)
	copy(c.iv[c.blockSize-len(iv):], iv)
	return c.Seek(0)
}

// Jumps to the given byte offset of the keystream.
func (c *CTR) Seek(offset uint64) error {
	if c.iv == nil {
		return errs.Errorf(errs.InvalidState, "%s: IV not set", c.Name())
	}
	bs := c.blockSize
	padSize := uint64(len(c.pad))
	baseCounter := uint64(c.ctrBlocks) * (offset / padSize)

	algo.Zeroize(c.counter)
	copy(c.counter, c.iv)

	// counter blocks IV, IV+1, ..., IV+ctrBlocks-1
	for i := 1; i < c.ctrBlocks; i++ {
		blk := c.counter[i*bs : (i+1)*bs]
		copy(blk, c.counter[(i-1)*bs:i*bs])
		for j := 0; j < c.ctrSize; j++ {
			blk[bs-1-j]++
			if blk[bs-1-j] != 0 {
				break
			}
		}
	}

	if baseCounter > 0 {
		c.addCounter(baseCounter)
	}
	algo.EncryptBlocks(c.cipher, c.pad, c.counter)
	c.padPos = int(offset % padSize)
	return nil
}

// Adds n to the counter field of every counter block.
func (c *CTR) addCounter(n uint64) {
	bs := c.blockSize
	switch c.ctrSize {
	case 4:
		for i := 0; i < c.ctrBlocks; i++ {
			field := c.counter[bs*(i+1)-4 : bs*(i+1)]
			binary.BigEndian.PutUint32(field,
				binary.BigEndian.Uint32(field)+uint32(n))
		}
	case 8:
		for i := 0; i < c.ctrBlocks; i++ {
			field := c.counter[bs*(i+1)-8 : bs*(i+1)]
			binary.BigEndian.PutUint64(field,
				binary.BigEndian.Uint64(field)+n)
		}
	case 16:
		for i := 0; i < c.ctrBlocks; i++ {
			field := c.counter[bs*(i+1)-16 : bs*(i+1)]
			hi := binary.BigEndian.Uint64(field[:8])
			lo := binary.BigEndian.Uint64(field[8:])
			lo += n
			if lo < n {
				hi++
			}
			binary.BigEndian.PutUint64(field[:8], hi)
			binary.BigEndian.PutUint64(field[8:], lo)
		}
	default:
		for i := 0; i < c.ctrBlocks; i++ {
			local := n
			carry := uint16(byte(local))
			for j := 0; j < c.ctrSize; j++ {
				off := i*bs + bs - 1 - j
				cnt := uint16(c.counter[off]) + carry
				c.counter[off] = byte(cnt)
				local >>= 8
				carry = cnt>>8 + uint16(byte(local))
			}
		}
	}
}

// Advances to the next pad.
func (c *CTR) refill() {
	c.addCounter(uint64(c.ctrBlocks))
	algo.EncryptBlocks(c.cipher, c.pad, c.counter)
	c.padPos = 0
}

// XORs src with the keystream into dst.  Panics if SetIV has not been
// called.
func (c *CTR) XORKeyStream(dst, src []byte) {
	if c.iv == nil {
		panic(errs.Errorf(errs.InvalidState, "%s: IV not set", c.Name()))
	}
	if len(dst) < len(src) {
		panic(errs.Errorf(errs.InvalidArgument, "%s: output smaller than input", c.Name()))
	}
	padSize := len(c.pad)

	if c.padPos > 0 {
		avail := padSize - c.padPos
		take := len(src)
		if take > avail {
			take = avail
		}
		xorsimd.Bytes(dst[:take], src[:take], c.pad[c.padPos:c.padPos+take])
		dst, src = dst[take:], src[take:]
		c.padPos += take
		if take == avail {
			c.refill()
		}
	}

	for len(src) >= padSize {
		xorsimd.Bytes(dst[:padSize], src[:padSize], c.pad)
		dst, src = dst[padSize:], src[padSize:]
		c.refill()
	}

	if len(src) > 0 {
		xorsimd.Bytes(dst[:len(src)], src, c.pad[:len(src)])
		c.padPos += len(src)
	}
}

func (c *CTR) Clear() {
	c.cipher.Clear()
	algo.Zeroize(c.counter)
	algo.Zeroize(c.pad)
	c.iv = nil
	c.padPos = 0
}
