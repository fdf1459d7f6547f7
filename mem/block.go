package mem

import (
	"math/bits"
	"unsafe"
)

const (
	unitSize   = 64                   // bytes per bitmap bit
	bitmapSize = 64                   // units per block
	blockSize  = unitSize * bitmapSize // bytes per block
)

// A blockSize region of backing memory whose units are tracked by a
// bitmap; bit i set means unit i is in use.
type block struct {
	base   uintptr
	buf    []byte
	bitmap uint64
}

func newBlock(buf []byte) *block {
	return &block{
		base: uintptr(unsafe.Pointer(&buf[0])),
		buf:  buf[:blockSize:blockSize],
	}
}

func unitMask(n int) uint64 {
	if n == bitmapSize {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// Reserves n consecutive free units.  Returns the index of the first.
func (b *block) alloc(n int) (int, bool) {
	if n <= 0 || n > bitmapSize || b.bitmap == ^uint64(0) {
		return 0, false
	}
	if bits.OnesCount64(^b.bitmap) < n {
		return 0, false
	}
	mask := unitMask(n)
	if b.bitmap == 0 {
		b.bitmap = mask
		return 0, true
	}
	for i := 0; i+n <= bitmapSize; i++ {
		if b.bitmap&(mask<<uint(i)) == 0 {
			b.bitmap |= mask << uint(i)
			return i, true
		}
	}
	return 0, false
}

// Whether the n units starting at ptr lie within this block.
func (b *block) contains(ptr uintptr, n int) bool {
	return ptr >= b.base && ptr+uintptr(n*unitSize) <= b.base+blockSize
}

// Releases the n units starting at ptr and zeroes them.  Returns false
// if ptr is misaligned or any of the units is not in use.
func (b *block) free(ptr uintptr, n int) bool {
	off := ptr - b.base
	if off%unitSize != 0 {
		return false
	}
	first := int(off / unitSize)
	mask := unitMask(n) << uint(first)
	if b.bitmap&mask != mask {
		return false
	}
	region := b.buf[first*unitSize : (first+n)*unitSize]
	for i := range region {
		region[i] = 0
	}
	b.bitmap &^= mask
	return true
}

func (b *block) empty() bool {
	return b.bitmap == 0
}
