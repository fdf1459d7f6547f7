// Package mem implements a pooling allocator for key material: small
// buffers are carved from locked, non-dumpable memory and zeroed when
// they are returned.
package mem

import (
	"sort"
	"sync"
	"unsafe"

	"github.com/hashicorp/go-multierror"

	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/internal/logging"
)

const (
	DefaultChunkSize = 64 * 1024
	MaxChunkSize     = 1024 * 1024
)

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}

type Options struct {
	// Size of the chunks requested from the OS.  Rounded up to a whole
	// number of blocks and capped at MaxChunkSize.  Zero means
	// DefaultChunkSize.
	ChunkSize int

	// Use the Go heap instead of locked mappings.
	Heap bool
}

type Stats struct {
	Chunks           int // chunks obtained from the OS or heap
	Blocks           int
	BytesReserved    int // bytes in all chunks
	BytesInUse       int // bytes handed out from blocks, rounded to units
	Allocations      int // outstanding pooled allocations
	LargeAllocations int // outstanding allocations that bypass the pool
}

// A pooling allocator.  Safe for concurrent use.
type Pool struct {
	mux       sync.Mutex
	chunkSize int
	heap      bool

	blocks   []*block // sorted by base address
	chunks   []chunk
	lastUsed int

	inUse int            // units handed out
	count int            // outstanding pooled allocations
	large map[uintptr]int // outstanding large allocations, by size
	closed bool
}

func NewPool(opts Options) *Pool {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	if size > MaxChunkSize {
		size = MaxChunkSize
	}
	size = (size + blockSize - 1) / blockSize * blockSize
	return &Pool{
		chunkSize: size,
		heap:      opts.Heap,
		large:     make(map[uintptr]int),
	}
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// Returns the process-wide pool.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(Options{})
	})
	return defaultPool
}

func sliceAddr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[:1][0]))
}

// Allocates a zeroed buffer of n bytes.  Requests larger than a block
// bypass the pool and are served from the Go heap.
func (p *Pool) Allocate(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errs.Errorf(errs.InvalidArgument, "Pool: cannot allocate %d bytes", n)
	}

	p.mux.Lock()
	defer p.mux.Unlock()

	if p.closed {
		return nil, errs.Errorf(errs.InvalidState, "Pool: allocate after Close")
	}

	if n > blockSize {
		buf := make([]byte, n)
		p.large[sliceAddr(buf)] = n
		return buf, nil
	}

	units := (n + unitSize - 1) / unitSize
	if buf, ok := p.allocateBlocks(n, units); ok {
		return buf, nil
	}
	if err := p.getMoreCore(); err != nil {
		return nil, err
	}
	if buf, ok := p.allocateBlocks(n, units); ok {
		return buf, nil
	}
	return nil, errs.Errorf(errs.OutOfMemory,
		"Pool: no room for %d bytes after growing", n)
}

// Finds room for units units, starting at the block last allocated from.
func (p *Pool) allocateBlocks(n, units int) ([]byte, bool) {
	for i := 0; i < len(p.blocks); i++ {
		idx := (p.lastUsed + i) % len(p.blocks)
		b := p.blocks[idx]
		first, ok := b.alloc(units)
		if !ok {
			continue
		}
		p.lastUsed = idx
		p.inUse += units
		p.count++
		start := first * unitSize
		return b.buf[start : start+n : start+units*unitSize], true
	}
	return nil, false
}

// Obtains a new chunk and splits it into blocks.
func (p *Pool) getMoreCore() error {
	var c chunk
	if !p.heap {
		mc, err := mapChunk(p.chunkSize)
		if err != nil {
			log("Pool: mapping %d bytes failed, falling back to heap: %v",
				p.chunkSize, err)
		} else {
			c = mc
		}
	}
	if c == nil {
		c = &heapChunk{buf: make([]byte, p.chunkSize)}
	}

	buf := c.bytes()
	if len(buf) < blockSize {
		c.release()
		return errs.Errorf(errs.OutOfMemory, "Pool: got a chunk of only %d bytes", len(buf))
	}
	for off := 0; off+blockSize <= len(buf); off += blockSize {
		p.blocks = append(p.blocks, newBlock(buf[off:off+blockSize]))
	}
	sort.Slice(p.blocks, func(i, j int) bool {
		return p.blocks[i].base < p.blocks[j].base
	})
	p.chunks = append(p.chunks, c)
	p.lastUsed = 0
	log("Pool: got %d bytes of more core (%s), %d blocks",
		len(buf), c.kind(), len(p.blocks))
	return nil
}

// Returns buf, which must have been obtained from Allocate, to the pool.
// The buffer is zeroed.
func (p *Pool) Deallocate(buf []byte) error {
	if cap(buf) == 0 {
		return nil
	}
	buf = buf[:cap(buf)]
	ptr := sliceAddr(buf)

	p.mux.Lock()
	defer p.mux.Unlock()

	if size, ok := p.large[ptr]; ok && size == len(buf) {
		for i := range buf {
			buf[i] = 0
		}
		delete(p.large, ptr)
		return nil
	}

	if len(buf)%unitSize == 0 && len(buf) <= blockSize {
		units := len(buf) / unitSize
		i := sort.Search(len(p.blocks), func(i int) bool {
			return p.blocks[i].base > ptr
		}) - 1
		if i >= 0 && p.blocks[i].contains(ptr, units) && p.blocks[i].free(ptr, units) {
			p.inUse -= units
			p.count--
			return nil
		}
	}

	return errs.Errorf(errs.InvalidState,
		"Pool: deallocating %d bytes at %#x that were not allocated here",
		len(buf), ptr)
}

// Releases all memory.  Fails if there are outstanding allocations.
func (p *Pool) Close() error {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.closed {
		return nil
	}
	if p.count != 0 || len(p.large) != 0 {
		return errs.Errorf(errs.InvalidState,
			"Pool: %d allocations never released", p.count+len(p.large))
	}

	var result *multierror.Error
	for _, c := range p.chunks {
		if err := c.release(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	p.chunks, p.blocks = nil, nil
	p.closed = true
	if err := result.ErrorOrNil(); err != nil {
		return errs.Wrapf(err, errs.InternalError, "Pool: releasing memory")
	}
	return nil
}

func (p *Pool) Stats() Stats {
	p.mux.Lock()
	defer p.mux.Unlock()

	s := Stats{
		Chunks:           len(p.chunks),
		Blocks:           len(p.blocks),
		BytesInUse:       p.inUse * unitSize,
		Allocations:      p.count,
		LargeAllocations: len(p.large),
	}
	for _, c := range p.chunks {
		s.BytesReserved += len(c.bytes())
	}
	return s
}
