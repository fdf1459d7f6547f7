package mem

import (
	"github.com/edsrzf/mmap-go"
	"github.com/hashicorp/go-multierror"
)

// Memory obtained from the operating system (or the Go heap) from
// which blocks are carved.
type chunk interface {
	bytes() []byte
	release() error
	kind() string
}

// Anonymous private mapping, locked in memory and excluded from core
// dumps where the OS lets us.
type mappedChunk struct {
	m      mmap.MMap
	locked bool
}

func mapChunk(size int) (*mappedChunk, error) {
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, err
	}
	c := &mappedChunk{m: m}
	if err := m.Lock(); err != nil {
		log("Pool: could not lock %d bytes in memory: %v", size, err)
	} else {
		c.locked = true
	}
	if err := adviseNoDump(m); err != nil {
		log("Pool: madvise failed: %v", err)
	}
	return c, nil
}

func (c *mappedChunk) bytes() []byte { return c.m }

func (c *mappedChunk) kind() string {
	if c.locked {
		return "locked mapping"
	}
	return "mapping"
}

func (c *mappedChunk) release() error {
	var result *multierror.Error
	for i := range c.m {
		c.m[i] = 0
	}
	if c.locked {
		if err := c.m.Unlock(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := c.m.Unmap(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type heapChunk struct {
	buf []byte
}

func (c *heapChunk) bytes() []byte { return c.buf }
func (c *heapChunk) kind() string  { return "heap" }

func (c *heapChunk) release() error {
	for i := range c.buf {
		c.buf[i] = 0
	}
	c.buf = nil
	return nil
}
