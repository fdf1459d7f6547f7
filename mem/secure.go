package mem

import (
	"sync"
)

// A buffer for secrets, allocated from a Pool.
type SecureBuffer struct {
	mux  sync.Mutex
	pool *Pool
	buf  []byte
}

// Allocates a buffer of n bytes from pool, or from the default pool if
// pool is nil.
func NewSecureBuffer(pool *Pool, n int) (*SecureBuffer, error) {
	if pool == nil {
		pool = Default()
	}
	buf, err := pool.Allocate(n)
	if err != nil {
		return nil, err
	}
	return &SecureBuffer{pool: pool, buf: buf}, nil
}

// Returns the contents.  Nil after Release.
func (sb *SecureBuffer) Bytes() []byte {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	return sb.buf
}

func (sb *SecureBuffer) Len() int {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	return len(sb.buf)
}

// Zeroes the buffer and returns it to its pool.  Calling Release more
// than once is harmless.
func (sb *SecureBuffer) Release() error {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	if sb.buf == nil {
		return nil
	}
	err := sb.pool.Deallocate(sb.buf)
	sb.buf = nil
	return err
}
