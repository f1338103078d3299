// Package bufpool provides a bounded pool of fixed-size byte buffers shared
// by receive loops.
package bufpool

import (
	"context"
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
	"github.com/roasbeef/agata/internal/ensure"
	"github.com/roasbeef/agata/internal/freelist"
)

// ErrBufferSize is returned when releasing a buffer whose length differs
// from the pool's buffer size.
var ErrBufferSize = errors.New("buffer size mismatch")

// Pool hands out buffers of one size and keeps up to a fixed number of
// released buffers for reuse. When it is empty Acquire allocates; when it
// is full Release discards.
type Pool struct {
	bufferSize int
	free       *freelist.List[[]byte]

	// allocated counts buffers created by this pool.
	allocated atomix.Int64
}

// New returns a pool of bufferSize-byte buffers retaining at most
// maxPoolSize idle buffers.
func New(bufferSize, maxPoolSize int) (*Pool, error) {
	if err := ensure.That(bufferSize > 0, "buffer size",
		"must be positive"); err != nil {

		return nil, err
	}
	if err := ensure.That(maxPoolSize >= 0, "max pool size",
		"must not be negative"); err != nil {

		return nil, err
	}

	p := &Pool{bufferSize: bufferSize}
	p.free = freelist.New(maxPoolSize, func() []byte {
		p.allocated.Add(1)
		return make([]byte, bufferSize)
	})

	return p, nil
}

// BufferSize returns the size of every buffer of the pool.
func (p *Pool) BufferSize() int {
	return p.bufferSize
}

// MaxPoolSize returns the number of idle buffers the pool retains at most.
func (p *Pool) MaxPoolSize() int {
	return p.free.Limit()
}

// Acquire returns a pooled buffer, or a new one if none is idle. The caller
// owns it until Release.
func (p *Pool) Acquire() []byte {
	buf, _ := p.free.Get()
	return buf
}

// Release returns buf to the pool. The caller must not touch buf
// afterwards. A buffer of the wrong size is rejected with ErrBufferSize; a
// buffer beyond the pool's capacity is silently discarded.
func (p *Pool) Release(buf []byte) error {
	if len(buf) != p.bufferSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize,
			len(buf), p.bufferSize)
	}

	if !p.free.Put(buf) {
		log.TraceS(context.Background(), "Buffer pool full, "+
			"discarding buffer", "max_pool_size", p.free.Limit())
	}

	return nil
}

// Allocated returns the number of buffers the pool has ever created.
func (p *Pool) Allocated() int64 {
	return p.allocated.Load()
}

// Pooled returns the number of idle buffers currently retained.
func (p *Pool) Pooled() int64 {
	return int64(p.free.Len())
}
