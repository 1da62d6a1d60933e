// Package pool provides a sync.Pool-backed default for gearr.PayloadAllocator
// and gearr.PayloadDeallocator, sized for connection receive scratch buffers.
package pool

import (
	"sync"

	"github.com/zy643208/gearmand/gearr"
)

// BufferPool recycles []byte buffers of a fixed capacity class. It
// satisfies both gearr.PayloadAllocator and gearr.PayloadDeallocator so a
// single value can be installed via Engine.SetWorkloadAllocatorSink.
type BufferPool struct {
	pool sync.Pool
}

var _ gearr.PayloadAllocator = (*BufferPool)(nil)
var _ gearr.PayloadDeallocator = (*BufferPool)(nil)

// New creates a BufferPool whose Get-path allocates buffers no smaller
// than minCap when the pool is empty.
func New(minCap int) *BufferPool {
	bp := &BufferPool{}
	bp.pool.New = func() any {
		return make([]byte, minCap)
	}
	return bp
}

// Allocate returns a buffer of at least size bytes, reused from the pool
// when one of sufficient capacity is available.
func (bp *BufferPool) Allocate(size int) []byte {
	buf := bp.pool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// Deallocate returns buf to the pool for reuse. Callers must not retain
// buf after this call.
func (bp *BufferPool) Deallocate(buf []byte) {
	bp.pool.Put(buf[:cap(buf)])
}
