// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-bucketed, sync.Pool-backed implementation of api.BufferPool.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/gogojames/lightweb/api"
)

// bucketSizes are the capacities a caller can request; Get rounds up to
// the smallest bucket that fits. Sized for the request line/header buffer
// (4 KiB), a multipart read chunk (8 KiB, matching the original chunked
// copy), and WebSocket frame payloads up to the 1 MiB frame cap.
var bucketSizes = []int{4 << 10, 8 << 10, 64 << 10, 256 << 10, 1 << 20}

type buffer struct {
	data  []byte
	pool  *BufferPool
	index int
}

func (b *buffer) Bytes() []byte { return b.data }

func (b *buffer) Slice(from, to int) api.Buffer {
	return &buffer{data: b.data[from:to], pool: b.pool, index: b.index}
}

func (b *buffer) Copy() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *buffer) Release() {
	if b.pool == nil {
		return
	}
	b.pool.put(b)
}

// BufferPool is a process-wide pool of reusable byte buffers, bucketed by
// size class. It has no NUMA or CPU-affinity concept: this server is a
// single process that never pins goroutines to cores.
type BufferPool struct {
	buckets []sync.Pool

	totalAlloc int64
	totalReuse int64
	inUse      int64
}

// NewBufferPool constructs an empty BufferPool.
func NewBufferPool() *BufferPool {
	p := &BufferPool{buckets: make([]sync.Pool, len(bucketSizes))}
	for i, size := range bucketSizes {
		sz := size
		idx := i
		p.buckets[i].New = func() any {
			atomic.AddInt64(&p.totalAlloc, 1)
			return &buffer{data: make([]byte, sz), index: idx}
		}
	}
	return p
}

func bucketFor(size int) int {
	for i, sz := range bucketSizes {
		if size <= sz {
			return i
		}
	}
	return len(bucketSizes) - 1
}

// Get returns a buffer with capacity of at least size bytes, truncated
// (via Bytes()[:size]) to exactly size when it fits a standard bucket.
func (p *BufferPool) Get(size int) api.Buffer {
	idx := bucketFor(size)
	v := p.buckets[idx].Get()
	b := v.(*buffer)
	b.pool = p
	if size <= len(b.data) {
		b.data = b.data[:size]
	} else {
		// larger than the biggest bucket: allocate a one-off buffer that
		// is simply dropped (not returned to a bucket) on Release.
		atomic.AddInt64(&p.totalAlloc, 1)
		b = &buffer{data: make([]byte, size), pool: p, index: -1}
	}
	atomic.AddInt64(&p.inUse, 1)
	return b
}

func (p *BufferPool) put(b *buffer) {
	atomic.AddInt64(&p.inUse, -1)
	if b.index < 0 {
		return
	}
	b.data = b.data[:cap(b.data)]
	atomic.AddInt64(&p.totalReuse, 1)
	p.buckets[b.index].Put(b)
}

// Put returns a buffer obtained from Get back to the pool.
func (p *BufferPool) Put(b api.Buffer) {
	if bb, ok := b.(*buffer); ok {
		bb.Release()
	}
}

// Stats reports allocation/reuse counters for the metrics sink.
func (p *BufferPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: atomic.LoadInt64(&p.totalAlloc),
		TotalReuse: atomic.LoadInt64(&p.totalReuse),
		InUse:      atomic.LoadInt64(&p.inUse),
	}
}
