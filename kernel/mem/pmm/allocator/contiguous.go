package allocator

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm"
	"github.com/codyd51/axle-sub001/kernel/sync"
)

var (
	errPoolAlreadyDescribed = &kernel.Error{Module: "pmm", Message: "contiguous chunk pool has already been described"}
	errPoolNotDescribed     = &kernel.Error{Module: "pmm", Message: "contiguous chunk pool has not been described"}
	errInvalidPoolRange     = &kernel.Error{Module: "pmm", Message: "contiguous chunk pool range must be page-aligned and non-empty"}
	errInvalidChunkSize     = &kernel.Error{Module: "pmm", Message: "contiguous allocation size must be non-zero"}
	errNoContiguousChunk    = &kernel.Error{Module: "pmm", Message: "no free contiguous chunk is large enough"}
)

// Chunk describes a run of physically contiguous frames.
type Chunk struct {
	// Start is the first frame in the chunk.
	Start pmm.Frame

	// Count is the number of frames in the chunk.
	Count uint64
}

// Address returns the physical address of the first byte in the chunk.
func (c Chunk) Address() uintptr {
	return c.Start.Address()
}

// Size returns the chunk length in bytes.
func (c Chunk) Size() mem.Size {
	return mem.Size(c.Count) << mem.PageShift
}

// ContiguousPool serves physically contiguous multi-frame allocations for
// DMA-capable devices out of a range reserved when the memory manager boots.
//
// Allocations are first-fit over the free list in list order. A chunk that
// satisfies a request is shrunk from its start, or removed when the request
// consumes it exactly. Allocations are permanent: devices keep their DMA
// buffers for the lifetime of the kernel, so the pool never frees or
// coalesces chunks.
type ContiguousPool struct {
	lock sync.Spinlock

	described bool
	base      pmm.Frame
	frames    uint64

	free      []Chunk
	allocated []Chunk
}

// Describe records the range [base, base+size) as the pool's backing memory.
// A pool can only be described once.
func (pool *ContiguousPool) Describe(base uintptr, size mem.Size) *kernel.Error {
	if size == 0 || !pmm.IsPageAligned(base) || size%mem.PageSize != 0 {
		return errInvalidPoolRange
	}

	pool.lock.Acquire()
	defer pool.lock.Release()

	if pool.described {
		return errPoolAlreadyDescribed
	}

	pool.described = true
	pool.base = pmm.FrameFromAddress(base)
	pool.frames = size.Pages()
	pool.free = append(pool.free[:0], Chunk{Start: pool.base, Count: pool.frames})
	return nil
}

// Alloc reserves a physically contiguous range of at least size bytes and
// returns its base address. The request is rounded up to a whole number of
// frames.
func (pool *ContiguousPool) Alloc(size mem.Size) (uintptr, *kernel.Error) {
	if size == 0 {
		return 0, errInvalidChunkSize
	}
	// Sizes within a page of the top of the address space wrap around when
	// rounded and can never be satisfied.
	if size.PageAlignUp() < size {
		return 0, errNoContiguousChunk
	}
	want := size.Pages()

	pool.lock.Acquire()
	defer pool.lock.Release()

	if !pool.described {
		return 0, errPoolNotDescribed
	}

	for index := range pool.free {
		chunk := &pool.free[index]
		if chunk.Count < want {
			continue
		}

		allocated := Chunk{Start: chunk.Start, Count: want}
		if chunk.Count == want {
			pool.free = append(pool.free[:index], pool.free[index+1:]...)
		} else {
			chunk.Start += pmm.Frame(want)
			chunk.Count -= want
		}

		pool.allocated = append(pool.allocated, allocated)
		return allocated.Address(), nil
	}

	return 0, errNoContiguousChunk
}

// Described reports whether the pool has a backing range.
func (pool *ContiguousPool) Described() bool {
	pool.lock.Acquire()
	defer pool.lock.Release()
	return pool.described
}

// Range returns the pool's backing range.
func (pool *ContiguousPool) Range() (uintptr, mem.Size) {
	pool.lock.Acquire()
	defer pool.lock.Release()
	return pool.base.Address(), mem.Size(pool.frames) << mem.PageShift
}

// FreeChunks returns a snapshot of the free list in list order.
func (pool *ContiguousPool) FreeChunks() []Chunk {
	pool.lock.Acquire()
	defer pool.lock.Release()
	return append([]Chunk(nil), pool.free...)
}

// AllocatedChunks returns a snapshot of the allocated chunks in allocation
// order.
func (pool *ContiguousPool) AllocatedChunks() []Chunk {
	pool.lock.Acquire()
	defer pool.lock.Release()
	return append([]Chunk(nil), pool.allocated...)
}
