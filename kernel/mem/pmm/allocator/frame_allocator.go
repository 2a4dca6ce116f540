package allocator

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/physmem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm"
	"github.com/codyd51/axle-sub001/kernel/sync"
)

var (
	errOutOfMemory       = &kernel.Error{Module: "pmm", Message: "out of memory"}
	errInvalidFrame      = &kernel.Error{Module: "pmm", Message: "attempted to free an invalid frame"}
	errFrameNotAllocated = &kernel.Error{Module: "pmm", Message: "attempted to free a frame that is not allocated"}
)

// FrameAllocator hands out single page frames from a FIFO queue of free
// frames. Every frame is zero-filled through the direct map before it is
// returned so no data leaks from its previous owner.
//
// By default FreeFrame trusts its caller: it does not check that the frame
// came from this allocator or that it is not already free. Enabling strict
// mode tracks outstanding frames and rejects such frees.
type FrameAllocator struct {
	lock sync.Spinlock

	queue  frameQueue
	mapper physmem.Mapper

	// totalFrames tracks the number of frames handed to the allocator
	// during initialization.
	totalFrames uint64

	// allocated tracks outstanding frames when strict mode is enabled.
	strict    bool
	allocated map[pmm.Frame]struct{}
}

// init sizes the free queue for capacity frames.
func (alloc *FrameAllocator) init(capacity uint64, mapper physmem.Mapper, strict bool) {
	alloc.queue = newFrameQueue(int(capacity))
	alloc.mapper = mapper
	alloc.strict = strict
	if strict {
		alloc.allocated = make(map[pmm.Frame]struct{}, capacity)
	}
}

// addFrame seeds the allocator with a free frame. It is only invoked while
// the memory manager is being initialized.
func (alloc *FrameAllocator) addFrame(f pmm.Frame) {
	alloc.lock.Acquire()
	alloc.queue.push(f)
	alloc.totalFrames++
	alloc.lock.Release()
}

// AllocFrame reserves the frame at the head of the free queue and returns it
// zero-filled. AllocFrame returns an error if no more frames are available.
func (alloc *FrameAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	alloc.lock.Acquire()
	frame, ok := alloc.queue.pop()
	if ok && alloc.strict {
		alloc.allocated[frame] = struct{}{}
	}
	alloc.lock.Release()

	if !ok {
		return pmm.InvalidFrame, errOutOfMemory
	}

	// The frame is exclusively ours now so it can be scrubbed without
	// holding the lock.
	page, err := alloc.mapper.Map(frame.Address(), mem.PageSize)
	if err != nil {
		alloc.lock.Acquire()
		delete(alloc.allocated, frame)
		alloc.queue.push(frame)
		alloc.lock.Release()
		return pmm.InvalidFrame, err
	}
	mem.Memset(page, 0)

	return frame, nil
}

// FreeFrame returns f to the tail of the free queue.
func (alloc *FrameAllocator) FreeFrame(f pmm.Frame) *kernel.Error {
	if !f.Valid() {
		return errInvalidFrame
	}

	alloc.lock.Acquire()
	defer alloc.lock.Release()

	if alloc.strict {
		if _, outstanding := alloc.allocated[f]; !outstanding {
			return errFrameNotAllocated
		}
		delete(alloc.allocated, f)
	}

	alloc.queue.push(f)
	return nil
}

// FreeCount returns the number of frames that can currently be allocated.
func (alloc *FrameAllocator) FreeCount() uint64 {
	alloc.lock.Acquire()
	defer alloc.lock.Release()
	return uint64(alloc.queue.len())
}

// TotalCount returns the number of frames managed by the allocator.
func (alloc *FrameAllocator) TotalCount() uint64 {
	alloc.lock.Acquire()
	defer alloc.lock.Release()
	return alloc.totalFrames
}
