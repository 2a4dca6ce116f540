package abi

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/core"
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm"
)

var errMisalignedFrame = &kernel.Error{Module: "pmm", Message: "freed address is not page-aligned"}

// PmmInit initializes the memory manager from the memory map tag of a
// multiboot2 boot information blob. A malformed blob or memory map halts the
// kernel.
func PmmInit(c *core.Core, bootInfo []byte) {
	info, err := multiboot.Parse(bootInfo)
	if err != nil {
		kfmt.Panic(err)
		return
	}

	if err = c.Memory.Init(info.MemoryMap()); err != nil {
		kfmt.Panic(err)
	}
}

// PmmAllocFrame returns the physical address of a zero-filled frame. Running
// out of frames halts the kernel.
func PmmAllocFrame(c *core.Core) uintptr {
	frame, err := c.Memory.AllocFrame()
	if err != nil {
		kfmt.Panic(err)
		return 0
	}
	return frame.Address()
}

// PmmFreeFrame returns the frame at physAddr to the allocator. Freeing an
// address that is not page-aligned halts the kernel.
func PmmFreeFrame(c *core.Core, physAddr uintptr) {
	if !pmm.IsPageAligned(physAddr) {
		kfmt.Panic(errMisalignedFrame)
		return
	}

	if err := c.Memory.FreeFrame(pmm.FrameFromAddress(physAddr)); err != nil {
		kfmt.Panic(err)
	}
}

// PmmAllocContiguous returns the physical address of a contiguous range of
// at least size bytes. Failing to find one halts the kernel.
func PmmAllocContiguous(c *core.Core, size uint64) uintptr {
	addr, err := c.Memory.AllocContiguous(mem.Size(size))
	if err != nil {
		kfmt.Panic(err)
		return 0
	}
	return addr
}
