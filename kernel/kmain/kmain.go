// Package kmain brings up the resource core from the boot information handed
// over by the bootloader.
package kmain

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/abi"
	"github.com/codyd51/axle-sub001/kernel/core"
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/physmem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm/allocator"
)

var (
	errNoDirectMap = &kernel.Error{Module: "kmain", Message: "boot memory map has no region to direct-map"}
)

// Kernel is a booted kernel instance.
type Kernel struct {
	*core.Core

	// Info is the parsed boot information.
	Info *multiboot.Info

	arena *physmem.Arena
}

// Boot parses the multiboot2 information block, maps a physical window that
// covers every available memory region, builds the kernel Core and
// initializes the physical memory manager from the boot memory map.
//
// Errors that occur before the Core exists are returned to the caller; a
// memory map that the memory manager rejects halts the kernel, as it would
// on real hardware.
func Boot(bootInfo []byte, cfg allocator.Config) (*Kernel, error) {
	info, err := multiboot.Parse(bootInfo)
	if err != nil {
		return nil, err
	}

	if name := info.BootLoaderName(); name != "" {
		kfmt.Printf("[kmain] booted by %s\n", name)
	}
	if cmdLine := info.CmdLine(); cmdLine != "" {
		kfmt.Printf("[kmain] command line: %s\n", cmdLine)
	}

	start, end := allocator.UsableSpan(info.MemoryMap())
	if end <= start {
		return nil, errNoDirectMap
	}

	arena, arenaErr := physmem.NewArena(uintptr(start), mem.Size(end-start))
	if arenaErr != nil {
		return nil, arenaErr
	}
	kfmt.Printf("[kmain] direct map: [0x%x - 0x%x]\n", start, end)

	k := &Kernel{
		Core:  core.New(cfg, arena),
		Info:  info,
		arena: arena,
	}
	abi.PmmInit(k.Core, bootInfo)

	return k, nil
}

// Shutdown releases the host memory backing the physical window. The kernel
// must not be used afterwards.
func (k *Kernel) Shutdown() error {
	return k.arena.Close()
}
