// Package physmem provides the kernel's direct-mapped view of physical memory.
//
// Every physical address inside the mapped window has an alias in the
// kernel's address space; allocators write through that alias, for example to
// scrub a frame before handing it out.
package physmem

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/mem"
)

var (
	errUnmapped    = &kernel.Error{Module: "physmem", Message: "physical range is not covered by the direct map"}
	errEmptyWindow = &kernel.Error{Module: "physmem", Message: "direct map window must not be empty"}
	errClosed      = &kernel.Error{Module: "physmem", Message: "direct map has been released"}
)

// Mapper returns the kernel alias for a physical address range.
type Mapper interface {
	Map(physAddr uintptr, size mem.Size) ([]byte, *kernel.Error)
}

// Arena is a Mapper that backs the physical window [base, base+size) with a
// single contiguous block of host memory.
type Arena struct {
	base    uintptr
	data    []byte
	release func([]byte) error
}

// NewArena reserves host memory for the physical window [base, base+size).
func NewArena(base uintptr, size mem.Size) (*Arena, error) {
	if size == 0 {
		return nil, errEmptyWindow
	}

	data, err := reserve(int(size))
	if err != nil {
		return nil, err
	}

	return &Arena{base: base, data: data, release: unreserve}, nil
}

// NewArenaFromSlice wraps an existing buffer so that its first byte aliases
// physical address base.
func NewArenaFromSlice(base uintptr, data []byte) *Arena {
	return &Arena{base: base, data: data}
}

// Base returns the first physical address covered by the arena.
func (a *Arena) Base() uintptr { return a.base }

// Size returns the number of bytes covered by the arena.
func (a *Arena) Size() mem.Size { return mem.Size(len(a.data)) }

// Map implements Mapper.
func (a *Arena) Map(physAddr uintptr, size mem.Size) ([]byte, *kernel.Error) {
	if a.data == nil {
		return nil, errClosed
	}

	if physAddr < a.base {
		return nil, errUnmapped
	}

	offset := uint64(physAddr - a.base)
	if offset > uint64(len(a.data)) || uint64(size) > uint64(len(a.data))-offset {
		return nil, errUnmapped
	}

	return a.data[offset : offset+uint64(size) : offset+uint64(size)], nil
}

// Close releases the host memory backing the arena. Calling Close more than
// once has no effect.
func (a *Arena) Close() error {
	data := a.data
	a.data = nil
	if data == nil || a.release == nil {
		return nil
	}
	return a.release(data)
}
