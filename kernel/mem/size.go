// Package mem defines memory sizes and the page geometry shared by the
// physical memory manager.
package mem

import "strconv"

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Pages returns the number of pages that are required for storing this size.
func (s Size) Pages() uint64 {
	return uint64(s.PageAlignUp() >> PageShift)
}

// PageAlignUp rounds s up to the next multiple of PageSize.
func (s Size) PageAlignUp() Size {
	return (s + PageSize - 1) &^ (PageSize - 1)
}

// String returns s in the largest unit that divides it evenly.
func (s Size) String() string {
	switch {
	case s != 0 && s%Gb == 0:
		return strconv.FormatUint(uint64(s/Gb), 10) + "Gb"
	case s != 0 && s%Mb == 0:
		return strconv.FormatUint(uint64(s/Mb), 10) + "Mb"
	case s != 0 && s%Kb == 0:
		return strconv.FormatUint(uint64(s/Kb), 10) + "Kb"
	default:
		return strconv.FormatUint(uint64(s), 10) + "b"
	}
}

// AlignUp rounds addr up to the next page boundary.
func AlignUp(addr uint64) uint64 {
	pageSizeMinus1 := uint64(PageSize - 1)
	return (addr + pageSizeMinus1) & ^pageSizeMinus1
}

// AlignDown rounds addr down to the page boundary that contains it.
func AlignDown(addr uint64) uint64 {
	return addr & ^uint64(PageSize-1)
}
