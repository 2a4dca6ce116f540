// Package multiboot decodes the multiboot2 information block handed to the
// kernel by the bootloader.
package multiboot

import (
	"encoding/binary"

	"github.com/codyd51/axle-sub001/kernel"
)

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
	tagElfSymbols
	tagApmTable
)

const (
	// infoHeaderSize is the size of the total_size/reserved header that
	// precedes the first tag.
	infoHeaderSize = 8

	// tagHeaderSize is the size of the type/size header that precedes each
	// tag's contents. Tags always start at 8-byte aligned offsets.
	tagHeaderSize = 8

	// mmapHeaderSize is the size of the entry_size/entry_version header at
	// the start of the memory map tag.
	mmapHeaderSize = 8

	// mmapEntrySize is the size of a version 0 memory map entry.
	mmapEntrySize = 24
)

var (
	errMalformedInfo = &kernel.Error{Module: "multiboot", Message: "malformed multiboot info"}
	errMissingEndTag = &kernel.Error{Module: "multiboot", Message: "multiboot info is missing the end tag"}
	errBadMmapEntry  = &kernel.Error{Module: "multiboot", Message: "memory map entry size is too small"}
)

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown will be mapped to MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a memory region entry, namely its physical address,
// its length and its type.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	PhysAddress uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type MemoryEntryType
}

// MemRegionVisitor defies a visitor function that gets invoked by VisitMemRegions
// for each memory region provided by the boot loader. The visitor must return true
// to continue or false to abort the scan.
type MemRegionVisitor func(entry *MemoryMapEntry) bool

// Info is a decoded view over a multiboot2 information block.
type Info struct {
	data []byte

	// tags maps each tag type to the offset and length of its contents.
	// Only the first tag of each type is recorded.
	tags map[tagType]tagSpan
}

type tagSpan struct {
	offset, size uint32
}

// Parse validates the tag structure of a multiboot2 information block. The
// returned Info keeps a reference to data.
func Parse(data []byte) (*Info, *kernel.Error) {
	if len(data) < infoHeaderSize {
		return nil, errMalformedInfo
	}

	totalSize := binary.LittleEndian.Uint32(data[0:])
	if totalSize < infoHeaderSize+tagHeaderSize || uint64(totalSize) > uint64(len(data)) {
		return nil, errMalformedInfo
	}

	info := &Info{data: data[:totalSize], tags: make(map[tagType]tagSpan)}
	for curPtr := uint32(infoHeaderSize); ; {
		if curPtr+tagHeaderSize > totalSize {
			return nil, errMissingEndTag
		}

		tag := tagType(binary.LittleEndian.Uint32(data[curPtr:]))
		size := binary.LittleEndian.Uint32(data[curPtr+4:])
		if size < tagHeaderSize || uint64(curPtr)+uint64(size) > uint64(totalSize) {
			return nil, errMalformedInfo
		}

		if tag == tagMbSectionEnd {
			break
		}

		if _, seen := info.tags[tag]; !seen {
			info.tags[tag] = tagSpan{offset: curPtr + tagHeaderSize, size: size - tagHeaderSize}
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += (size + 7) &^ 7
	}

	if span, ok := info.tags[tagMemoryMap]; ok {
		if span.size < mmapHeaderSize {
			return nil, errMalformedInfo
		}
		if entrySize := binary.LittleEndian.Uint32(data[span.offset:]); entrySize < mmapEntrySize-4 {
			return nil, errBadMmapEntry
		}
	}

	return info, nil
}

// findTagByType returns the contents of the first tag with the given type or
// nil if the tag is not present.
func (info *Info) findTagByType(tagType tagType) []byte {
	span, ok := info.tags[tagType]
	if !ok {
		return nil
	}
	return info.data[span.offset : span.offset+span.size]
}

// VisitMemRegions will invoke the supplied visitor for each memory region that
// is defined by the multiboot info data that we received from the bootloader.
func (info *Info) VisitMemRegions(visitor MemRegionVisitor) {
	contents := info.findTagByType(tagMemoryMap)
	if len(contents) < mmapHeaderSize {
		return
	}

	entrySize := binary.LittleEndian.Uint32(contents[0:])
	var entry MemoryMapEntry
	for curPtr := uint32(mmapHeaderSize); curPtr+entrySize <= uint32(len(contents)); curPtr += entrySize {
		entry.PhysAddress = binary.LittleEndian.Uint64(contents[curPtr:])
		entry.Length = binary.LittleEndian.Uint64(contents[curPtr+8:])
		entry.Type = MemoryEntryType(binary.LittleEndian.Uint32(contents[curPtr+16:]))

		// Mark unknown entry types as reserved
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(&entry) {
			return
		}
	}
}

// MemoryMap returns a copy of all memory regions reported by the bootloader.
func (info *Info) MemoryMap() []MemoryMapEntry {
	var regions []MemoryMapEntry
	info.VisitMemRegions(func(entry *MemoryMapEntry) bool {
		regions = append(regions, *entry)
		return true
	})
	return regions
}

// BootLoaderName returns the name reported by the bootloader or an empty
// string if the tag is not present.
func (info *Info) BootLoaderName() string {
	return cString(info.findTagByType(tagBootLoaderName))
}

// CmdLine returns the kernel command line or an empty string if the tag is
// not present.
func (info *Info) CmdLine() string {
	return cString(info.findTagByType(tagBootCmdLine))
}

func cString(b []byte) string {
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
