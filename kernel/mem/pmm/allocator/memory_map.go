package allocator

import (
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/codyd51/axle-sub001/kernel/mem"
)

// printMemoryMap prints out the system's memory map as reported by the
// bootloader.
func (m *Manager) printMemoryMap(regions []multiboot.MemoryMapEntry) {
	kfmt.Printf("[pmm] system memory map:\n")
	var totalFree mem.Size
	for _, region := range regions {
		kfmt.Printf("\t[0x%010x - 0x%010x], size: %10d, type: %s\n", region.PhysAddress, region.PhysAddress+region.Length, region.Length, region.Type.String())

		if region.Type == multiboot.MemAvailable {
			totalFree += mem.Size(region.Length)
		}
	}
	kfmt.Printf("[pmm] available memory: %dKb\n", uint64(totalFree/mem.Kb))
	kfmt.Printf("[pmm] contiguous pool size: %s, hidden pages: %d\n", m.cfg.ContiguousPoolSize, len(m.cfg.HiddenPages))
}

// UsableSpan returns the smallest physical range that covers every available
// region in the memory map. Hosted boot code sizes the direct map with it.
func UsableSpan(regions []multiboot.MemoryMapEntry) (start, end uint64) {
	start = ^uint64(0)
	for _, region := range regions {
		if region.Type != multiboot.MemAvailable || region.Length == 0 {
			continue
		}
		regionEnd := region.PhysAddress + region.Length
		if regionEnd < region.PhysAddress {
			continue
		}
		if s := mem.AlignDown(region.PhysAddress); s < start {
			start = s
		}
		e := mem.AlignUp(regionEnd)
		if e < regionEnd {
			e = mem.AlignDown(regionEnd)
		}
		if e > end {
			end = e
		}
	}

	if end == 0 {
		return 0, 0
	}
	return start, end
}
