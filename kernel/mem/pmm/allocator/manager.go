// Package allocator implements the physical memory manager: a single-frame
// allocator and a pool of physically contiguous chunks, both seeded from the
// memory map reported by the bootloader.
package allocator

import (
	"sync/atomic"

	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/physmem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm"
)

const (
	// DefaultContiguousPoolSize is the amount of memory reserved for
	// physically contiguous allocations.
	DefaultContiguousPoolSize = 128 * mem.Mb

	stateUninitialized uint32 = iota
	stateInitializing
	stateReady
)

var (
	// DefaultHiddenPages lists the pages that hold the bootstrap code and
	// data for secondary CPUs. They are never handed out.
	DefaultHiddenPages = []uintptr{0x8000, 0x9000}

	errAlreadyInitialized = &kernel.Error{Module: "pmm", Message: "physical memory manager is already initialized"}
	errNotInitialized     = &kernel.Error{Module: "pmm", Message: "physical memory manager is not initialized"}
	errMalformedMemoryMap = &kernel.Error{Module: "pmm", Message: "malformed memory map"}
	errNoUsableMemory     = &kernel.Error{Module: "pmm", Message: "memory map reports no usable memory"}
	errInvalidPoolSize    = &kernel.Error{Module: "pmm", Message: "contiguous pool size does not fit in the address space"}
)

// Config controls how the memory map is carved up.
type Config struct {
	// ContiguousPoolSize is the size of the range reserved for contiguous
	// allocations. A zero size disables the pool.
	ContiguousPoolSize mem.Size

	// HiddenPages lists physical pages that are excluded from allocation.
	HiddenPages []uintptr

	// StrictFree enables double-free and foreign-frame detection in
	// FreeFrame.
	StrictFree bool
}

// DefaultConfig returns the configuration used when booting real hardware.
func DefaultConfig() Config {
	return Config{
		ContiguousPoolSize: DefaultContiguousPoolSize,
		HiddenPages:        append([]uintptr(nil), DefaultHiddenPages...),
	}
}

// Stats is a snapshot of the memory manager counters.
type Stats struct {
	TotalFrames  uint64
	FreeFrames   uint64
	HiddenFrames uint64

	PoolEnabled    bool
	PoolBase       uintptr
	PoolSize       mem.Size
	PoolFree       mem.Size
	PoolAllocCount int
}

// span is a page-aligned physical range [start, end).
type span struct {
	start, end uint64
}

func (s span) pages() uint64 {
	return (s.end - s.start) >> mem.PageShift
}

// Manager is the physical memory manager. It is initialized exactly once from
// the boot memory map; afterwards frames and contiguous chunks can be
// requested concurrently.
type Manager struct {
	cfg    Config
	mapper physmem.Mapper
	state  uint32

	hiddenFrames uint64

	frames     FrameAllocator
	contiguous ContiguousPool
}

// NewManager returns an uninitialized Manager that scrubs frames through
// mapper.
func NewManager(cfg Config, mapper physmem.Mapper) *Manager {
	return &Manager{cfg: cfg, mapper: mapper}
}

// Init turns the boot memory map into allocatable frames and the contiguous
// chunk pool. Only regions flagged as available are used; their extents are
// rounded inwards to page boundaries. The first available region that can fit
// the configured pool size donates its first ContiguousPoolSize bytes to the
// pool and the rest of the region to the frame allocator.
//
// Init can only be invoked once.
func (m *Manager) Init(regions []multiboot.MemoryMapEntry) *kernel.Error {
	if !atomic.CompareAndSwapUint32(&m.state, stateUninitialized, stateInitializing) {
		return errAlreadyInitialized
	}

	if poolSize := m.cfg.ContiguousPoolSize; poolSize.PageAlignUp() < poolSize {
		return errInvalidPoolSize
	}

	m.printMemoryMap(regions)

	spans, pool, err := m.planRegions(regions)
	if err != nil {
		return err
	}

	hidden := make(map[pmm.Frame]struct{}, len(m.cfg.HiddenPages))
	for _, addr := range m.cfg.HiddenPages {
		hidden[pmm.FrameFromAddress(addr)] = struct{}{}
	}

	// Run a first pass to size the free queue and a second one to fill it.
	var frameCount uint64
	for _, s := range spans {
		frameCount += s.pages()
	}

	m.frames.init(frameCount, m.mapper, m.cfg.StrictFree)
	for _, s := range spans {
		for addr := s.start; addr < s.end; addr += uint64(mem.PageSize) {
			frame := pmm.FrameFromAddress(uintptr(addr))
			if _, isHidden := hidden[frame]; isHidden {
				m.hiddenFrames++
				continue
			}
			m.frames.addFrame(frame)
		}
	}

	if pool.end > pool.start {
		if err = m.contiguous.Describe(uintptr(pool.start), mem.Size(pool.end-pool.start)); err != nil {
			return err
		}
		kfmt.Printf("[pmm] contiguous chunk pool: [0x%010x - 0x%010x], size: %s\n", pool.start, pool.end, mem.Size(pool.end-pool.start))
	}

	kfmt.Printf("[pmm] free frames: %d, hidden frames: %d\n", m.frames.TotalCount(), m.hiddenFrames)
	atomic.StoreUint32(&m.state, stateReady)
	return nil
}

// planRegions computes the page-aligned spans that feed the frame allocator
// and the span reserved for the contiguous pool.
func (m *Manager) planRegions(regions []multiboot.MemoryMapEntry) ([]span, span, *kernel.Error) {
	var (
		spans      []span
		pool       span
		poolCarved = m.cfg.ContiguousPoolSize == 0
		poolSize   = uint64(m.cfg.ContiguousPoolSize.PageAlignUp())
	)

	for _, region := range regions {
		regionEnd := region.PhysAddress + region.Length
		if regionEnd < region.PhysAddress {
			return nil, span{}, errMalformedMemoryMap
		}

		if region.Type != multiboot.MemAvailable || region.Length < uint64(mem.PageSize) {
			continue
		}

		// Reported addresses may not be page-aligned; round up the start
		// and round down the end so we never claim memory outside the
		// region.
		s := span{start: mem.AlignUp(region.PhysAddress), end: mem.AlignDown(regionEnd)}
		if s.start < region.PhysAddress || s.end <= s.start {
			continue
		}

		if !poolCarved && s.end-s.start >= poolSize {
			pool = span{start: s.start, end: s.start + poolSize}
			s.start = pool.end
			poolCarved = true
		}

		if s.end > s.start {
			spans = append(spans, s)
		}
	}

	if len(spans) == 0 && pool.end == pool.start {
		return nil, span{}, errNoUsableMemory
	}

	return spans, pool, nil
}

func (m *Manager) ready() bool {
	return atomic.LoadUint32(&m.state) == stateReady
}

// AllocFrame reserves a zero-filled physical frame.
func (m *Manager) AllocFrame() (pmm.Frame, *kernel.Error) {
	if !m.ready() {
		return pmm.InvalidFrame, errNotInitialized
	}
	return m.frames.AllocFrame()
}

// FreeFrame returns a frame to the allocator.
func (m *Manager) FreeFrame(f pmm.Frame) *kernel.Error {
	if !m.ready() {
		return errNotInitialized
	}
	return m.frames.FreeFrame(f)
}

// AllocContiguous reserves a physically contiguous range of at least size
// bytes from the contiguous chunk pool.
func (m *Manager) AllocContiguous(size mem.Size) (uintptr, *kernel.Error) {
	if !m.ready() {
		return 0, errNotInitialized
	}
	return m.contiguous.Alloc(size)
}

// Contiguous returns the contiguous chunk pool.
func (m *Manager) Contiguous() *ContiguousPool { return &m.contiguous }

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() Stats {
	st := Stats{
		TotalFrames:  m.frames.TotalCount(),
		FreeFrames:   m.frames.FreeCount(),
		HiddenFrames: m.hiddenFrames,
	}

	st.PoolEnabled = m.contiguous.Described()
	st.PoolBase, st.PoolSize = m.contiguous.Range()
	for _, chunk := range m.contiguous.FreeChunks() {
		st.PoolFree += chunk.Size()
	}
	st.PoolAllocCount = len(m.contiguous.AllocatedChunks())
	return st
}
