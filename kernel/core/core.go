// Package core holds the state shared by every kernel entry point.
package core

import (
	"github.com/codyd51/axle-sub001/kernel/amc"
	"github.com/codyd51/axle-sub001/kernel/mem/physmem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm/allocator"
)

// Core bundles the message bus and the physical memory manager. It is built
// once during boot and handed to whatever needs either of them.
type Core struct {
	Bus    *amc.Bus
	Memory *allocator.Manager
}

// New returns a Core whose memory manager scrubs frames through mapper. The
// memory manager still has to be initialized with the boot memory map.
func New(cfg allocator.Config, mapper physmem.Mapper) *Core {
	return &Core{
		Bus:    amc.NewBus(),
		Memory: allocator.NewManager(cfg, mapper),
	}
}
