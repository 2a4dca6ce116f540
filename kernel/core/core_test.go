package core

import (
	"testing"

	"github.com/codyd51/axle-sub001/kernel/amc"
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/physmem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm/allocator"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	arena := physmem.NewArenaFromSlice(0x100000, make([]byte, 16*mem.PageSize))
	c := New(allocator.Config{}, arena)
	require.NotNil(t, c.Bus)
	require.NotNil(t, c.Memory)

	_, err := c.Memory.AllocFrame()
	require.Error(t, err, "memory manager must not be usable before Init")

	require.Nil(t, c.Memory.Init([]multiboot.MemoryMapEntry{
		{PhysAddress: 0x100000, Length: uint64(16 * mem.PageSize), Type: multiboot.MemAvailable},
	}))

	frame, err := c.Memory.AllocFrame()
	require.Nil(t, err)
	require.Equal(t, uintptr(0x100000), frame.Address())

	c.Bus.Append("com.axle.test", amc.NewMessage("core", nil))
	require.Equal(t, 1, c.Bus.InboxLength("com.axle.test"))
}
