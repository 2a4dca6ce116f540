package abi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/codyd51/axle-sub001/kernel/core"
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/physmem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm/allocator"
	"github.com/stretchr/testify/require"
)

// haltRecorder captures kernel panics raised while a test runs.
type haltRecorder struct {
	output bytes.Buffer
	halts  int
}

func recordHalts(t *testing.T) *haltRecorder {
	rec := new(haltRecorder)
	prevHalt := kfmt.SetHaltFn(func() { rec.halts++ })
	kfmt.SetOutputSink(&rec.output)
	t.Cleanup(func() {
		kfmt.SetHaltFn(prevHalt)
		kfmt.SetOutputSink(nil)
	})
	return rec
}

func send(t *testing.T, c *core.Core, source, dest string, body []byte) {
	buf, err := EncodeMessage(source, dest, body)
	require.Nil(t, err)
	require.Nil(t, AmcAppendMessage(c, EncodeName(dest), buf))
}

func tagged(event uint32) []byte {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, event)
	return body
}

func newCore(t *testing.T, poolSize mem.Size, regions ...multiboot.MemoryMapEntry) *core.Core {
	var end uint64
	for _, region := range regions {
		if regionEnd := region.PhysAddress + region.Length; regionEnd > end {
			end = regionEnd
		}
	}

	arena := physmem.NewArenaFromSlice(0, make([]byte, end))
	cfg := allocator.Config{
		ContiguousPoolSize: poolSize,
		HiddenPages:        allocator.DefaultHiddenPages,
	}
	return core.New(cfg, arena)
}

func TestAmcEntryPoints(t *testing.T) {
	c := newCore(t, 0)

	send(t, c, "A", "svc", []byte("a1"))
	send(t, c, "B", "svc", []byte("b1"))
	send(t, c, "A", "svc", []byte("a2"))

	n, err := AmcInboxLength(c, EncodeName("svc"))
	require.Nil(t, err)
	require.Equal(t, 3, n)

	has, err := AmcHasMessageFrom(c, EncodeName("svc"), EncodeName("B"))
	require.Nil(t, err)
	require.True(t, has)

	msg, err := AmcSelectMessage(c, EncodeName("svc"), [][]byte{EncodeName("B")}, nil)
	require.Nil(t, err)
	require.Equal(t, "b1", string(msg.Body()))

	for _, exp := range []string{"a1", "a2"} {
		msg, err = AmcSelectMessage(c, EncodeName("svc"), nil, nil)
		require.Nil(t, err)
		require.Equal(t, exp, string(msg.Body()))
	}

	msg, err = AmcSelectMessage(c, EncodeName("svc"), nil, nil)
	require.Nil(t, err)
	require.Nil(t, msg)

	has, err = AmcHasAnyMessage(c, EncodeName("svc"))
	require.Nil(t, err)
	require.False(t, has)
}

func TestAmcSelectByEvent(t *testing.T) {
	c := newCore(t, 0)
	for _, ev := range []uint32{1, 2, 1} {
		send(t, c, "src", "svc", tagged(ev))
	}

	event := uint32(2)
	msg, err := AmcSelectMessage(c, EncodeName("svc"), nil, &event)
	require.Nil(t, err)
	got, _ := msg.Event()
	require.Equal(t, uint32(2), got)

	n, _ := AmcInboxLength(c, EncodeName("svc"))
	require.Equal(t, 2, n)
}

func TestAmcUnknownServices(t *testing.T) {
	c := newCore(t, 0)

	n, err := AmcInboxLength(c, EncodeName("nobody"))
	require.Nil(t, err)
	require.Zero(t, n)

	has, err := AmcHasAnyMessage(c, EncodeName("nobody.else"))
	require.Nil(t, err)
	require.False(t, has)
}

func TestAmcMalformedNames(t *testing.T) {
	c := newCore(t, 0)
	send(t, c, "src", "svc", []byte("x"))

	bad := []byte("\xff\x00")

	msg, err := AmcSelectMessage(c, EncodeName("svc"), [][]byte{EncodeName("other"), bad}, nil)
	require.Equal(t, errMalformedName, err)
	require.Nil(t, msg)

	_, err = AmcHasMessageFrom(c, EncodeName("svc"), bad)
	require.Equal(t, errMalformedName, err)

	_, err = AmcHasMessageFrom(c, bad, EncodeName("src"))
	require.Equal(t, errMalformedName, err)

	_, err = AmcHasAnyMessage(c, []byte("unterminated"))
	require.Equal(t, errMalformedName, err)

	_, err = AmcInboxLength(c, nil)
	require.Equal(t, errMalformedName, err)

	require.Equal(t, errMalformedName, AmcAppendMessage(c, bad, nil))
	require.Equal(t, errTruncatedMessage, AmcAppendMessage(c, EncodeName("svc"), []byte("short")))

	misrouted, kerr := EncodeMessage("src", "other", []byte("y"))
	require.Nil(t, kerr)
	require.Equal(t, errDestinationMismatch, AmcAppendMessage(c, EncodeName("svc"), misrouted))

	has, kerr := AmcHasAnyMessage(c, EncodeName("other"))
	require.Nil(t, kerr)
	require.False(t, has)

	// Nothing was consumed by the rejected calls
	n, _ := AmcInboxLength(c, EncodeName("svc"))
	require.Equal(t, 1, n)
}

func TestPmmInitAndExhaustion(t *testing.T) {
	rec := recordHalts(t)
	region := multiboot.MemoryMapEntry{PhysAddress: 0x100000, Length: 0x20000, Type: multiboot.MemAvailable}
	c := newCore(t, 0, region)

	PmmInit(c, multiboot.EncodeMemoryMap([]multiboot.MemoryMapEntry{region}))
	require.Zero(t, rec.halts)

	seen := make(map[uintptr]bool)
	for i := 0; i < 32; i++ {
		addr := PmmAllocFrame(c)
		require.Zero(t, rec.halts, "unexpected halt after %d allocations", i)
		require.Zero(t, addr&uintptr(mem.PageSize-1))
		require.True(t, addr >= 0x100000 && addr < 0x120000)
		require.False(t, seen[addr], "address %#x allocated twice", addr)
		seen[addr] = true
	}

	require.Zero(t, PmmAllocFrame(c))
	require.Equal(t, 1, rec.halts)
	require.Contains(t, rec.output.String(), "[pmm] unrecoverable error: out of memory")
}

func TestPmmZeroFillOnReuse(t *testing.T) {
	rec := recordHalts(t)
	region := multiboot.MemoryMapEntry{PhysAddress: 0x100000, Length: uint64(mem.PageSize), Type: multiboot.MemAvailable}
	arena := physmem.NewArenaFromSlice(0x100000, make([]byte, mem.PageSize))
	c := core.New(allocator.Config{}, arena)
	PmmInit(c, multiboot.EncodeMemoryMap([]multiboot.MemoryMapEntry{region}))

	addr := PmmAllocFrame(c)
	page, err := arena.Map(addr, mem.PageSize)
	require.Nil(t, err)
	for i := range page {
		page[i] = 0xaa
	}

	PmmFreeFrame(c, addr)
	require.Equal(t, addr, PmmAllocFrame(c))
	require.Equal(t, make([]byte, mem.PageSize), page)
	require.Zero(t, rec.halts)
}

func TestPmmFreeMisaligned(t *testing.T) {
	rec := recordHalts(t)
	region := multiboot.MemoryMapEntry{PhysAddress: 0x100000, Length: 0x4000, Type: multiboot.MemAvailable}
	c := newCore(t, 0, region)
	PmmInit(c, multiboot.EncodeMemoryMap([]multiboot.MemoryMapEntry{region}))

	PmmFreeFrame(c, 0x100010)
	require.Equal(t, 1, rec.halts)
	require.Contains(t, rec.output.String(), errMisalignedFrame.Message)
	require.Equal(t, uint64(4), c.Memory.Stats().FreeFrames)
}

func TestPmmInitMalformed(t *testing.T) {
	rec := recordHalts(t)
	c := newCore(t, 0)

	PmmInit(c, []byte{1, 2, 3})
	require.Equal(t, 1, rec.halts)

	// A well-formed blob without usable memory is just as fatal
	PmmInit(c, multiboot.EncodeMemoryMap([]multiboot.MemoryMapEntry{
		{PhysAddress: 0, Length: 0x1000, Type: multiboot.MemReserved},
	}))
	require.Equal(t, 2, rec.halts)
}

func TestPmmAllocContiguous(t *testing.T) {
	rec := recordHalts(t)
	region := multiboot.MemoryMapEntry{PhysAddress: 0x100000, Length: 0x40000, Type: multiboot.MemAvailable}
	c := newCore(t, 0x20000, region)
	PmmInit(c, multiboot.EncodeMemoryMap([]multiboot.MemoryMapEntry{region}))

	require.Zero(t, PmmAllocContiguous(c, ^uint64(0)))
	require.Equal(t, 1, rec.halts)
	require.Empty(t, c.Memory.Contiguous().AllocatedChunks())
	rec.halts = 0

	require.Equal(t, uintptr(0x100000), PmmAllocContiguous(c, 0x4000))
	require.Equal(t, uintptr(0x104000), PmmAllocContiguous(c, 1))
	require.Zero(t, rec.halts)

	require.Zero(t, PmmAllocContiguous(c, 0x20000))
	require.Equal(t, 1, rec.halts)
}
