package multiboot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	info, err := Parse(qemuMemoryMapInfo())
	require.Nil(t, err)

	exp := []MemoryMapEntry{
		{0, 654336, MemAvailable},
		{654336, 1024, MemReserved},
		{983040, 65536, MemReserved},
		{1048576, 133038080, MemAvailable},
		{134086656, 131072, MemReserved},
		{4294705152, 262144, MemReserved},
	}
	require.Equal(t, exp, info.MemoryMap())
	require.Empty(t, info.BootLoaderName())
	require.Empty(t, info.CmdLine())
}

func TestVisitMemRegionsUnknownTypeAndAbort(t *testing.T) {
	data := qemuMemoryMapInfo()

	// Patch the first entry with a bogus type; it must be reported as reserved
	binary.LittleEndian.PutUint32(data[40:], 0xFF)

	info, err := Parse(data)
	require.Nil(t, err)

	var visited []MemoryMapEntry
	info.VisitMemRegions(func(entry *MemoryMapEntry) bool {
		visited = append(visited, *entry)
		return len(visited) < 2
	})

	require.Len(t, visited, 2, "expected the scan to stop when the visitor returns false")
	require.Equal(t, MemReserved, visited[0].Type)
	require.Equal(t, MemReserved, visited[1].Type)
}

func TestParseWithoutMemoryMap(t *testing.T) {
	info, err := Parse(new(Builder).AddBootLoaderName("GRUB 2.02").AddCmdLine("pmm.strict").Bytes())
	require.Nil(t, err)

	var visitCount int
	info.VisitMemRegions(func(_ *MemoryMapEntry) bool {
		visitCount++
		return true
	})

	require.Zero(t, visitCount, "expected visitor not to be invoked when no memory map tag is present")
	require.Equal(t, "GRUB 2.02", info.BootLoaderName())
	require.Equal(t, "pmm.strict", info.CmdLine())
}

func TestParseMalformed(t *testing.T) {
	valid := EncodeMemoryMap([]MemoryMapEntry{{0x100000, 0x20000, MemAvailable}})

	specs := []struct {
		name   string
		data   func() []byte
		expErr error
	}{
		{"empty", func() []byte { return nil }, errMalformedInfo},
		{"total size exceeds buffer", func() []byte {
			data := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(data[0:], uint32(len(data)+8))
			return data
		}, errMalformedInfo},
		{"total size smaller than a header", func() []byte {
			data := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(data[0:], 4)
			return data
		}, errMalformedInfo},
		{"tag overruns block", func() []byte {
			data := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(data[12:], 0x1000)
			return data
		}, errMalformedInfo},
		{"tag smaller than its header", func() []byte {
			data := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(data[12:], 4)
			return data
		}, errMalformedInfo},
		{"missing end tag", func() []byte {
			data := append([]byte(nil), valid[:len(valid)-8]...)
			binary.LittleEndian.PutUint32(data[0:], uint32(len(data)))
			return data
		}, errMissingEndTag},
		{"short memory map entries", func() []byte {
			data := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(data[16:], 8)
			return data
		}, errBadMmapEntry},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			info, err := Parse(spec.data())
			require.Nil(t, info)
			require.Equal(t, spec.expErr, err)
		})
	}
}

func TestBuilderRoundTrip(t *testing.T) {
	regions := []MemoryMapEntry{
		{0x0, 0x9fc00, MemAvailable},
		{0x100000, 0x20000, MemAvailable},
		{0x120000, 0x1000, MemNvs},
		{0x121000, 0x3000, MemAcpiReclaimable},
	}

	data := new(Builder).AddBootLoaderName("axle-sim").AddMemoryMap(regions).Bytes()
	require.Zero(t, len(data)%8, "info block must stay 8-byte aligned")

	info, err := Parse(data)
	require.Nil(t, err)
	require.Equal(t, regions, info.MemoryMap())
	require.Equal(t, "axle-sim", info.BootLoaderName())
}

func TestMemoryEntryTypeString(t *testing.T) {
	specs := []struct {
		t   MemoryEntryType
		exp string
	}{
		{MemAvailable, "available"},
		{MemReserved, "reserved"},
		{MemAcpiReclaimable, "ACPI (reclaimable)"},
		{MemNvs, "NVS"},
		{memUnknown, "unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.t.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

// qemuMemoryMapInfo returns the memory map tag captured from a qemu boot,
// wrapped in an info header and end tag. It encodes the following regions:
// [         0 -    9fc00] available
// [     9fc00 -    a0000] reserved
// [     f0000 -   100000] reserved
// [    100000 -  7fe0000] available
// [   7fe0000 -  8000000] reserved
// [  fffc0000 - 100000000] reserved
func qemuMemoryMapInfo() []byte {
	return []byte{
		176, 0, 0, 0, 0, 0, 0, 0,
		6, 0, 0, 0, 160, 0, 0, 0, 24, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 252, 9, 0, 0, 0, 0, 0,
		1, 0, 0, 0, 0, 0, 0, 0, 0, 252, 9, 0, 0, 0, 0, 0,
		0, 4, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 15, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 16, 0, 0, 0, 0, 0,
		0, 0, 238, 7, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 254, 7, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 252, 255, 0, 0, 0, 0,
		0, 0, 4, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 8, 0, 0, 0,
	}
}
