package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/mem"
)

// qemuMemoryMap is the memory map qemu reports for a machine with 256M of RAM.
var qemuMemoryMap = []multiboot.MemoryMapEntry{
	{PhysAddress: 0x0, Length: 0x9fc00, Type: multiboot.MemAvailable},
	{PhysAddress: 0x9fc00, Length: 0x400, Type: multiboot.MemReserved},
	{PhysAddress: 0xf0000, Length: 0x10000, Type: multiboot.MemReserved},
	{PhysAddress: 0x100000, Length: 0xfee0000, Type: multiboot.MemAvailable},
	{PhysAddress: 0xffe0000, Length: 0x20000, Type: multiboot.MemReserved},
	{PhysAddress: 0xfffc0000, Length: 0x40000, Type: multiboot.MemReserved},
}

var regionTypes = map[string]multiboot.MemoryEntryType{
	"available": multiboot.MemAvailable,
	"usable":    multiboot.MemAvailable,
	"reserved":  multiboot.MemReserved,
	"acpi":      multiboot.MemAcpiReclaimable,
	"nvs":       multiboot.MemNvs,
}

// parseMemoryMap reads a textual memory map. Every non-empty line that does
// not start with '#' describes one region as "<base> <length> <type>"; numbers
// accept the usual Go prefixes and the size suffixes understood by parseSize.
func parseMemoryMap(r io.Reader) ([]multiboot.MemoryMapEntry, error) {
	var (
		regions []multiboot.MemoryMapEntry
		scanner = bufio.NewScanner(r)
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected \"<base> <length> <type>\", got %q", lineNo, line)
		}

		base, err := strconv.ParseUint(fields[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid base address: %w", lineNo, err)
		}

		length, err := parseSize(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid length: %w", lineNo, err)
		}

		regionType, ok := regionTypes[strings.ToLower(fields[2])]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown region type %q", lineNo, fields[2])
		}

		regions = append(regions, multiboot.MemoryMapEntry{
			PhysAddress: base,
			Length:      uint64(length),
			Type:        regionType,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("memory map is empty")
	}

	return regions, nil
}

// parseSize parses a byte count with an optional K, M or G suffix.
func parseSize(s string) (mem.Size, error) {
	unit := mem.Size(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		unit = mem.Kb
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		unit = mem.Mb
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		unit = mem.Gb
	}
	if unit != 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if n > ^uint64(0)/uint64(unit) {
		return 0, fmt.Errorf("size %s overflows", s)
	}
	return mem.Size(n) * unit, nil
}
