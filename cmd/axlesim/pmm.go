package main

import (
	"fmt"
	"os"

	"github.com/codyd51/axle-sub001/kernel/abi"
	"github.com/codyd51/axle-sub001/kernel/hal/multiboot"
	"github.com/codyd51/axle-sub001/kernel/kmain"
	"github.com/codyd51/axle-sub001/kernel/mem"
	"github.com/codyd51/axle-sub001/kernel/mem/pmm/allocator"
	"github.com/spf13/cobra"
)

var (
	pmmPoolSize   string
	pmmAlloc      int
	pmmContiguous []string
	pmmHidden     []uint
	pmmStrict     bool
)

func init() {
	cmd := newPmmCmd()
	cmd.Flags().StringVar(&pmmPoolSize, "pool-size", "128M", "Size of the contiguous chunk pool")
	cmd.Flags().IntVar(&pmmAlloc, "alloc", 0, "Number of single frames to allocate after boot")
	cmd.Flags().StringSliceVar(&pmmContiguous, "contiguous", nil, "Contiguous allocation sizes to request after boot")
	cmd.Flags().UintSliceVar(&pmmHidden, "hide", nil, "Physical pages to hide from the allocator (default: AP bootstrap pages)")
	cmd.Flags().BoolVar(&pmmStrict, "strict", false, "Reject frees of frames that are not allocated")
	rootCmd.AddCommand(cmd)
}

func newPmmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pmm [memory-map]",
		Short: "Boot the physical memory manager from a memory map",
		Long: `The pmm command initializes the physical memory manager from a memory
map and reports how physical memory was divided between single frames and the
contiguous chunk pool. Without a memory map file the map qemu reports for a
256M machine is used.

Each line of a memory map file reads "<base> <length> <type>", where type is
one of available, reserved, acpi or nvs.

Example:
  axlesim pmm
  axlesim pmm machine.map --pool-size 2M --alloc 4 --contiguous 16K,1M
  axlesim pmm --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPmm(args)
		},
	}
	return cmd
}

// PmmReport is the outcome of a pmm run.
type PmmReport struct {
	Regions []RegionReport    `json:"regions"`
	Frames  []string          `json:"frames,omitempty"`
	Chunks  []string          `json:"chunks,omitempty"`
	Stats   allocator.Stats   `json:"stats"`
	Pool    []allocator.Chunk `json:"free_chunks"`
	Config  PmmConfigReport   `json:"config"`
}

// RegionReport describes one memory map region.
type RegionReport struct {
	Base   string `json:"base"`
	Length uint64 `json:"length"`
	Type   string `json:"type"`
}

// PmmConfigReport echoes the configuration the memory manager booted with.
type PmmConfigReport struct {
	PoolSize    uint64   `json:"pool_size"`
	HiddenPages []string `json:"hidden_pages"`
	StrictFree  bool     `json:"strict_free"`
}

func pmmConfig() (allocator.Config, error) {
	cfg := allocator.DefaultConfig()
	cfg.StrictFree = pmmStrict

	poolSize, err := parseSize(pmmPoolSize)
	if err != nil {
		return cfg, fmt.Errorf("invalid pool size: %w", err)
	}
	cfg.ContiguousPoolSize = poolSize

	if len(pmmHidden) != 0 {
		cfg.HiddenPages = make([]uintptr, len(pmmHidden))
		for i, page := range pmmHidden {
			cfg.HiddenPages[i] = uintptr(page)
		}
	}
	return cfg, nil
}

func loadMemoryMap(args []string) ([]multiboot.MemoryMapEntry, error) {
	if len(args) == 0 {
		printVerbose("Using built-in qemu memory map\n")
		return qemuMemoryMap, nil
	}

	printVerbose("Loading memory map: %s\n", args[0])
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open memory map: %w", err)
	}
	defer f.Close()

	return parseMemoryMap(f)
}

func runPmm(args []string) error {
	regions, err := loadMemoryMap(args)
	if err != nil {
		return err
	}

	cfg, err := pmmConfig()
	if err != nil {
		return err
	}

	chunkSizes := make([]mem.Size, len(pmmContiguous))
	for i, s := range pmmContiguous {
		if chunkSizes[i], err = parseSize(s); err != nil {
			return fmt.Errorf("invalid contiguous allocation size %q: %w", s, err)
		}
	}

	guard := guardHalts()
	defer guard.release()

	k, err := kmain.Boot(multiboot.EncodeMemoryMap(regions), cfg)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	defer k.Shutdown()
	if err = guard.check(); err != nil {
		return fmt.Errorf("memory manager initialization failed: %w", err)
	}

	report := PmmReport{
		Config: PmmConfigReport{
			PoolSize:   uint64(cfg.ContiguousPoolSize),
			StrictFree: cfg.StrictFree,
		},
	}
	for _, page := range cfg.HiddenPages {
		report.Config.HiddenPages = append(report.Config.HiddenPages, fmt.Sprintf("%#x", page))
	}
	for _, region := range regions {
		report.Regions = append(report.Regions, RegionReport{
			Base:   fmt.Sprintf("%#x", region.PhysAddress),
			Length: region.Length,
			Type:   region.Type.String(),
		})
	}

	for i := 0; i < pmmAlloc; i++ {
		addr := abi.PmmAllocFrame(k.Core)
		if err = guard.check(); err != nil {
			return fmt.Errorf("frame allocation %d failed: %w", i+1, err)
		}
		report.Frames = append(report.Frames, fmt.Sprintf("%#x", addr))
	}

	for _, size := range chunkSizes {
		addr := abi.PmmAllocContiguous(k.Core, uint64(size))
		if err = guard.check(); err != nil {
			return fmt.Errorf("contiguous allocation of %s failed: %w", size, err)
		}
		report.Chunks = append(report.Chunks, fmt.Sprintf("%#x", addr))
	}

	report.Stats = k.Memory.Stats()
	report.Pool = k.Memory.Contiguous().FreeChunks()

	if jsonOut {
		return printJSON(report)
	}
	printPmmReport(&report)
	return nil
}

func printPmmReport(report *PmmReport) {
	printInfo("Memory map:\n")
	for _, region := range report.Regions {
		printInfo("  %-12s %14d bytes  %s\n", region.Base, region.Length, region.Type)
	}

	st := report.Stats
	printInfo("\nFrames:\n")
	printInfo("  total:  %d\n", st.TotalFrames)
	printInfo("  free:   %d\n", st.FreeFrames)
	printInfo("  hidden: %d\n", st.HiddenFrames)

	printInfo("\nContiguous pool:\n")
	if !st.PoolEnabled {
		printInfo("  disabled\n")
	} else {
		printInfo("  range:       %#x - %#x (%s)\n", st.PoolBase, st.PoolBase+uintptr(st.PoolSize), st.PoolSize)
		printInfo("  free:        %d bytes\n", uint64(st.PoolFree))
		printInfo("  allocations: %d\n", st.PoolAllocCount)
		for _, chunk := range report.Pool {
			printVerbose("  free chunk:  %#x (%s)\n", chunk.Address(), chunk.Size())
		}
	}

	if len(report.Frames) != 0 {
		printInfo("\nAllocated frames:\n")
		for _, addr := range report.Frames {
			printInfo("  %s\n", addr)
		}
	}
	if len(report.Chunks) != 0 {
		printInfo("\nAllocated chunks:\n")
		for _, addr := range report.Chunks {
			printInfo("  %s\n", addr)
		}
	}
}
