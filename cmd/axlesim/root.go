package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool

	// numbers formats counters with digit grouping
	numbers = message.NewPrinter(language.English)

	errKernelHalted = errors.New("kernel halted")
)

var rootCmd = &cobra.Command{
	Use:   "axlesim",
	Short: "Drive the axle resource core from the command line",
	Long: `axlesim boots the axle message bus and physical memory manager in a
hosted sandbox. It can replay a boot memory map, carve up physical memory the
way the kernel does and run scripted message exchanges between services.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		attachKernelConsole()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show kernel console output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// attachKernelConsole routes kernel console output to stderr in verbose mode
// and drops it otherwise.
func attachKernelConsole() {
	var sink io.Writer = io.Discard
	if verbose && !quiet {
		sink = &kfmt.PrefixWriter{Sink: os.Stderr, Prefix: []byte("kernel: ")}
	}
	kfmt.SetOutputSink(sink)
}

// haltGuard turns a kernel halt into an observable flag so a command can
// stop cleanly instead of parking forever.
type haltGuard struct {
	halted  bool
	restore func()
}

func guardHalts() *haltGuard {
	g := new(haltGuard)
	g.restore = kfmt.SetHaltFn(func() { g.halted = true })
	return g
}

// check returns errKernelHalted if the kernel halted since the guard was
// installed.
func (g *haltGuard) check() error {
	if g.halted {
		return errKernelHalted
	}
	return nil
}

func (g *haltGuard) release() {
	kfmt.SetHaltFn(g.restore)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		numbers.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		numbers.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
