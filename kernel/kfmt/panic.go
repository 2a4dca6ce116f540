package kfmt

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Resource exhaustion and broken boot data end up here: the kernel has
// no way to recover from them at this layer.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t}
	case error:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t.Error()}
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

// SetHaltFn replaces the function Panic calls to stop the CPU and returns the
// previous one. Hosted embedders use it to turn a halt into an observable
// event.
func SetHaltFn(fn func()) func() {
	prev := cpuHaltFn
	cpuHaltFn = fn
	return prev
}
