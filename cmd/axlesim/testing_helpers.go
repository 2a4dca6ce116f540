package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain the pipe concurrently so large outputs cannot fill it up
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done

	return string(out), fnErr
}

// writeTempFile writes contents to a file inside a per-test directory and
// returns its path
func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// resetFlags restores every command flag to its default value
func resetFlags() {
	verbose, quiet, jsonOut = false, false, false

	pmmPoolSize = "128M"
	pmmAlloc = 0
	pmmContiguous = nil
	pmmHidden = nil
	pmmStrict = false

	amcMaxYields = 0

	attachKernelConsole()
}
