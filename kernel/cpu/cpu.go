// Package cpu exposes the processor operations that the resource core needs.
//
// The kernel runs hosted, so instead of issuing HLT the calling core is parked
// forever.
package cpu

var (
	// parkFn is mocked by tests.
	parkFn = func() { select {} }
)

// Halt stops instruction execution on the calling core. Halt never returns.
func Halt() {
	parkFn()
}
