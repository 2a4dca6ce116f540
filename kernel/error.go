package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error so callers can compare them by identity and so that
// reporting one never needs a memory allocation.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// String returns the error prefixed with the module that raised it, in the
// same format used by the kernel console.
func (e *Error) String() string {
	return "[" + e.Module + "] " + e.Message
}
