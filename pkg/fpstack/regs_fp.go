//go:build gc && (amd64 || arm64)

package fpstack

// getg returns the address of the current goroutine's runtime.g.
// Implemented in regs_amd64.s and regs_arm64.s.
func getg() uintptr

// framePointer returns the frame pointer of its caller, that is the
// address of the caller's Link.
func framePointer() uintptr
