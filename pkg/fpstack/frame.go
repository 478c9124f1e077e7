package fpstack

import "unsafe"

// Link is the record a frame pointer points at: the caller's saved frame
// pointer followed by the address the frame's function returns to.
//
// On amd64 it is produced by
//
//	CALL fn
//	PUSHQ BP
//	MOVQ SP, BP
//
// and arm64 frames share the same layout.
type Link struct {
	Up  uintptr
	Ret uintptr
}

const linkSize = unsafe.Sizeof(Link{})

// Frame describes one call frame: the address of its Link and an
// instruction address inside the function owning it. The zero Frame means
// "no frame" and is what an exhausted Cursor yields.
//
// FP is only meaningful until the goroutine stack next moves. The runtime
// copies a stack when it grows or shrinks, at any function call, so FP
// should be used or compared right after it was obtained.
type Frame struct {
	FP uintptr
	IP uintptr
}

// IsZero reports whether f is the end-of-sequence descriptor.
func (f Frame) IsZero() bool {
	return f.FP == 0
}
