package fpstack

import (
	"fmt"
	"unsafe"

	"github.com/hcstack/fpstack/pkg/logflags"
)

// memory is what a Cursor needs from the stack it walks: its bounds and
// a way to read the Link at a frame pointer that lies within them.
type memory interface {
	region() Region
	link(fp uintptr) Link
}

// goroutineStack is the stack of the calling goroutine.
type goroutineStack struct{}

func (goroutineStack) region() Region {
	return CurrentRegion()
}

// link is the only place where a frame pointer is dereferenced; callers
// must have checked it with Region.Contains first.
//
//go:nosplit
//go:nocheckptr
func (goroutineStack) link(fp uintptr) Link {
	//nolint:gosec // G103: fp was validated against the stack bounds
	return *(*Link)(unsafe.Pointer(fp))
}

// Cursor is a position in a frame chain. The zero Cursor is the end of
// every walk. Cursors are plain values: copies compare equal with == and
// advance independently of each other.
//
// The frame pointer is kept as a distance from the top of the stack so a
// cursor stays meaningful when the runtime moves a growing stack.
type Cursor struct {
	off uintptr // region.Hi - fp; 0 when fp is null
	ip  uintptr
}

// End returns the cursor every walk finishes at.
func End() Cursor {
	return Cursor{}
}

// NewCursor returns a cursor positioned at f. f is not validated until the
// cursor is advanced, and it is only meaningful on the goroutine whose
// stack f was taken from.
//
// f.FP is an absolute address, which goes stale once the runtime moves the
// goroutine stack: a cursor built from a stale Frame yields that frame and
// then ends. To come back to a position later, keep the Cursor itself,
// which follows the stack when it moves.
func NewCursor(f Frame) Cursor {
	return cursorIn(goroutineStack{}, f)
}

func cursorIn(m memory, f Frame) Cursor {
	if f.FP == 0 {
		return Cursor{}
	}
	off := m.region().Hi - f.FP
	if off == 0 {
		return Cursor{}
	}
	return Cursor{off: off, ip: f.IP}
}

// IsEnd reports whether c has no frame.
func (c Cursor) IsEnd() bool {
	return c.off == 0
}

// Frame returns the frame c is positioned at. The end cursor yields the
// zero Frame.
func (c Cursor) Frame() Frame {
	return c.frameIn(goroutineStack{})
}

func (c Cursor) frameIn(m memory) Frame {
	if c.off == 0 {
		return Frame{}
	}
	return Frame{FP: m.region().Hi - c.off, IP: c.ip}
}

// Advance moves c to the caller's frame and returns c. The cursor becomes
// End if the current frame or its parent lie outside the calling
// goroutine's stack, or if the parent is not above the current frame.
func (c *Cursor) Advance() *Cursor {
	c.advance(goroutineStack{})
	return c
}

// AdvanceBy advances c k times. Every step is fully validated.
func (c *Cursor) AdvanceBy(k int) *Cursor {
	c.advanceBy(goroutineStack{}, k)
	return c
}

func (c *Cursor) advanceBy(m memory, k int) {
	for i := 0; i < k && !c.IsEnd(); i++ {
		c.advance(m)
	}
}

func (c *Cursor) advance(m memory) {
	if c.off == 0 {
		*c = Cursor{}
		return
	}
	r := m.region()
	fp := r.Hi - c.off
	if !r.Contains(fp) {
		c.stop("frame outside of stack", fp, 0)
		return
	}
	l := m.link(fp)
	switch {
	case !r.Contains(l.Up):
		c.stop("parent outside of stack", fp, l.Up)
	case l.Up <= fp:
		c.stop("parent not above frame", fp, l.Up)
	default:
		c.off = r.Hi - l.Up
		c.ip = l.Ret
	}
}

func (c *Cursor) stop(reason string, fp, up uintptr) {
	*c = Cursor{}
	if logflags.Walk() {
		logflags.WalkLogger().WithFields(logflags.Fields{"fp": fmt.Sprintf("%#x", fp), "up": fmt.Sprintf("%#x", up)}).Debugf("frame chain ended: %s", reason)
	}
}
