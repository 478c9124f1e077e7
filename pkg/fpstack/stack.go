package fpstack

// noCopy makes go vet's copylocks check report copies of the structs
// embedding it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Stack is the stack of the calling goroutine as of a call to Capture.
// It is only valid during the callback it was passed to: once that returns
// the frames it describes may be gone. Cursors and Frames derived from it
// are ordinary values and may be kept, but they describe the stack as it
// was.
type Stack struct {
	noCopy noCopy

	top Cursor
}

// Capture calls fn with the stack of the function calling Capture.
//
// The top of the stack is the caller's frame: Top().FP is the caller's
// frame pointer and Top().IP the address Capture returns to. Capture is
// never inlined so that its own frame is always one link below the caller.
//
//go:noinline
func Capture(fn func(s *Stack)) {
	s := Stack{top: callerOf(framePointer())}
	fn(&s)
}

// callerOf returns the frame one link above fp. fp is the frame pointer of
// a function that is still running, so this is a regular validated step.
func callerOf(fp uintptr) Cursor {
	m := goroutineStack{}
	c := cursorIn(m, Frame{FP: fp})
	c.advance(m)
	return c
}

// Top returns the frame of the function that called Capture.
func (s *Stack) Top() Frame {
	return s.top.Frame()
}

// Begin returns a cursor positioned at the top frame.
func (s *Stack) Begin() Cursor {
	return s.top
}

// End returns the cursor Begin reaches once the chain is exhausted.
func (s *Stack) End() Cursor {
	return End()
}

// IPs returns a view of the stack that yields return addresses only.
func (s *Stack) IPs() IPs {
	return IPs{begin: s.top}
}

// Callers fills pcs with the instruction addresses of the calling
// goroutine's frames and returns how many were written. With skip == 0 the
// first entry is the address Callers returns to; every increment of skip
// drops one more frame.
//
//go:noinline
func Callers(skip int, pcs []uintptr) int {
	c := callerOf(framePointer())
	if skip > 0 {
		c.AdvanceBy(skip)
	}
	n := 0
	for ; n < len(pcs) && !c.IsEnd(); c.Advance() {
		pcs[n] = c.ip
		n++
	}
	return n
}
