// Package fpstack walks the calling goroutine's stack by following the
// frame pointer chain that the Go toolchain maintains on amd64 and arm64.
//
// Every frame that does not omit its frame pointer starts with a Link: the
// caller's saved frame pointer followed by the return address into the
// caller. Walking consists of reading that record, checking that both the
// current and the parent frame pointer lie inside the running goroutine's
// stack, and checking that the parent lies strictly above the child. The
// first failed check ends the walk; a corrupt chain and the natural top of
// the stack are indistinguishable to the caller.
//
// A walk starts from Capture:
//
//	fpstack.Capture(func(s *fpstack.Stack) {
//		for c := s.Begin(); !c.IsEnd(); c.Advance() {
//			f := c.Frame()
//			log.Printf("fp=%#x ip=%#x", f.FP, f.IP)
//		}
//	})
//
// or, when only return addresses are needed, from Callers.
//
// No symbol information is consulted. Code built without frame pointers,
// as well as platforms other than amd64 and arm64, produce empty walks.
package fpstack
