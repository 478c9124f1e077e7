// Package callsite checks that return addresses found on a stack are
// preceded by a call instruction.
//
// A frame pointer chain has no checksum; a return address that does not
// follow a call is a strong hint the chain was misread. The check decodes
// the machine code in front of the address, so it only works for addresses
// inside the running binary's Go text.
package callsite

import (
	"fmt"
	"runtime"
	"unsafe"

	lru "github.com/hashicorp/golang-lru"

	"github.com/hcstack/fpstack/pkg/logflags"
)

// DefaultCacheSize is the number of return addresses a Verifier remembers
// when New is called with a non-positive size.
const DefaultCacheSize = 1024

// Call is the call instruction a return address belongs to.
type Call struct {
	// Addr is the address of the call instruction.
	Addr uintptr
	// Len is the encoded length of the instruction.
	Len int
	// Text is the instruction in Go assembler syntax.
	Text string
}

type result struct {
	call Call
	ok   bool
}

// Verifier decodes and caches call sites. It is safe for concurrent use.
type Verifier struct {
	cache *lru.Cache
}

// New returns a Verifier remembering up to size return addresses.
func New(size int) (*Verifier, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("could not create call site cache: %w", err)
	}
	return &Verifier{cache: cache}, nil
}

// Supported reports whether call sites can be decoded on this architecture.
func Supported() bool {
	return maxCallLen > 0
}

// Lookup returns the call instruction ret returns from.
func (v *Verifier) Lookup(ret uintptr) (Call, bool) {
	if r, ok := v.cache.Get(ret); ok {
		res := r.(result)
		return res.call, res.ok
	}
	call, ok := lookup(ret)
	v.cache.Add(ret, result{call: call, ok: ok})
	if !ok && logflags.Callsite() {
		logflags.CallsiteLogger().Debugf("%#x is not preceded by a call", ret)
	}
	return call, ok
}

// IsCallSite reports whether ret directly follows a call instruction.
func (v *Verifier) IsCallSite(ret uintptr) bool {
	_, ok := v.Lookup(ret)
	return ok
}

// Len returns the number of cached return addresses.
func (v *Verifier) Len() int {
	return v.cache.Len()
}

func lookup(ret uintptr) (Call, bool) {
	if !Supported() || ret == 0 {
		return Call{}, false
	}
	fn := runtime.FuncForPC(ret - 1)
	if fn == nil {
		return Call{}, false
	}
	lo := fn.Entry()
	if ret-lo > maxCallLen {
		lo = ret - maxCallLen
	}
	return decodeCall(code(lo, ret), ret)
}

// code returns the bytes of text in [lo, hi). Both ends lie within one
// function of the binary, so the memory is mapped.
//
//go:nocheckptr
func code(lo, hi uintptr) []byte {
	//nolint:gosec // G103: reading the binary's own text
	return unsafe.Slice((*byte)(unsafe.Pointer(lo)), hi-lo)
}
