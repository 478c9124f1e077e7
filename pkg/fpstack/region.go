package fpstack

import (
	"math"
	"sync"
	"unsafe"

	"github.com/hcstack/fpstack/pkg/logflags"
)

// Region is the address range [Lo, Hi) of a goroutine stack.
type Region struct {
	Lo, Hi uintptr
}

// CurrentRegion returns the stack bounds of the calling goroutine, or the
// zero Region if they are not available on this platform.
//
// The bounds are read from the first field of the runtime's g descriptor,
// which has been `stack stack` (lo, hi) since the contiguous stack rewrite
// and is relied upon by the runtime's own assembly.
//
//go:nosplit
//go:nocheckptr
func CurrentRegion() Region {
	gp := getg()
	if gp == 0 {
		return Region{}
	}
	//nolint:gosec // G103: reading runtime.g.stack
	return *(*Region)(unsafe.Pointer(gp))
}

// top is the highest address at which a complete Link fits.
func (r Region) top() uintptr {
	return r.Hi - linkSize
}

// limit is the deepest a frame may lie below top: the process stack limit,
// clipped to the size of the region itself.
func (r Region) limit() int64 {
	limit := int64(MaxStackSize())
	if size := int64(r.top() - r.Lo); size < limit {
		limit = size
	}
	return limit
}

// Contains reports whether a Link at fp lies entirely inside r.
func (r Region) Contains(fp uintptr) bool {
	if r.Hi < r.Lo+linkSize {
		return false
	}
	offset := int64(fp - r.top())
	return offset <= 0 && offset >= -r.limit()
}

// IsValidFrame reports whether fp plausibly points at a frame of the
// calling goroutine's stack. It depends only on fp, the goroutine's stack
// bounds and the cached stack size limit. The bounds change when the
// runtime moves the stack, so a frame pointer read earlier may stop being
// valid after any function call that grew the stack.
func IsValidFrame(fp uintptr) bool {
	return CurrentRegion().Contains(fp)
}

var maxStack struct {
	once sync.Once
	size uint64
}

// fatal halts the process. Replaced in tests.
var fatal = func(err error) {
	logflags.WalkLogger().WithError(err).Fatalf("could not query the stack size limit")
}

// MaxStackSize returns the soft limit on the stack size of the process.
// The limit is queried once, on first use, and never refreshed: changes
// made later with setrlimit are not observed. A failed query halts the
// process since no frame could be validated without it.
func MaxStackSize() uint64 {
	maxStack.once.Do(func() {
		size, err := stackLimit()
		if err != nil {
			fatal(err)
			return
		}
		if size > math.MaxInt64 {
			size = math.MaxInt64
		}
		maxStack.size = size
	})
	return maxStack.size
}
