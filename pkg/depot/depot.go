// Package depot stores frame pointer backtraces and deduplicates them.
//
// Each unique backtrace is kept once and referred to by a 64-bit id, the
// farmhash of its instruction addresses. Capturing an already known
// backtrace costs one walk and one hash.
//
//	d := depot.New()
//	id := d.Capture(0)
//	...
//	fmt.Print(d.Get(id))
package depot

import (
	"encoding/binary"
	"sync"

	farm "github.com/dgryski/go-farm"

	"github.com/hcstack/fpstack/pkg/fpstack"
	"github.com/hcstack/fpstack/pkg/logflags"
)

// MaxFrames is the number of frames kept per backtrace.
const MaxFrames = 32

// Trace is a stored backtrace.
type Trace struct {
	PC [MaxFrames]uintptr
	N  int
}

// PCs returns the captured instruction addresses.
func (t *Trace) PCs() []uintptr {
	return t.PC[:t.N]
}

// String renders the trace the way fpstack.IPs does: lowercase hex
// addresses, each followed by a space.
func (t *Trace) String() string {
	if t == nil {
		return ""
	}
	return fpstack.PCs(t.PCs()).String()
}

// Depot is a set of unique backtraces. The zero value is ready to use and
// a Depot is safe for concurrent use.
type Depot struct {
	traces sync.Map // uint64 -> *Trace
}

// New returns an empty Depot.
func New() *Depot {
	return &Depot{}
}

// Capture records the backtrace of its caller and returns its id. skip
// drops that many frames from the top, 0 keeping the caller itself. The
// id is 0 if no frame could be walked.
//
//go:noinline
func (d *Depot) Capture(skip int) uint64 {
	var t Trace
	t.N = fpstack.Callers(skip+1, t.PC[:])
	if t.N == 0 {
		return 0
	}
	return d.Add(t.PCs())
}

// Add stores pcs, truncated to MaxFrames, and returns its id. A trace
// whose hash is already taken by a different trace gets the next free id.
func (d *Depot) Add(pcs []uintptr) uint64 {
	if len(pcs) == 0 {
		return 0
	}
	if len(pcs) > MaxFrames {
		pcs = pcs[:MaxFrames]
	}
	var t *Trace
	for id := hash(pcs); ; id = nextID(id) {
		if v, ok := d.traces.Load(id); ok {
			if equalPCs(v.(*Trace).PCs(), pcs) {
				return id
			}
			logflags.DepotLogger().WithField("id", id).Warnf("hash collision for backtrace %s", fpstack.PCs(pcs))
			continue
		}
		if t == nil {
			t = &Trace{N: len(pcs)}
			copy(t.PC[:], pcs)
		}
		v, loaded := d.traces.LoadOrStore(id, t)
		if !loaded {
			if logflags.Depot() {
				logflags.DepotLogger().WithField("id", id).Debugf("stored backtrace %s", t)
			}
			return id
		}
		// Lost a race for id: it now holds either this trace or another one.
		if equalPCs(v.(*Trace).PCs(), pcs) {
			return id
		}
	}
}

func nextID(id uint64) uint64 {
	id++
	if id == 0 {
		id = 1
	}
	return id
}

func equalPCs(a, b []uintptr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Get returns the backtrace with the given id, or nil.
func (d *Depot) Get(id uint64) *Trace {
	if id == 0 {
		return nil
	}
	t, ok := d.traces.Load(id)
	if !ok {
		return nil
	}
	return t.(*Trace)
}

// Len returns the number of unique backtraces.
func (d *Depot) Len() int {
	n := 0
	d.traces.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Range calls fn for every stored backtrace until fn returns false. The
// order is unspecified.
func (d *Depot) Range(fn func(id uint64, t *Trace) bool) {
	d.traces.Range(func(k, v interface{}) bool {
		return fn(k.(uint64), v.(*Trace))
	})
}

// Reset drops every stored backtrace.
func (d *Depot) Reset() {
	d.traces.Range(func(k, _ interface{}) bool {
		d.traces.Delete(k)
		return true
	})
}

// hash is Hash, replaced in tests.
var hash = Hash

// Hash returns the preferred id of a backtrace. It never returns 0 for a non-empty
// backtrace since 0 means "no trace".
func Hash(pcs []uintptr) uint64 {
	buf := make([]byte, 0, 8*len(pcs))
	for _, pc := range pcs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(pc))
	}
	h := farm.Hash64(buf)
	if h == 0 {
		h = 1
	}
	return h
}
