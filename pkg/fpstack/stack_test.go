package fpstack

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipUnsupported(t *testing.T) {
	t.Helper()
	if !supported() {
		t.Skip("no frame pointer support on this platform")
	}
}

func funcName(ip uintptr) string {
	fn := runtime.FuncForPC(ip - 1)
	if fn == nil {
		return "?"
	}
	return fn.Name()
}

func collect(s *Stack) []Frame {
	var frames []Frame
	for c := s.Begin(); c != s.End(); c.Advance() {
		frames = append(frames, c.Frame())
	}
	return frames
}

//go:noinline
func captureHere() (top Frame, frames []Frame) {
	Capture(func(s *Stack) {
		top = s.Top()
		frames = collect(s)
	})
	return top, frames
}

func TestCaptureTopIsCaller(t *testing.T) {
	skipUnsupported(t)
	top, frames := captureHere()
	require.NotEmpty(t, frames)
	assert.Equal(t, top.IP, frames[0].IP)
	assert.True(t, strings.HasSuffix(funcName(top.IP), ".captureHere"), "top frame is %s", funcName(top.IP))
	assert.True(t, strings.HasSuffix(funcName(frames[1].IP), ".TestCaptureTopIsCaller"), "second frame is %s", funcName(frames[1].IP))
}

//go:noinline
func recurse(n int, fn func()) {
	if n == 0 {
		fn()
		return
	}
	recurse(n-1, fn)
}

func TestWalkIsMonotonic(t *testing.T) {
	skipUnsupported(t)
	const depth = 10
	var cs []Cursor
	recurse(depth, func() {
		Capture(func(s *Stack) {
			cs = cursors(s)
		})
	})

	require.Greater(t, len(cs), depth)
	for i := 1; i < len(cs); i++ {
		// A smaller distance from the top of the stack is a higher frame.
		assert.Less(t, uint64(cs[i].off), uint64(cs[i-1].off), "frame %d", i)
	}
	recursive := 0
	for _, c := range cs {
		if strings.HasSuffix(funcName(c.ip), ".recurse") {
			recursive++
		}
	}
	assert.Equal(t, depth+1, recursive)
}

func TestWalkReachesTestRunner(t *testing.T) {
	skipUnsupported(t)
	pcs := make([]uintptr, 64)
	n := Callers(0, pcs)
	rpcs := make([]uintptr, 64)
	rn := runtime.Callers(1, rpcs)

	require.GreaterOrEqual(t, n, 2)
	require.GreaterOrEqual(t, rn, 2)
	assert.True(t, strings.HasSuffix(funcName(pcs[0]), ".TestWalkReachesTestRunner"))
	// Both sit in the same function; callers above it must agree exactly.
	assert.Equal(t, rpcs[1], pcs[1])
	assert.Equal(t, "testing.tRunner", funcName(pcs[1]))
}

func TestCallersSkip(t *testing.T) {
	skipUnsupported(t)
	var all, skipped [16]uintptr
	n := Callers(0, all[:])
	m := Callers(1, skipped[:])
	require.Greater(t, n, 1)
	require.Equal(t, n-1, m)
	assert.Equal(t, all[1:n], skipped[:m])

	assert.Zero(t, Callers(0, nil))
	assert.Equal(t, 1, Callers(0, all[:1]))
	assert.Zero(t, Callers(1000, all[:]))
}

func TestStackCursorCopies(t *testing.T) {
	skipUnsupported(t)
	Capture(func(s *Stack) {
		c := s.Begin()
		cp := c
		require.True(t, c == cp)
		cp.Advance()
		assert.False(t, c == cp)
		assert.Equal(t, s.Top(), c.Frame())

		c.Advance()
		assert.True(t, c == cp)
	})
}

//go:noinline
func grow(n int) byte {
	var buf [1024]byte
	buf[n%len(buf)] = byte(n)
	if n == 0 {
		return buf[0]
	}
	return grow(n-1) + buf[n%len(buf)]
}

func TestWalkSurvivesStackGrowth(t *testing.T) {
	skipUnsupported(t)
	done := make(chan struct{})
	var before, after []uintptr
	var loBefore, loAfter uintptr

	// A fresh goroutine starts with a small stack, so grow forces a copy.
	go func() {
		defer close(done)
		Capture(func(s *Stack) {
			before = s.IPs().AppendTo(nil)
			loBefore = CurrentRegion().Lo
			grow(256)
			loAfter = CurrentRegion().Lo
			after = s.IPs().AppendTo(nil)
		})
	}()
	<-done

	require.NotEqual(t, loBefore, loAfter, "stack was not moved")
	require.NotEmpty(t, before)
	assert.Equal(t, before, after)
}

func cursors(s *Stack) []Cursor {
	var cs []Cursor
	for c := s.Begin(); c != s.End(); c.Advance() {
		cs = append(cs, c)
	}
	return cs
}

func TestUnsafeAdvanceMatchesCheckedWalk(t *testing.T) {
	skipUnsupported(t)
	Capture(func(s *Stack) {
		// Cursors are compared rather than Frames: they hold offsets, which
		// stay put if an assertion moves the stack.
		checked := cursors(s)
		require.NotEmpty(t, checked)

		// Only the frames a checked walk accepted are followed unchecked.
		unchecked := make([]Cursor, 0, len(checked))
		c := s.Begin()
		for i := range checked {
			unchecked = append(unchecked, c)
			if i+1 < len(checked) {
				c.UnsafeAdvance()
			}
		}
		assert.Equal(t, checked, unchecked)
	})
}

func TestSavedCursorSurvivesStackGrowth(t *testing.T) {
	skipUnsupported(t)
	done := make(chan struct{})
	var before, fromCursor, fromFrame []uintptr
	var loBefore, loAfter uintptr

	go func() {
		defer close(done)
		recurse(5, func() {
			Capture(func(s *Stack) {
				saved := s.Begin()
				top := s.Top()
				before = NewIPs(NewCursor(top)).AppendTo(nil)
				loBefore = CurrentRegion().Lo
				grow(256)
				loAfter = CurrentRegion().Lo
				fromCursor = NewIPs(saved).AppendTo(nil)
				fromFrame = NewIPs(NewCursor(top)).AppendTo(nil)
			})
		})
	}()
	<-done

	require.NotEqual(t, loBefore, loAfter, "stack was not moved")
	require.Greater(t, len(before), 6)
	assert.Equal(t, before, fromCursor)
	// The Frame still names the old stack: only its own address is reported.
	assert.Equal(t, before[:1], fromFrame)
}
