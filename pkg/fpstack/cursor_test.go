package fpstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStack is a frame chain laid out at made up addresses. Nothing is
// ever dereferenced: links are looked up by address.
type fakeStack struct {
	r     Region
	links map[uintptr]Link
}

func (s *fakeStack) region() Region {
	return s.r
}

func (s *fakeStack) link(fp uintptr) Link {
	return s.links[fp]
}

const (
	fakeLo = 0x10000
	fakeHi = 0x20000
)

// newFakeChain returns a stack with frames at 0x11000, 0x12000 and
// 0x13000 returning to 0x2000, 0x3000 and 0x4000; the last parent is null.
func newFakeChain() *fakeStack {
	return &fakeStack{
		r: Region{Lo: fakeLo, Hi: fakeHi},
		links: map[uintptr]Link{
			0x11000: {Up: 0x12000, Ret: 0x2000},
			0x12000: {Up: 0x13000, Ret: 0x3000},
			0x13000: {Up: 0, Ret: 0x4000},
		},
	}
}

func walkFake(m memory, c Cursor) []Frame {
	var frames []Frame
	for ; !c.IsEnd(); c.advance(m) {
		frames = append(frames, c.frameIn(m))
	}
	return frames
}

func TestEndCursor(t *testing.T) {
	assert.True(t, End() == End())
	assert.True(t, End().IsEnd())
	assert.Equal(t, Frame{}, End().Frame())
	assert.True(t, End().Frame().IsZero())
	assert.True(t, NewCursor(Frame{IP: 0x1234}) == End())

	c := End()
	c.Advance()
	assert.True(t, c == End())
	c.AdvanceBy(3)
	assert.True(t, c == End())
	c.UnsafeAdvance()
	assert.True(t, c == End())
}

func TestCursorAtRegionHiIsEnd(t *testing.T) {
	m := newFakeChain()
	c := cursorIn(m, Frame{FP: fakeHi, IP: 0x1234})
	assert.True(t, c.IsEnd())
	assert.True(t, c == End())
	assert.Empty(t, walkFake(m, c))
}

func TestAdvanceFollowsChain(t *testing.T) {
	m := newFakeChain()
	frames := walkFake(m, cursorIn(m, Frame{FP: 0x11000, IP: 0x1000}))
	require.Equal(t, []Frame{
		{FP: 0x11000, IP: 0x1000},
		{FP: 0x12000, IP: 0x2000},
		{FP: 0x13000, IP: 0x3000},
	}, frames)
}

func TestAdvanceStopsOnCycle(t *testing.T) {
	m := newFakeChain()
	m.links[0x13000] = Link{Up: 0x11000, Ret: 0x4000}
	frames := walkFake(m, cursorIn(m, Frame{FP: 0x11000, IP: 0x1000}))
	require.Len(t, frames, 3)
	assert.Equal(t, uintptr(0x13000), frames[2].FP)
}

func TestAdvanceStopsOnSelfLoop(t *testing.T) {
	m := newFakeChain()
	m.links[0x12000] = Link{Up: 0x12000, Ret: 0x3000}
	frames := walkFake(m, cursorIn(m, Frame{FP: 0x11000, IP: 0x1000}))
	require.Equal(t, []Frame{
		{FP: 0x11000, IP: 0x1000},
		{FP: 0x12000, IP: 0x2000},
	}, frames)
}

func TestAdvanceStopsOnParentOutsideRegion(t *testing.T) {
	m := newFakeChain()
	m.links[0x11000] = Link{Up: fakeHi + 0x100, Ret: 0x2000}
	frames := walkFake(m, cursorIn(m, Frame{FP: 0x11000, IP: 0x1000}))
	require.Equal(t, []Frame{{FP: 0x11000, IP: 0x1000}}, frames)
}

func TestAdvanceStopsOnFrameOutsideRegion(t *testing.T) {
	m := newFakeChain()
	c := cursorIn(m, Frame{FP: fakeLo - 0x100, IP: 0x1000})
	require.False(t, c.IsEnd())
	assert.Equal(t, Frame{FP: fakeLo - 0x100, IP: 0x1000}, c.frameIn(m))
	c.advance(m)
	assert.True(t, c == End())
}

func TestFramePointersIncrease(t *testing.T) {
	m := newFakeChain()
	frames := walkFake(m, cursorIn(m, Frame{FP: 0x11000, IP: 0x1000}))
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, uint64(frames[i].FP), uint64(frames[i-1].FP))
	}
}

func TestCursorCopiesAreIndependent(t *testing.T) {
	m := newFakeChain()
	c := cursorIn(m, Frame{FP: 0x11000, IP: 0x1000})
	cp := c
	require.True(t, c == cp)

	cp.advance(m)
	assert.False(t, c == cp)
	assert.Equal(t, Frame{FP: 0x11000, IP: 0x1000}, c.frameIn(m))
	assert.Equal(t, Frame{FP: 0x12000, IP: 0x2000}, cp.frameIn(m))

	c.advance(m)
	assert.True(t, c == cp)
}

func TestAdvanceBy(t *testing.T) {
	m := newFakeChain()
	start := cursorIn(m, Frame{FP: 0x11000, IP: 0x1000})

	c := start
	c.advanceBy(m, 2)
	assert.Equal(t, Frame{FP: 0x13000, IP: 0x3000}, c.frameIn(m))

	c = start
	c.advanceBy(m, 0)
	assert.True(t, c == start)

	c = start
	c.advanceBy(m, 10)
	assert.True(t, c == End())
}

func TestCursorSurvivesMovedRegion(t *testing.T) {
	m := newFakeChain()
	c := cursorIn(m, Frame{FP: 0x11000, IP: 0x1000})

	// Same chain, relocated 0x100000 higher, the way the runtime copies a
	// growing stack.
	const delta = 0x100000
	moved := &fakeStack{r: Region{Lo: fakeLo + delta, Hi: fakeHi + delta}, links: map[uintptr]Link{}}
	for fp, l := range m.links {
		up := l.Up
		if up != 0 {
			up += delta
		}
		moved.links[fp+delta] = Link{Up: up, Ret: l.Ret}
	}

	frames := walkFake(moved, c)
	require.Len(t, frames, 3)
	assert.Equal(t, Frame{FP: 0x11000 + delta, IP: 0x1000}, frames[0])
	assert.Equal(t, Frame{FP: 0x13000 + delta, IP: 0x3000}, frames[2])
}
