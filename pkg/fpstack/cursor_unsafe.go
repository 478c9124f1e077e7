package fpstack

// UnsafeAdvance moves c to the caller's frame without any validation: the
// Link at the current frame pointer is read and followed as is. It exists
// for callers that already established the integrity of the chain, for
// instance by a previous checked walk over the same, still live, frames.
// On a corrupt or frame-pointer-less chain it reads arbitrary memory and
// may crash the process.
func (c *Cursor) UnsafeAdvance() *Cursor {
	if c.off == 0 {
		*c = Cursor{}
		return c
	}
	m := goroutineStack{}
	hi := m.region().Hi
	l := m.link(hi - c.off)
	if l.Up == 0 {
		*c = Cursor{}
		return c
	}
	c.off = hi - l.Up
	c.ip = l.Ret
	return c
}
