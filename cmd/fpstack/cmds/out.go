package cmds

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	ansiAddr  = "\x1b[36m"
	ansiWarn  = "\x1b[33m"
	ansiReset = "\x1b[0m"
)

// output writes command results, colouring addresses when it is attached
// to a terminal.
type output struct {
	w     io.Writer
	color bool
}

func newOutput(w io.Writer, noColor bool) *output {
	o := &output{w: w}
	if f, ok := w.(*os.File); ok && !noColor && isatty.IsTerminal(f.Fd()) {
		o.w = colorable.NewColorable(f)
		o.color = true
	}
	return o
}

func (o *output) paint(escape, s string) string {
	if !o.color {
		return s
	}
	return escape + s + ansiReset
}

func (o *output) addr(v uintptr) string {
	return o.paint(ansiAddr, fmt.Sprintf("%#x", v))
}

func (o *output) warn(s string) string {
	return o.paint(ansiWarn, s)
}

func (o *output) printf(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format, args...)
}
