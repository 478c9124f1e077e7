package fpstack

import (
	"fmt"
	"io"
	"strconv"
)

// IPs is a view of a frame chain that only exposes the instruction address
// of every frame.
//
// Its textual form lists every address in hexadecimal, each followed by a
// single space: lowercase digits, no 0x prefix, no padding. Through fmt,
// %X selects uppercase digits and the # flag adds a 0x (0X) prefix;
// %v, %s and %x use the default form.
type IPs struct {
	begin Cursor
}

// NewIPs returns a view of the chain starting at c.
func NewIPs(c Cursor) IPs {
	return IPs{begin: c}
}

// IPCursor is a Cursor that dereferences to the instruction address only.
type IPCursor struct {
	c Cursor
}

// Begin returns a cursor at the first address of the view.
func (v IPs) Begin() IPCursor {
	return IPCursor{c: v.begin}
}

// IP returns the instruction address at the cursor, 0 at the end.
func (c IPCursor) IP() uintptr {
	return c.c.ip
}

// IsEnd reports whether the cursor is past the last address.
func (c IPCursor) IsEnd() bool {
	return c.c.IsEnd()
}

// Advance moves to the next address and returns c.
func (c *IPCursor) Advance() *IPCursor {
	c.c.Advance()
	return c
}

// AppendTo appends every address of the view to dst.
func (v IPs) AppendTo(dst []uintptr) []uintptr {
	return appendIPs(goroutineStack{}, v.begin, dst)
}

func appendIPs(m memory, c Cursor, dst []uintptr) []uintptr {
	for ; !c.IsEnd(); c.advance(m) {
		dst = append(dst, c.ip)
	}
	return dst
}

type hexStyle struct {
	upper  bool
	prefix bool
}

func (v IPs) String() string {
	return string(render(goroutineStack{}, v.begin, nil, hexStyle{}))
}

// WriteTo renders the view into w with a single Write.
func (v IPs) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(render(goroutineStack{}, v.begin, nil, hexStyle{}))
	return int64(n), err
}

// Format implements fmt.Formatter.
func (v IPs) Format(f fmt.State, verb rune) {
	if style, ok := styleOf(f, verb, "fpstack.IPs"); ok {
		f.Write(render(goroutineStack{}, v.begin, nil, style))
	}
}

// PCs is a list of instruction addresses that renders the way IPs does.
// Use it for addresses that were copied out of a walk, such as the result
// of Callers.
type PCs []uintptr

func (p PCs) String() string {
	return string(appendPCs(nil, p, hexStyle{}))
}

// WriteTo renders p into w with a single Write.
func (p PCs) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(appendPCs(nil, p, hexStyle{}))
	return int64(n), err
}

// Format implements fmt.Formatter with the verbs and flags of IPs.
func (p PCs) Format(f fmt.State, verb rune) {
	if style, ok := styleOf(f, verb, "fpstack.PCs"); ok {
		f.Write(appendPCs(nil, p, style))
	}
}

// styleOf maps a verb to a hexStyle. Unsupported verbs are reported into f
// and yield false.
func styleOf(f fmt.State, verb rune, typ string) (hexStyle, bool) {
	var style hexStyle
	switch verb {
	case 'v', 's', 'x':
	case 'X':
		style.upper = true
	default:
		fmt.Fprintf(f, "%%!%c(%s)", verb, typ)
		return style, false
	}
	style.prefix = f.Flag('#')
	return style, true
}

func appendPCs(dst []byte, pcs []uintptr, style hexStyle) []byte {
	for _, pc := range pcs {
		dst = appendHex(dst, pc, style)
		dst = append(dst, ' ')
	}
	return dst
}

func render(m memory, c Cursor, dst []byte, style hexStyle) []byte {
	for ; !c.IsEnd(); c.advance(m) {
		dst = appendHex(dst, c.ip, style)
		dst = append(dst, ' ')
	}
	return dst
}

func appendHex(dst []byte, v uintptr, style hexStyle) []byte {
	if style.prefix {
		if style.upper {
			dst = append(dst, '0', 'X')
		} else {
			dst = append(dst, '0', 'x')
		}
	}
	start := len(dst)
	dst = strconv.AppendUint(dst, uint64(v), 16)
	if style.upper {
		for i := start; i < len(dst); i++ {
			if 'a' <= dst[i] && dst[i] <= 'f' {
				dst[i] -= 'a' - 'A'
			}
		}
	}
	return dst
}
