package callsite

import "golang.org/x/arch/x86/x86asm"

// maxCallLen is the longest x86 instruction.
const maxCallLen = 15

// decodeCall looks for a call instruction ending exactly at ret in mem,
// which holds the bytes right before ret. Longer encodings are tried
// first, so CALL R11 is not mistaken for CALL BX.
func decodeCall(mem []byte, ret uintptr) (Call, bool) {
	for i := 0; i+1 < len(mem); i++ {
		inst, err := x86asm.Decode(mem[i:], 64)
		if err != nil || i+inst.Len != len(mem) {
			continue
		}
		switch inst.Op {
		case x86asm.CALL, x86asm.LCALL:
			addr := ret - uintptr(inst.Len)
			return Call{Addr: addr, Len: inst.Len, Text: x86asm.GoSyntax(inst, uint64(addr), nil)}, true
		}
	}
	return Call{}, false
}
