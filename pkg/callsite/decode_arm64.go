package callsite

import "golang.org/x/arch/arm64/arm64asm"

// maxCallLen is the fixed arm64 instruction size.
const maxCallLen = 4

func decodeCall(mem []byte, ret uintptr) (Call, bool) {
	if len(mem) < maxCallLen {
		return Call{}, false
	}
	inst, err := arm64asm.Decode(mem[len(mem)-maxCallLen:])
	if err != nil {
		return Call{}, false
	}
	switch inst.Op {
	case arm64asm.BL, arm64asm.BLR:
		addr := ret - maxCallLen
		return Call{Addr: addr, Len: maxCallLen, Text: arm64asm.GoSyntax(inst, uint64(addr), nil, nil)}, true
	}
	return Call{}, false
}
