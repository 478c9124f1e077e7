//go:build !amd64 && !arm64

package callsite

const maxCallLen = 0

func decodeCall(mem []byte, ret uintptr) (Call, bool) {
	return Call{}, false
}
