package callsite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCallARM64(t *testing.T) {
	// BL +4
	call, ok := decodeCall([]byte{0x1f, 0x20, 0x03, 0xd5, 0x01, 0x00, 0x00, 0x94}, 0x1008)
	assert.True(t, ok)
	assert.Equal(t, uintptr(0x1004), call.Addr)
	assert.Equal(t, 4, call.Len)
	assert.NotEmpty(t, call.Text)

	// BLR X1
	_, ok = decodeCall([]byte{0x20, 0x00, 0x3f, 0xd6}, 0x2004)
	assert.True(t, ok)

	// NOP
	_, ok = decodeCall([]byte{0x1f, 0x20, 0x03, 0xd5}, 0x3004)
	assert.False(t, ok)

	_, ok = decodeCall([]byte{0x00, 0x00}, 0x4002)
	assert.False(t, ok)
}
