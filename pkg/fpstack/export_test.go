package fpstack

import "sync"

func resetMaxStackSize() {
	maxStack.once = sync.Once{}
	maxStack.size = 0
}

// supported reports whether the platform gives access to goroutine stack
// bounds and frame pointers.
func supported() bool {
	return getg() != 0 && framePointer() != 0
}
