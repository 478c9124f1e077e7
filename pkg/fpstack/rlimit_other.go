//go:build !unix

package fpstack

// maxGoroutineStack mirrors the runtime's default limit on 64-bit targets
// (see runtime/debug.SetMaxStack).
const maxGoroutineStack = 1 << 30

func stackLimit() (uint64, error) {
	return maxGoroutineStack, nil
}
