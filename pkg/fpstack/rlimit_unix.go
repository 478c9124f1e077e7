//go:build unix

package fpstack

import "golang.org/x/sys/unix"

var getrlimit = unix.Getrlimit

func stackLimit() (uint64, error) {
	var rl unix.Rlimit
	if err := getrlimit(unix.RLIMIT_STACK, &rl); err != nil {
		return 0, err
	}
	return uint64(rl.Cur), nil
}
