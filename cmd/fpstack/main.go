package main

import (
	"os"

	"github.com/hcstack/fpstack/cmd/fpstack/cmds"
	"github.com/hcstack/fpstack/pkg/logflags"
)

func main() {
	defer logflags.Close()
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
