package main

import (
	"os"

	"github.com/nspcc-dev/hkfs/cmd/internal/cmderr"
	"github.com/nspcc-dev/hkfs/pkg/util/grace"
)

func main() {
	ctx, cancel := grace.NewGracefulContext(os.Stderr)

	command := newCommand()
	// use stdout as default output for cmd.Print()
	command.SetOut(os.Stdout)
	err := execute(ctx, command, os.Args[1:])
	cancel()
	cmderr.ExitOnErr(err)
}
