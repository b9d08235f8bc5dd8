package main

import (
	"io"
	"os"

	"github.com/cheggaaa/pb"
	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newProgressBar returns started byte counter for size bytes written to out.
func newProgressBar(out io.Writer, size int64) *pb.ProgressBar {
	p := pb.New64(size)
	p.Output = out
	p.SetUnits(pb.U_BYTES)
	p.ShowSpeed = true
	return p.Start()
}
