//go:build !linux

package hktree

import "io/fs"

func newSpecificWriter(string, fs.FileMode, bool) writer {
	return nil
}
