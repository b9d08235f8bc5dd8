//go:build !linux

package juggler

import "os"

func linkFile(_ *os.File, src, dst string) error {
	return os.Link(src, dst)
}

func renameNoReplace(src, dst string) error {
	return linkAndRemove(src, dst)
}
