//go:build !(linux || freebsd || netbsd || openbsd)

package juggler

import (
	"errors"
	"io/fs"
	"os"
)

var errUnsupported = errors.New("assimilation is not supported on this platform")

type fileState struct {
	dev   uint64
	ino   uint64
	nlink uint64
	size  int64
	mtime int64
	mode  fs.FileMode
}

func statFile(*os.File) (fileState, error) { return fileState{}, errUnsupported }

func lstatPath(string) (fileState, error) { return fileState{}, errUnsupported }

func openRegular(p string) (*os.File, error) { return os.Open(p) }

func lockShared(*os.File) error { return nil }

func unlock(*os.File) {}

func isCrossDevice(error) bool { return false }
