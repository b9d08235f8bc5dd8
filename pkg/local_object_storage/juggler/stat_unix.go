//go:build linux || freebsd || netbsd || openbsd

package juggler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// fileState is a snapshot of the inode attributes used to detect changes.
type fileState struct {
	dev   uint64
	ino   uint64
	nlink uint64
	size  int64
	mtime int64
	mode  fs.FileMode
}

func newFileState(st *unix.Stat_t) fileState {
	var mode fs.FileMode
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
	case unix.S_IFDIR:
		mode = fs.ModeDir
	case unix.S_IFLNK:
		mode = fs.ModeSymlink
	default:
		mode = fs.ModeIrregular
	}
	return fileState{
		dev:   uint64(st.Dev),
		ino:   uint64(st.Ino),
		nlink: uint64(st.Nlink),
		size:  int64(st.Size),
		mtime: unix.TimespecToNsec(st.Mtim),
		mode:  mode | fs.FileMode(st.Mode&0o777),
	}
}

func statFile(f *os.File) (fileState, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return fileState{}, &fs.PathError{Op: "fstat", Path: f.Name(), Err: err}
	}
	return newFileState(&st), nil
}

func lstatPath(p string) (fileState, error) {
	var st unix.Stat_t
	if err := unix.Lstat(p, &st); err != nil {
		return fileState{}, &fs.PathError{Op: "lstat", Path: p, Err: err}
	}
	return newFileState(&st), nil
}

// openRegular opens p for reading without following a trailing symlink.
func openRegular(p string) (*os.File, error) {
	return os.OpenFile(p, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK, 0)
}

// lockShared takes a shared advisory lock on f. Writers that take exclusive
// locks are kept out while the file is being assimilated, other assimilators
// are not.
func lockShared(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB)
	if err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("%q is locked by a writer", f.Name())
		}
		return fmt.Errorf("flock %q: %w", f.Name(), err)
	}
	return nil
}

func unlock(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
