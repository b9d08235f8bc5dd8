//go:build linux

package juggler

import (
	"errors"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// linkFile creates dst as a new name of the inode open as f. Linking through
// /proc/self/fd refers to the very inode that was hashed even if its name has
// been replaced since then. Path-based linking is used when /proc is not
// available, callers must check the result.
func linkFile(f *os.File, src, dst string) error {
	procPath := "/proc/self/fd/" + strconv.FormatUint(uint64(f.Fd()), 10)
	err := unix.Linkat(unix.AT_FDCWD, procPath, unix.AT_FDCWD, dst, unix.AT_SYMLINK_FOLLOW)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EEXIST) || errors.Is(err, unix.EXDEV) {
		return &os.LinkError{Op: "link", Old: src, New: dst, Err: err}
	}
	return os.Link(src, dst)
}

// renameNoReplace atomically renames src to dst failing if dst exists.
func renameNoReplace(src, dst string) error {
	err := unix.Renameat2(unix.AT_FDCWD, src, unix.AT_FDCWD, dst, unix.RENAME_NOREPLACE)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) {
		// File system does not support the flag.
		return linkAndRemove(src, dst)
	}
	return &os.LinkError{Op: "rename", Old: src, New: dst, Err: err}
}
