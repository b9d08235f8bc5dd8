//go:build linux

package hktree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// linuxWriter writes objects into unnamed O_TMPFILE files and links them
// into the tree via /proc/self/fd when done, so nothing is left behind if
// the process dies in the middle.
type linuxWriter struct {
	perm  uint32
	flags int
	sync  bool
}

type linuxTempFile struct {
	fd   int
	sync bool
}

func newSpecificWriter(root string, perm fs.FileMode, noSync bool) writer {
	flags := unix.O_WRONLY | unix.O_TMPFILE | unix.O_CLOEXEC
	fd, err := unix.Open(root, flags, uint32(perm))
	if err != nil {
		return nil // Which means that OS-specific writer can't be created and Tree should use the generic one.
	}
	_ = unix.Close(fd) // Don't care about error.
	return &linuxWriter{
		perm:  uint32(perm),
		flags: flags,
		sync:  !noSync,
	}
}

func (w *linuxWriter) finalize() error {
	return nil
}

func (w *linuxWriter) create(dir string) (tempFile, error) {
	fd, err := unix.Open(dir, w.flags, w.perm)
	if err != nil {
		return nil, fmt.Errorf("unix open: %w", err)
	}
	return &linuxTempFile{fd: fd, sync: w.sync}, nil
}

func (t *linuxTempFile) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		n, err := unix.Write(t.fd, p[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return written, fmt.Errorf("unix write: %w", err)
		}
		if n == 0 {
			return written, errors.New("incomplete unix write")
		}
		written += n
	}
	return written, nil
}

func (t *linuxTempFile) commit(p string, replace bool) (bool, error) {
	defer func() { _ = unix.Close(t.fd) }()

	if t.sync {
		if err := unix.Fdatasync(t.fd); err != nil {
			return false, fmt.Errorf("unix fdatasync: %w", err)
		}
	}

	target := p
	if replace {
		target = filepath.Join(filepath.Dir(p), tempPrefix+uuid.NewString())
	}

	procPath := "/proc/self/fd/" + strconv.Itoa(t.fd)
	err := unix.Linkat(unix.AT_FDCWD, procPath, unix.AT_FDCWD, target, unix.AT_SYMLINK_FOLLOW)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return false, nil
		}
		return false, fmt.Errorf("unix linkat: %w", err)
	}

	if replace {
		if err := os.Rename(target, p); err != nil {
			_ = os.Remove(target)
			return false, fmt.Errorf("rename file %q->%q: %w", target, p, err)
		}
	}
	return true, nil
}

func (t *linuxTempFile) abort() {
	_ = unix.Close(t.fd)
}
