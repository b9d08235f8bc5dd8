package hktree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type writer interface {
	// create opens a file in dir which is invisible to readers until
	// committed.
	create(dir string) (tempFile, error)
	finalize() error
}

type tempFile interface {
	io.Writer
	// commit makes written data visible at p. Unless replace is set, an
	// existing p is kept and false is returned. The file is closed in any
	// case.
	commit(p string, replace bool) (bool, error)
	// abort discards written data.
	abort()
}

type genericWriter struct {
	perm  fs.FileMode
	flags int
	sync  bool
}

type genericTempFile struct {
	f    *os.File
	path string
	sync bool
}

func newGenericWriter(perm fs.FileMode, noSync bool) writer {
	return &genericWriter{
		perm:  perm,
		flags: os.O_WRONLY | os.O_CREATE | os.O_EXCL,
		sync:  !noSync,
	}
}

func (w *genericWriter) finalize() error {
	return nil
}

// create opens a uniquely named file in dir exclusively. Names start with
// tempPrefix, so they never clash with objects.
func (w *genericWriter) create(dir string) (tempFile, error) {
	p := filepath.Join(dir, tempPrefix+uuid.NewString())
	f, err := os.OpenFile(p, w.flags, w.perm)
	if err != nil {
		return nil, fmt.Errorf("open file with flags %d: %w", w.flags, err)
	}
	return &genericTempFile{f: f, path: p, sync: w.sync}, nil
}

func (t *genericTempFile) Write(p []byte) (int, error) {
	return t.f.Write(p)
}

func (t *genericTempFile) commit(p string, replace bool) (bool, error) {
	if t.sync {
		if err := t.f.Sync(); err != nil {
			t.abort()
			return false, fmt.Errorf("sync file: %w", err)
		}
	}
	if err := t.f.Close(); err != nil {
		_ = os.Remove(t.path)
		return false, fmt.Errorf("close file: %w", err)
	}

	if replace {
		if err := os.Rename(t.path, p); err != nil {
			_ = os.Remove(t.path)
			return false, fmt.Errorf("rename file %q->%q: %w", t.path, p, err)
		}
		return true, nil
	}

	// Unlike rename, link never replaces the target, so the first writer
	// wins and the others see EEXIST.
	err := os.Link(t.path, p)
	_ = os.Remove(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("link file %q->%q: %w", t.path, p, err)
	}
	return true, nil
}

func (t *genericTempFile) abort() {
	_ = t.f.Close()
	_ = os.Remove(t.path)
}
