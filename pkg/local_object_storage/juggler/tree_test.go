//go:build linux

package juggler

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu          sync.Mutex
	assimilated map[string]Result
	skipped     map[string]fs.FileMode
	failed      map[string]error
}

func newRecorder() *recorder {
	return &recorder{
		assimilated: make(map[string]Result),
		skipped:     make(map[string]fs.FileMode),
		failed:      make(map[string]error),
	}
}

func (r *recorder) observer() Observer {
	return ObserverFuncs{
		OnAssimilated: func(p string, res Result) {
			r.mu.Lock()
			r.assimilated[p] = res
			r.mu.Unlock()
		},
		OnSkipped: func(p string, m fs.FileMode) {
			r.mu.Lock()
			r.skipped[p] = m
			r.mu.Unlock()
		},
		OnFailed: func(p string, err error) {
			r.mu.Lock()
			r.failed[p] = err
			r.mu.Unlock()
		},
	}
}

func TestAssimilateTree(t *testing.T) {
	for _, workers := range []int{1, 4} {
		j, work := newEnv(t, WithWorkers(workers))

		require.NoError(t, os.MkdirAll(filepath.Join(work, "a", "b"), 0o750))
		writeFile(t, filepath.Join(work, "foo"), []byte("foo"))
		writeFile(t, filepath.Join(work, "a", "foo"), []byte("foo"))
		writeFile(t, filepath.Join(work, "a", "b", "foo"), []byte("foo"))
		writeFile(t, filepath.Join(work, "a", "bar"), []byte("bar"))
		require.NoError(t, os.Symlink("foo", filepath.Join(work, "link")))
		require.NoError(t, syscall.Mkfifo(filepath.Join(work, "a", "fifo"), 0o600))
		writeFile(t, filepath.Join(work, "a", StagePrefix+"x"), []byte("staged"))

		rec := newRecorder()
		sum, err := j.AssimilateTree(context.Background(), work, rec.observer())
		require.NoError(t, err)

		require.EqualValues(t, 2, sum.Added)
		require.EqualValues(t, 2, sum.Linked)
		require.EqualValues(t, 2, sum.Skipped)
		require.Zero(t, sum.Failed)
		require.EqualValues(t, 12, sum.Bytes)

		require.Len(t, rec.assimilated, 4)
		require.Contains(t, rec.skipped, filepath.Join(work, "link"))
		require.Contains(t, rec.skipped, filepath.Join(work, "a", "fifo"))
		require.Empty(t, rec.failed)

		ino, nlink := inode(t, filepath.Join(work, "foo"))
		require.EqualValues(t, 4, nlink)
		for _, p := range []string{"a/foo", "a/b/foo"} {
			other, _ := inode(t, filepath.Join(work, p))
			require.Equal(t, ino, other)
		}

		// Second pass finds everything stored.
		sum, err = j.AssimilateTree(context.Background(), work, nil)
		require.NoError(t, err)
		require.Zero(t, sum.Added)
		require.EqualValues(t, 4, sum.Linked)
	}
}

func TestAssimilateTreeSkipsStore(t *testing.T) {
	work := t.TempDir()
	root := filepath.Join(work, "store")
	require.NoError(t, os.Mkdir(root, 0o750))

	store := hktree.New(hktree.WithPath(root), hktree.WithNoSync(true))
	require.NoError(t, store.Open(false))
	require.NoError(t, store.Init())
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	_, err := store.Create([]byte("stored"))
	require.NoError(t, err)
	writeFile(t, filepath.Join(work, "file"), []byte("file"))

	sum, err := New(store).AssimilateTree(context.Background(), work, nil)
	require.NoError(t, err)
	require.Equal(t, Summary{Added: 1, Bytes: 4}, sum)

	var keys int
	require.NoError(t, store.Iterate(func(key.Key) error { keys++; return nil }))
	require.Equal(t, 2, keys)
}

func TestAssimilateTreeSingleFile(t *testing.T) {
	j, work := newEnv(t)

	p := filepath.Join(work, "single")
	writeFile(t, p, []byte("single"))

	sum, err := j.AssimilateTree(context.Background(), p, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, sum.Added)
}

func TestAssimilateTreeErrors(t *testing.T) {
	j, work := newEnv(t)

	t.Run("missing root", func(t *testing.T) {
		_, err := j.AssimilateTree(context.Background(), filepath.Join(work, "missing"), nil)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("canceled", func(t *testing.T) {
		writeFile(t, filepath.Join(work, "f"), []byte("f"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := j.AssimilateTree(ctx, work, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
	t.Run("read-only", func(t *testing.T) {
		store := hktree.New(hktree.WithPath(t.TempDir()))
		require.NoError(t, store.Open(true))
		require.NoError(t, store.Init())
		_, err := New(store).AssimilateTree(context.Background(), work, nil)
		require.ErrorIs(t, err, common.ErrReadOnly)
	})
}
