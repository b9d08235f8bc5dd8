package hktree

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/stretchr/testify/require"
)

func newTree(t testing.TB, opts ...Option) *Tree {
	tree := New(append([]Option{WithPath(t.TempDir()), WithNoSync(true)}, opts...)...)
	require.NoError(t, tree.Open(false))
	require.NoError(t, tree.Init())
	t.Cleanup(func() { require.NoError(t, tree.Close()) })
	return tree
}

// withGenericWriter forces the portable write path.
func withGenericWriter(tree *Tree) *Tree {
	tree.writer = newGenericWriter(tree.filePerm(), tree.noSync)
	return tree
}

func randData(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

func TestInit(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "missing")
		tree := New(WithPath(root))
		require.ErrorIs(t, tree.Init(), common.ErrConfiguration)
		_, err := os.Stat(root)
		require.True(t, os.IsNotExist(err), "root must not be created")
	})
	t.Run("root is a file", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(root, nil, 0o600))
		require.ErrorIs(t, New(WithPath(root)).Init(), common.ErrConfiguration)
	})
	t.Run("no root", func(t *testing.T) {
		require.ErrorIs(t, New().Init(), common.ErrConfiguration)
	})
}

func TestTree(t *testing.T) {
	for name, mk := range map[string]func(t *testing.T) *Tree{
		"default": func(t *testing.T) *Tree { return newTree(t) },
		"generic": func(t *testing.T) *Tree { return withGenericWriter(newTree(t)) },
		"sha256":  func(t *testing.T) *Tree { return newTree(t, WithHasher(hasher.SHA256())) },
		"blake2b": func(t *testing.T) *Tree { return newTree(t, WithHasher(hasher.BLAKE2b256())) },
		"rewrite": func(t *testing.T) *Tree { return newTree(t, WithRewrite(true)) },
		"rewrite generic": func(t *testing.T) *Tree {
			return withGenericWriter(newTree(t, WithRewrite(true)))
		},
	} {
		t.Run(name, func(t *testing.T) {
			testTree(t, mk(t))
		})
	}
}

func testTree(t *testing.T, tree *Tree) {
	const count = 5

	store := make(map[string][]byte)
	var keys []key.Key

	for i := range count {
		data := randData(10 + i*1000)
		k, err := tree.Create(data)
		require.NoError(t, err)
		require.Equal(t, tree.Key(data), k)
		keys = append(keys, k)
		store[k.String()] = data
	}

	t.Run("layout", func(t *testing.T) {
		for _, k := range keys {
			enc := key.Encode(k)
			p := filepath.Join(tree.RootPath, enc[:2], enc[2:4], enc)
			actual, err := os.ReadFile(p)
			require.NoError(t, err)
			require.Equal(t, store[enc], actual)
		}
	})

	t.Run("read", func(t *testing.T) {
		for _, k := range keys {
			actual, err := tree.Read(k, 0, -1)
			require.NoError(t, err)
			require.Equal(t, store[k.String()], actual)
		}

		_, err := tree.Read(tree.Key([]byte("missing")), 0, -1)
		require.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("read range", func(t *testing.T) {
		k := keys[count-1]
		data := store[k.String()]

		actual, err := tree.Read(k, 5, 10)
		require.NoError(t, err)
		require.Equal(t, data[5:15], actual)

		actual, err = tree.Read(k, int64(len(data)-3), 10)
		require.NoError(t, err)
		require.Equal(t, data[len(data)-3:], actual)

		actual, err = tree.Read(k, int64(len(data)), -1)
		require.NoError(t, err)
		require.Empty(t, actual)

		actual, err = tree.Read(k, int64(len(data))+100, 1)
		require.NoError(t, err)
		require.Empty(t, actual)

		actual, err = tree.Read(k, 0, 0)
		require.NoError(t, err)
		require.Empty(t, actual)

		_, err = tree.Read(k, -1, 1)
		require.Error(t, err)
	})

	t.Run("exists", func(t *testing.T) {
		for _, k := range keys {
			ok, err := tree.Exists(k)
			require.NoError(t, err)
			require.True(t, ok)
		}

		ok, err := tree.Exists(tree.Key([]byte("missing")))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("size", func(t *testing.T) {
		for _, k := range keys {
			size, err := tree.Size(k)
			require.NoError(t, err)
			require.EqualValues(t, len(store[k.String()]), size)
		}
	})

	t.Run("idempotence", func(t *testing.T) {
		data := store[keys[0].String()]
		k, err := tree.Create(data)
		require.NoError(t, err)
		require.Equal(t, keys[0], k)

		var n int
		require.NoError(t, tree.Iterate(func(key.Key) error { n++; return nil }))
		require.Equal(t, count, n)
	})

	t.Run("iterate", func(t *testing.T) {
		seen := make(map[string]struct{})
		err := tree.Iterate(func(k key.Key) error {
			_, ok := store[k.String()]
			require.True(t, ok, "object %s was not found", k)
			seen[k.String()] = struct{}{}
			return nil
		})
		require.NoError(t, err)
		require.Len(t, seen, count)

		t.Run("leave early", func(t *testing.T) {
			n := 0
			errStop := errors.New("stop")
			err := tree.Iterate(func(key.Key) error {
				if n++; n == count-1 {
					return errStop
				}
				return nil
			})
			require.ErrorIs(t, err, errStop)
			require.Equal(t, count-1, n)
		})

		t.Run("ignore garbage", func(t *testing.T) {
			p, err := tree.Path(keys[0])
			require.NoError(t, err)

			require.NoError(t, os.WriteFile(filepath.Join(p.Dir(), tempPrefix+"partial"), []byte{1}, 0o600))
			require.NoError(t, os.WriteFile(filepath.Join(p.Dir(), "foreign"), []byte{1}, 0o600))
			require.NoError(t, os.WriteFile(filepath.Join(tree.RootPath, "README"), []byte{1}, 0o600))
			require.NoError(t, os.Mkdir(filepath.Join(tree.RootPath, "long-dir"), 0o700))

			n := 0
			require.NoError(t, tree.Iterate(func(key.Key) error { n++; return nil }))
			require.Equal(t, count, n)
		})
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, tree.Delete(keys[0]))

		ok, err := tree.Exists(keys[0])
		require.NoError(t, err)
		require.False(t, ok)

		_, err = tree.Read(keys[0], 0, -1)
		require.ErrorIs(t, err, common.ErrNotFound)

		ok, err = tree.Exists(keys[1])
		require.NoError(t, err)
		require.True(t, ok)

		require.ErrorIs(t, tree.Delete(keys[0]), common.ErrNotFound)

		// Deleted object can be stored again.
		k, err := tree.Create(store[keys[0].String()])
		require.NoError(t, err)
		require.Equal(t, keys[0], k)
	})
}

func TestEmptyObject(t *testing.T) {
	tree := newTree(t)

	k, err := tree.Create(nil)
	require.NoError(t, err)
	// echo -n | b3sum
	require.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", k.Hex())

	data, err := tree.Read(k, 0, -1)
	require.NoError(t, err)
	require.Empty(t, data)

	ok, err := tree.Exists(k)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKnownLayout(t *testing.T) {
	tree := newTree(t)

	k, err := tree.Create([]byte("foobar\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(tree.RootPath, "U0", "ZZ", "U0ZZMh0u6msTrqT0yUw7T2JGIildoxUGcitHqOudcmw"))
	require.NoError(t, err)
	require.Equal(t, []byte("foobar\n"), data)
	require.Equal(t, "U0ZZMh0u6msTrqT0yUw7T2JGIildoxUGcitHqOudcmw", k.String())
}

func TestCreateFromFile(t *testing.T) {
	for name, tree := range map[string]*Tree{
		"default": newTree(t),
		"generic": withGenericWriter(newTree(t)),
	} {
		t.Run(name, func(t *testing.T) {
			data := randData(3<<20 + 5)
			src := filepath.Join(t.TempDir(), "src")
			require.NoError(t, os.WriteFile(src, data, 0o600))

			expected, err := tree.KeyFromFile(src)
			require.NoError(t, err)
			require.Equal(t, tree.Key(data), expected)

			k, err := tree.CreateFromFile(src)
			require.NoError(t, err)
			require.Equal(t, expected, k)

			actual, err := tree.Read(k, 0, -1)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, actual))

			// Source is copied, not linked.
			p, err := tree.Path(k)
			require.NoError(t, err)
			srcInfo, err := os.Stat(src)
			require.NoError(t, err)
			dstInfo, err := os.Stat(p.File())
			require.NoError(t, err)
			require.False(t, os.SameFile(srcInfo, dstInfo))

			k, err = tree.CreateFromReader(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, expected, k)

			// No temporary files are left in the root.
			entries, err := os.ReadDir(tree.RootPath)
			require.NoError(t, err)
			for _, e := range entries {
				require.False(t, strings.HasPrefix(e.Name(), tempPrefix), e.Name())
			}

			_, err = tree.CreateFromFile(filepath.Join(t.TempDir(), "missing"))
			require.Error(t, err)
		})
	}
}

func TestReadOnly(t *testing.T) {
	root := t.TempDir()

	rw := New(WithPath(root))
	require.NoError(t, rw.Open(false))
	require.NoError(t, rw.Init())
	k, err := rw.Create([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro := New(WithPath(root))
	require.NoError(t, ro.Open(true))
	require.NoError(t, ro.Init())
	require.True(t, ro.ReadOnly())

	_, err = ro.Create([]byte("other"))
	require.ErrorIs(t, err, common.ErrReadOnly)
	_, err = ro.CreateFromReader(bytes.NewReader([]byte("other")))
	require.ErrorIs(t, err, common.ErrReadOnly)
	require.ErrorIs(t, ro.Delete(k), common.ErrReadOnly)

	data, err := ro.Read(k, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), data)
}

func TestWrongKeySize(t *testing.T) {
	tree := newTree(t)

	_, err := tree.Exists(key.Key{1, 2, 3, 4})
	require.ErrorIs(t, err, common.ErrConfiguration)
	_, err = tree.Read(key.Key{1, 2, 3, 4}, 0, -1)
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestConcurrentCreate(t *testing.T) {
	for name, tree := range map[string]*Tree{
		"default": newTree(t),
		"generic": withGenericWriter(newTree(t)),
	} {
		t.Run(name, func(t *testing.T) {
			const workers = 16
			data := randData(256 << 10)

			var (
				wg   sync.WaitGroup
				keys = make([]key.Key, workers)
				errs = make([]error, workers)
			)
			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					keys[i], errs[i] = tree.Create(data)
				}()
			}
			wg.Wait()

			for i := range workers {
				require.NoError(t, errs[i])
				require.Equal(t, keys[0], keys[i])
			}

			p, err := tree.Path(keys[0])
			require.NoError(t, err)
			entries, err := os.ReadDir(p.Dir())
			require.NoError(t, err)
			require.Len(t, entries, 1)

			actual, err := tree.Read(keys[0], 0, -1)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, actual))
		})
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	tree := newTree(t)
	data := randData(4 << 20)
	k := tree.Key(data)

	var (
		wg        sync.WaitGroup
		createErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, createErr = tree.Create(data)
	}()

	// Readers either see nothing or the complete object.
	for range 100 {
		actual, err := tree.Read(k, 0, -1)
		if err != nil {
			require.ErrorIs(t, err, common.ErrNotFound)
			continue
		}
		require.Len(t, actual, len(data))
	}
	wg.Wait()
	require.NoError(t, createErr)
}

func TestCopy(t *testing.T) {
	src := newTree(t)
	dst := newTree(t)

	var keys []key.Key
	for range 3 {
		k, err := src.Create(randData(100))
		require.NoError(t, err)
		keys = append(keys, k)
	}
	_, err := dst.Create(mustRead(t, src, keys[0]))
	require.NoError(t, err)

	require.NoError(t, common.Copy(dst, src))

	for _, k := range keys {
		require.Equal(t, mustRead(t, src, k), mustRead(t, dst, k))
	}

	other := newTree(t, WithHasher(hasher.SHA256()))
	require.Error(t, common.Copy(other, src))
}

func mustRead(t *testing.T, tree *Tree, k key.Key) []byte {
	data, err := tree.Read(k, 0, -1)
	require.NoError(t, err)
	return data
}
