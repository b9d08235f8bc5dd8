package hktree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/shard"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	storagelog "github.com/nspcc-dev/hkfs/pkg/local_object_storage/internal/log"
	"github.com/nspcc-dev/hkfs/pkg/util"
	"go.uber.org/zap"
)

// Tree represents object storage as file system tree.
type Tree struct {
	Info

	hasher   hasher.Hasher
	noSync   bool
	rewrite  bool
	readOnly bool

	log     *zap.Logger
	metrics Metrics
	writer  writer
}

// Info groups the information about file storage.
type Info struct {
	// Permission bits of the directories.
	Permissions fs.FileMode

	// Full path to the root directory.
	RootPath string
}

// Metrics collects storage operation statistics.
type Metrics interface {
	AddStoreOpDuration(op string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) AddStoreOpDuration(string, time.Duration) {}

const (
	// DefaultPerm is a default permission mode of directories.
	DefaultPerm fs.FileMode = 0o750

	// MaxReadLen limits the amount of data returned by a single Read.
	MaxReadLen = 1 << 31

	// tempPrefix starts names of files being written. It is not a part of
	// the key alphabet.
	tempPrefix = "#"

	minKeySize = shard.MinKeySize
)

var _ common.CRD = (*Tree)(nil)

// New returns a new Tree configured with opts. It must be initialized with
// [Tree.Init] before use.
func New(opts ...Option) *Tree {
	t := &Tree{
		Info: Info{
			Permissions: DefaultPerm,
		},
		hasher:  hasher.Default(),
		log:     zap.NewNop(),
		metrics: noopMetrics{},
	}
	for i := range opts {
		opts[i](t)
	}
	t.log = t.log.With(zap.String("component", "hktree"))

	return t
}

// Hasher returns hash function of the tree.
func (t *Tree) Hasher() hasher.Hasher {
	return t.hasher
}

// Resolver returns path resolver of the tree.
func (t *Tree) Resolver() shard.Resolver {
	return shard.NewResolver(t.RootPath)
}

// ReadOnly reports whether the tree was opened in read-only mode.
func (t *Tree) ReadOnly() bool {
	return t.readOnly
}

func (t *Tree) filePerm() fs.FileMode {
	return t.Permissions &^ 0o111
}

// Path returns the location of the object with the given key.
func (t *Tree) Path(k key.Key) (shard.Path, error) {
	if len(k) != t.hasher.Size() {
		return shard.Path{}, fmt.Errorf("%w: %d-byte key, %s produces %d bytes",
			common.ErrConfiguration, len(k), t.hasher.Name(), t.hasher.Size())
	}
	return t.Resolver().Resolve(k)
}

// MkShardDirs creates directories of p if they are missing. Concurrent calls
// for the same p do not fail each other.
func (t *Tree) MkShardDirs(p shard.Path) error {
	err := util.MkdirAllX(p.Dir(), t.Permissions)
	if err != nil {
		return fmt.Errorf("create shard directory %q: %w", p.Dir(), mapWriteErr(err))
	}
	return nil
}

// Key implements common.CRD.
func (t *Tree) Key(data []byte) key.Key {
	return t.hasher.Digest(data)
}

// KeyFromFile implements common.CRD.
func (t *Tree) KeyFromFile(path string) (key.Key, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	k, err := t.hasher.DigestStream(f, hasher.DefaultChunkSize)
	if err != nil {
		return nil, fmt.Errorf("hash %q: %w", path, err)
	}
	return k, nil
}

// Create implements common.CRD.
func (t *Tree) Create(data []byte) (key.Key, error) {
	defer t.observe("create", time.Now())

	if t.readOnly {
		return nil, common.ErrReadOnly
	}

	k := t.hasher.Digest(data)
	p, err := t.Path(k)
	if err != nil {
		return nil, err
	}

	if !t.rewrite {
		if _, err := os.Lstat(p.File()); err == nil {
			t.log.Debug("object is already stored", zap.Stringer("key", k))
			return k, nil
		}
	}

	err = t.MkShardDirs(p)
	if err != nil {
		return nil, err
	}

	tf, err := t.writer.create(p.Dir())
	if err != nil {
		return nil, fmt.Errorf("create temporary file in %q: %w", p.Dir(), mapWriteErr(err))
	}
	_, err = tf.Write(data)
	if err != nil {
		tf.abort()
		return nil, fmt.Errorf("write object %s: %w", k, mapWriteErr(err))
	}

	err = t.commit(tf, k, p)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// CreateFromReader stores everything read from r. Data is hashed while being
// written to a temporary file which is then moved into place, so r is read
// only once.
func (t *Tree) CreateFromReader(r io.Reader) (key.Key, error) {
	defer t.observe("create_stream", time.Now())

	if t.readOnly {
		return nil, common.ErrReadOnly
	}

	tf, err := t.writer.create(t.RootPath)
	if err != nil {
		return nil, fmt.Errorf("create temporary file in %q: %w", t.RootPath, mapWriteErr(err))
	}

	k, err := t.hasher.DigestStream(io.TeeReader(r, tf), hasher.DefaultChunkSize)
	if err != nil {
		tf.abort()
		return nil, fmt.Errorf("copy data: %w", mapWriteErr(err))
	}

	p, err := t.Path(k)
	if err != nil {
		tf.abort()
		return nil, err
	}

	if !t.rewrite {
		if _, err := os.Lstat(p.File()); err == nil {
			tf.abort()
			t.log.Debug("object is already stored", zap.Stringer("key", k))
			return k, nil
		}
	}

	err = t.MkShardDirs(p)
	if err != nil {
		tf.abort()
		return nil, err
	}

	err = t.commit(tf, k, p)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// CreateFromFile implements common.CRD.
func (t *Tree) CreateFromFile(path string) (key.Key, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	return t.CreateFromReader(f)
}

func (t *Tree) commit(tf tempFile, k key.Key, p shard.Path) error {
	created, err := tf.commit(p.File(), t.rewrite)
	if err != nil {
		return fmt.Errorf("store object %s: %w", k, mapWriteErr(err))
	}
	if created {
		storagelog.Write(t.log, storagelog.OpField("create"), storagelog.KeyField(k))
	} else {
		t.log.Debug("object was stored concurrently", zap.Stringer("key", k))
	}
	return nil
}

// Exists implements common.CRD.
func (t *Tree) Exists(k key.Key) (bool, error) {
	defer t.observe("exists", time.Now())

	p, err := t.Path(k)
	if err != nil {
		return false, err
	}

	_, err = os.Lstat(p.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", k, err)
	}
	return true, nil
}

// OpenObject returns a reader of the object. Returns [common.ErrNotFound] if
// the object is missing. The caller must close the returned file.
func (t *Tree) OpenObject(k key.Key) (*os.File, error) {
	p, err := t.Path(k)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, k)
		}
		return nil, fmt.Errorf("open object %s: %w", k, err)
	}
	return f, nil
}

// Read implements common.CRD. Offset beyond the end of the object yields an
// empty result. At most [MaxReadLen] bytes are returned.
func (t *Tree) Read(k key.Key, offset int64, length int64) ([]byte, error) {
	defer t.observe("read", time.Now())

	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if length < 0 || length > MaxReadLen {
		length = MaxReadLen
	}

	f, err := t.OpenObject(k)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat object %s: %w", k, err)
	}
	if offset >= fi.Size() {
		return []byte{}, nil
	}
	if rest := fi.Size() - offset; rest < length {
		length = rest
	}

	data := make([]byte, length)
	n, err := f.ReadAt(data, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read object %s: %w", k, err)
	}
	return data[:n], nil
}

// Size returns the size of the object in bytes.
func (t *Tree) Size(k key.Key) (int64, error) {
	p, err := t.Path(k)
	if err != nil {
		return 0, err
	}

	fi, err := os.Lstat(p.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", common.ErrNotFound, k)
		}
		return 0, fmt.Errorf("stat object %s: %w", k, err)
	}
	return fi.Size(), nil
}

// Delete implements common.CRD. Other hard links to the object file (e.g.
// assimilated originals) are not affected. Shard directories are kept.
func (t *Tree) Delete(k key.Key) error {
	defer t.observe("delete", time.Now())

	if t.readOnly {
		return common.ErrReadOnly
	}

	p, err := t.Path(k)
	if err != nil {
		return err
	}

	err = os.Remove(p.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", common.ErrNotFound, k)
		}
		return fmt.Errorf("remove object %s: %w", k, err)
	}
	storagelog.Write(t.log, storagelog.OpField("delete"), storagelog.KeyField(k))
	return nil
}

// Iterate calls f for every stored object until f returns an error.
// Temporary and foreign files are ignored. Order is unspecified.
func (t *Tree) Iterate(f func(key.Key) error) error {
	l1, err := os.ReadDir(t.RootPath)
	if err != nil {
		return fmt.Errorf("read storage root: %w", err)
	}
	for _, d1 := range l1 {
		if !d1.IsDir() || len(d1.Name()) != shard.DirNameLen {
			continue
		}
		l2, err := os.ReadDir(filepath.Join(t.RootPath, d1.Name()))
		if err != nil {
			t.log.Warn("can't read shard directory", zap.String("dir", d1.Name()), zap.Error(err))
			continue
		}
		for _, d2 := range l2 {
			if !d2.IsDir() || len(d2.Name()) != shard.DirNameLen {
				continue
			}
			leaves, err := os.ReadDir(filepath.Join(t.RootPath, d1.Name(), d2.Name()))
			if err != nil {
				t.log.Warn("can't read shard directory",
					zap.String("dir", filepath.Join(d1.Name(), d2.Name())), zap.Error(err))
				continue
			}
			for _, leaf := range leaves {
				if !leaf.Type().IsRegular() || strings.HasPrefix(leaf.Name(), tempPrefix) {
					continue
				}
				k, err := shard.ParseRel(filepath.Join(d1.Name(), d2.Name(), leaf.Name()))
				if err != nil || len(k) != t.hasher.Size() {
					continue
				}
				if err := f(k); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (t *Tree) observe(op string, start time.Time) {
	t.metrics.AddStoreOpDuration(op, time.Since(start))
}

func mapWriteErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return common.ErrNoSpace
	}
	return err
}
