package juggler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/shard"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
	storagelog "github.com/nspcc-dev/hkfs/pkg/local_object_storage/internal/log"
	"go.uber.org/zap"
)

// Outcome is the way a file was assimilated.
type Outcome uint8

const (
	// Added means the file became a new stored object.
	Added Outcome = iota + 1
	// Linked means the file name now refers to an existing stored object.
	Linked
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Linked:
		return "linked"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Result describes an assimilated file.
type Result struct {
	Outcome Outcome
	Key     key.Key
	// Inode is the number of the inode shared by the file and the stored
	// object.
	Inode uint64
	// Links is the link count of that inode right after assimilation.
	Links uint64
	// Size is the object size in bytes.
	Size int64
}

// StagePrefix starts names that files temporarily get while their original
// names are being replaced.
const StagePrefix = ".hkfs-stage-"

// maxAttempts bounds MISS/HIT transitions caused by concurrent creation and
// deletion of the same object.
const maxAttempts = 3

var (
	errLeafExists = errors.New("object was created concurrently")
	errLeafGone   = errors.New("object was deleted concurrently")
)

// StagedError is returned when a file could not be moved back to its name
// after a failed replacement. The file's contents are kept under Staged.
type StagedError struct {
	Path   string
	Staged string
	// Cause is the reason the replacement was abandoned.
	Cause error
	// Err is the reason the file could not be restored.
	Err error
}

func (e *StagedError) Error() string {
	return fmt.Sprintf("%q is kept at %q: %v, restore failed: %v", e.Path, e.Staged, e.Cause, e.Err)
}

// Unwrap returns [common.ErrConcurrentModification] and the restore error.
func (e *StagedError) Unwrap() []error {
	return []error{common.ErrConcurrentModification, e.Err}
}

type fileID struct {
	dev, ino uint64
}

// Juggler assimilates files into hktree storage. It is safe for concurrent
// use, also by different processes working with the same storage.
type Juggler struct {
	*cfg

	store  *hktree.Tree
	locks  *keyLocker
	inodes *lru.Cache[fileID, string]

	// Called right before a new object is linked into the store and right
	// after a file is moved to its staging name. Nil outside of tests.
	beforeAdd   func(path string)
	afterStaged func(path, staged string)
}

// New returns Juggler working with the initialized store.
func New(store *hktree.Tree, opts ...Option) *Juggler {
	c := defaultCfg()
	for i := range opts {
		opts[i](c)
	}
	c.log = c.log.With(zap.String("component", "juggler"))

	j := &Juggler{
		cfg:   c,
		store: store,
		locks: newKeyLocker(),
	}
	if c.cacheSize > 0 {
		// Only fails for non-positive sizes.
		j.inodes, _ = lru.New[fileID, string](c.cacheSize)
	}
	return j
}

// Assimilate folds the regular file at path into the storage. Symbolic links
// and other non-regular files are rejected with [common.ErrNotRegular].
func (j *Juggler) Assimilate(path string) (Result, error) {
	if j.store.ReadOnly() {
		return Result{}, common.ErrReadOnly
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", path, err)
	}

	st, err := lstatPath(abs)
	if err != nil {
		return Result{}, err
	}
	if !st.mode.IsRegular() {
		return Result{}, fmt.Errorf("%w: %q is %s", common.ErrNotRegular, path, st.mode.Type())
	}

	if res, ok := j.cached(st); ok {
		j.log.Debug("file is a stored object already", zap.String("path", abs), zap.Stringer("key", res.Key))
		j.metrics.AddAssimilated(res.Outcome.String())
		return res, nil
	}

	f, err := openRegular(abs)
	if err != nil {
		return Result{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	return j.assimilate(abs, f)
}

// AssimilateFile is like Assimilate for an open file. The file's name must
// still refer to it.
func (j *Juggler) AssimilateFile(f *os.File) (Result, error) {
	if j.store.ReadOnly() {
		return Result{}, common.ErrReadOnly
	}

	abs, err := filepath.Abs(f.Name())
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", f.Name(), err)
	}
	named, err := lstatPath(abs)
	if err != nil {
		return Result{}, err
	}
	opened, err := statFile(f)
	if err != nil {
		return Result{}, err
	}
	if !named.sameInode(opened) {
		return Result{}, fmt.Errorf("%w: %q refers to another file", common.ErrConcurrentModification, f.Name())
	}
	return j.assimilate(abs, f)
}

func (j *Juggler) assimilate(path string, f *os.File) (Result, error) {
	before, err := statFile(f)
	if err != nil {
		return Result{}, err
	}
	if !before.mode.IsRegular() {
		return Result{}, fmt.Errorf("%w: %q is %s", common.ErrNotRegular, path, before.mode.Type())
	}

	if err := lockShared(f); err != nil {
		return Result{}, fmt.Errorf("%w: %w", common.ErrConcurrentModification, err)
	}
	defer unlock(f)

	k, err := j.hash(f)
	if err != nil {
		return Result{}, fmt.Errorf("hash %q: %w", path, err)
	}
	j.metrics.AddHashedBytes(before.size)

	now, err := statFile(f)
	if err != nil {
		return Result{}, err
	}
	if !before.sameContent(now) {
		return Result{}, fmt.Errorf("%w: %q changed while being hashed", common.ErrConcurrentModification, path)
	}

	p, err := j.store.Path(k)
	if err != nil {
		return Result{}, err
	}

	defer j.locks.lock(k)()

	var res Result
	for range maxAttempts {
		leaf, err := lstatPath(p.File())
		switch {
		case errors.Is(err, fs.ErrNotExist):
			res, err = j.add(path, f, before, k, p)
			if errors.Is(err, errLeafExists) {
				continue
			}
		case err != nil:
			return Result{}, fmt.Errorf("stat object %s: %w", k, err)
		default:
			res, err = j.link(path, f, before, leaf, k, p)
			if errors.Is(err, errLeafGone) {
				continue
			}
		}
		if err != nil {
			return Result{}, err
		}

		j.remember(res, before.dev, k)
		j.metrics.AddAssimilated(res.Outcome.String())
		storagelog.Write(j.log,
			storagelog.OpField(res.Outcome.String()),
			storagelog.KeyField(k),
			storagelog.PathField(path),
			zap.Uint64("inode", res.Inode))
		return res, nil
	}
	return Result{}, fmt.Errorf("%w: object %s keeps appearing and disappearing", common.ErrConcurrentModification, k)
}

func (j *Juggler) hash(f *os.File) (key.Key, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return j.store.Hasher().DigestStream(f, hasher.DefaultChunkSize)
}

// add handles a file with new contents: the hashed inode gets a name in the
// storage.
func (j *Juggler) add(path string, f *os.File, before fileState, k key.Key, p shard.Path) (Result, error) {
	if err := j.store.MkShardDirs(p); err != nil {
		return Result{}, err
	}

	if j.beforeAdd != nil {
		j.beforeAdd(path)
	}

	err := linkFile(f, path, p.File())
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return Result{}, errLeafExists
		case isCrossDevice(err):
			return Result{}, fmt.Errorf("%w: %w", common.ErrCrossDevice, err)
		default:
			return Result{}, fmt.Errorf("link %q into storage: %w", path, err)
		}
	}

	leaf, err := lstatPath(p.File())
	if err != nil {
		return Result{}, fmt.Errorf("stat new object %s: %w", k, err)
	}
	now, err := statFile(f)
	if err != nil || !leaf.sameInode(before) || !before.sameContent(now) {
		j.unlinkOwn(p.File(), before)
		return Result{}, fmt.Errorf("%w: %q changed while being linked", common.ErrConcurrentModification, path)
	}

	return Result{Outcome: Added, Key: k, Inode: leaf.ino, Links: leaf.nlink, Size: leaf.size}, nil
}

// unlinkOwn removes p if it is still a name of the inode described by st.
func (j *Juggler) unlinkOwn(p string, st fileState) {
	cur, err := lstatPath(p)
	if err != nil || !cur.sameInode(st) {
		return
	}
	if err := os.Remove(p); err != nil {
		j.log.Error("can't remove link of modified file from storage", zap.String("path", p), zap.Error(err))
	}
}

// link handles a duplicate: the file name is replaced with a link to the
// stored object.
func (j *Juggler) link(path string, f *os.File, before, leaf fileState, k key.Key, p shard.Path) (Result, error) {
	if leaf.sameInode(before) {
		return Result{Outcome: Linked, Key: k, Inode: leaf.ino, Links: leaf.nlink, Size: leaf.size}, nil
	}
	if leaf.dev != before.dev {
		return Result{}, fmt.Errorf("%w: %q", common.ErrCrossDevice, path)
	}

	staged := filepath.Join(filepath.Dir(path), StagePrefix+uuid.NewString())
	err := renameNoReplace(path, staged)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %q disappeared", common.ErrConcurrentModification, path)
		}
		return Result{}, fmt.Errorf("stage %q: %w", path, err)
	}
	if j.afterStaged != nil {
		j.afterStaged(path, staged)
	}

	if err := j.verifyStaged(staged, f, before, k); err != nil {
		return Result{}, j.restore(staged, path,
			fmt.Errorf("%w: %q: %w", common.ErrConcurrentModification, path, err))
	}

	err = os.Link(p.File(), path)
	if err != nil {
		var cause error
		switch {
		case errors.Is(err, fs.ErrNotExist) && leafGone(p.File()):
			cause = errLeafGone
		case errors.Is(err, fs.ErrExist):
			cause = fmt.Errorf("%w: %q was recreated", common.ErrConcurrentModification, path)
		case isCrossDevice(err):
			cause = fmt.Errorf("%w: %w", common.ErrCrossDevice, err)
		default:
			cause = fmt.Errorf("link object %s to %q: %w", k, path, err)
		}
		return Result{}, j.restore(staged, path, cause)
	}

	if err := os.Remove(staged); err != nil {
		j.log.Warn("can't remove staged duplicate", zap.String("path", staged), zap.Error(err))
	}

	res, err := lstatPath(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat linked %q: %w", path, err)
	}
	return Result{Outcome: Linked, Key: k, Inode: res.ino, Links: res.nlink, Size: res.size}, nil
}

func (j *Juggler) verifyStaged(staged string, f *os.File, before fileState, k key.Key) error {
	st, err := lstatPath(staged)
	if err != nil {
		return err
	}
	if !st.sameInode(before) {
		return errors.New("replaced after hashing")
	}
	now, err := statFile(f)
	if err != nil {
		return err
	}
	if !before.sameContent(now) {
		return errors.New("modified after hashing")
	}
	if j.verify == VerifyRehash {
		actual, err := j.hash(f)
		if err != nil {
			return fmt.Errorf("rehash: %w", err)
		}
		if !actual.Equal(k) {
			return errors.New("contents changed after hashing")
		}
	}
	return nil
}

func leafGone(p string) bool {
	_, err := lstatPath(p)
	return errors.Is(err, fs.ErrNotExist)
}

// restore moves staged file back to its original name and returns cause. If
// the name is taken meanwhile, the file is left under the staged name and
// *StagedError is returned instead.
func (j *Juggler) restore(staged, path string, cause error) error {
	err := renameNoReplace(staged, path)
	if err == nil {
		return cause
	}
	j.log.Error("can't restore staged file, it is kept under the staging name",
		zap.String("path", path), zap.String("staged", staged), zap.Error(err))
	return &StagedError{Path: path, Staged: staged, Cause: cause, Err: err}
}

// cached returns the result for a file that is known to be a stored object
// already, no hashing required.
func (j *Juggler) cached(st fileState) (Result, bool) {
	if j.inodes == nil {
		return Result{}, false
	}
	enc, ok := j.inodes.Get(fileID{dev: st.dev, ino: st.ino})
	if !ok {
		return Result{}, false
	}
	k, err := key.Decode(enc)
	if err != nil {
		return Result{}, false
	}
	p, err := j.store.Path(k)
	if err != nil {
		return Result{}, false
	}
	leaf, err := lstatPath(p.File())
	if err != nil || !leaf.sameInode(st) {
		j.inodes.Remove(fileID{dev: st.dev, ino: st.ino})
		return Result{}, false
	}
	return Result{Outcome: Linked, Key: k, Inode: leaf.ino, Links: leaf.nlink, Size: leaf.size}, true
}

func (j *Juggler) remember(res Result, dev uint64, k key.Key) {
	if j.inodes != nil {
		j.inodes.Add(fileID{dev: dev, ino: res.Inode}, key.Encode(k))
	}
}

// isStaged reports whether name is a staging name of a file being assimilated.
func isStaged(name string) bool {
	return strings.HasPrefix(name, StagePrefix)
}
