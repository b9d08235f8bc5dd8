// Package ledger keeps a persistent record of assimilated files: which path
// was folded into which object. The storage itself only knows objects, the
// ledger answers where their names came from.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	objectsBucket = []byte("objects")
	pathsBucket   = []byte("paths")
)

// objectHeaderLen is the length of the fixed part of the object record: inode,
// size, and the number of recorded paths. The first recorded path follows.
const objectHeaderLen = 3 * 8

// Object is the ledger record of a stored object.
type Object struct {
	Key   key.Key
	Inode uint64
	Size  int64
	// Paths is the number of recorded paths referring to the object.
	Paths uint64
	// FirstPath is the path the object was first recorded from.
	FirstPath string
}

// Stats summarizes ledger contents.
type Stats struct {
	Objects uint64
	Paths   uint64
	// Bytes is the total size of distinct objects.
	Bytes uint64
	// Saved is the number of bytes that duplicates would take without
	// deduplication.
	Saved uint64
}

// Ledger is a bbolt-backed record of assimilated files. It is safe for
// concurrent use.
type Ledger struct {
	*cfg

	db *bbolt.DB
}

// Open opens or creates the ledger database at path.
func Open(path string, opts ...Option) (*Ledger, error) {
	c := defaultCfg()
	for i := range opts {
		opts[i](c)
	}

	db, err := bbolt.Open(path, c.perm, &bbolt.Options{
		Timeout: c.timeout,
		NoSync:  c.noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{objectsBucket, pathsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("can't create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	c.log.Debug("ledger opened", zap.String("path", path))
	return &Ledger{cfg: c, db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores that path was assimilated with the given result. A path that
// was recorded for another object before is moved to the new one.
func (l *Ledger) Record(path string, res juggler.Result) (err error) {
	defer common.BboltFatalHandler(&err)

	enc := []byte(key.Encode(res.Key))
	return l.db.Update(func(tx *bbolt.Tx) error {
		objects := tx.Bucket(objectsBucket)
		paths := tx.Bucket(pathsBucket)

		prev := paths.Get([]byte(path))
		if string(prev) == string(enc) {
			return updateObject(objects, enc, func(o *Object) {
				o.Inode = res.Inode
				o.Size = res.Size
			})
		}
		if prev != nil {
			if err := releaseObject(objects, prev); err != nil {
				return err
			}
		}
		if err := paths.Put([]byte(path), enc); err != nil {
			return fmt.Errorf("put path: %w", err)
		}

		if objects.Get(enc) == nil {
			return objects.Put(enc, marshalObject(Object{
				Inode:     res.Inode,
				Size:      res.Size,
				Paths:     1,
				FirstPath: path,
			}))
		}
		return updateObject(objects, enc, func(o *Object) {
			o.Inode = res.Inode
			o.Size = res.Size
			o.Paths++
		})
	})
}

// Forget removes path from the ledger. Objects with no paths left are removed
// too. Missing paths are ignored.
func (l *Ledger) Forget(path string) (err error) {
	defer common.BboltFatalHandler(&err)

	return l.db.Update(func(tx *bbolt.Tx) error {
		paths := tx.Bucket(pathsBucket)
		prev := paths.Get([]byte(path))
		if prev == nil {
			return nil
		}
		if err := releaseObject(tx.Bucket(objectsBucket), prev); err != nil {
			return err
		}
		return paths.Delete([]byte(path))
	})
}

// Lookup returns the key path was recorded with. Unknown paths are
// [common.ErrNotFound].
func (l *Ledger) Lookup(path string) (k key.Key, err error) {
	defer common.BboltFatalHandler(&err)

	err = l.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(pathsBucket).Get([]byte(path))
		if v == nil {
			return fmt.Errorf("%w: path %q", common.ErrNotFound, path)
		}
		k, err = key.Decode(string(v))
		return err
	})
	return k, err
}

// Object returns the record of the object. Unknown objects are
// [common.ErrNotFound].
func (l *Ledger) Object(k key.Key) (o Object, err error) {
	defer common.BboltFatalHandler(&err)

	err = l.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(objectsBucket).Get([]byte(key.Encode(k)))
		if v == nil {
			return fmt.Errorf("%w: object %s", common.ErrNotFound, k)
		}
		o, err = unmarshalObject(v)
		return err
	})
	o.Key = k
	return o, err
}

// Paths calls f for every recorded path and its key. Iteration stops on the
// first error returned by f.
func (l *Ledger) Paths(f func(path string, k key.Key) error) (err error) {
	defer common.BboltFatalHandler(&err)

	return l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(pathsBucket).ForEach(func(p, v []byte) error {
			k, err := key.Decode(string(v))
			if err != nil {
				return fmt.Errorf("path %q: %w", p, err)
			}
			return f(string(p), k)
		})
	})
}

// Stats returns ledger summary.
func (l *Ledger) Stats() (s Stats, err error) {
	defer common.BboltFatalHandler(&err)

	err = l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(objectsBucket).ForEach(func(k, v []byte) error {
			o, err := unmarshalObject(v)
			if err != nil {
				return fmt.Errorf("object %s: %w", k, err)
			}
			s.Objects++
			s.Paths += o.Paths
			s.Bytes += uint64(o.Size)
			if o.Paths > 1 {
				s.Saved += (o.Paths - 1) * uint64(o.Size)
			}
			return nil
		})
	})
	return s, err
}

// Observer returns juggler.Observer recording every assimilated file in l.
// Recording failures are logged.
func Observer(l *Ledger) juggler.Observer {
	return juggler.ObserverFuncs{
		OnAssimilated: func(path string, res juggler.Result) {
			if err := l.Record(path, res); err != nil {
				l.log.Error("can't record assimilated file", zap.String("path", path), zap.Error(err))
			}
		},
		OnFailed: func(path string, err error) {
			if errors.Is(err, fs.ErrNotExist) {
				if err := l.Forget(path); err != nil {
					l.log.Error("can't forget missing file", zap.String("path", path), zap.Error(err))
				}
			}
		},
	}
}

func updateObject(b *bbolt.Bucket, enc []byte, f func(*Object)) error {
	v := b.Get(enc)
	if v == nil {
		return fmt.Errorf("%w: object %s", common.ErrNotFound, enc)
	}
	o, err := unmarshalObject(v)
	if err != nil {
		return fmt.Errorf("object %s: %w", enc, err)
	}
	f(&o)
	return b.Put(enc, marshalObject(o))
}

func releaseObject(b *bbolt.Bucket, enc []byte) error {
	v := b.Get(enc)
	if v == nil {
		return nil
	}
	o, err := unmarshalObject(v)
	if err != nil {
		return fmt.Errorf("object %s: %w", enc, err)
	}
	if o.Paths <= 1 {
		return b.Delete(enc)
	}
	o.Paths--
	return b.Put(enc, marshalObject(o))
}

func marshalObject(o Object) []byte {
	buf := make([]byte, objectHeaderLen+len(o.FirstPath))
	binary.BigEndian.PutUint64(buf, o.Inode)
	binary.BigEndian.PutUint64(buf[8:], uint64(o.Size))
	binary.BigEndian.PutUint64(buf[16:], o.Paths)
	copy(buf[objectHeaderLen:], o.FirstPath)
	return buf
}

func unmarshalObject(v []byte) (Object, error) {
	if len(v) < objectHeaderLen {
		return Object{}, fmt.Errorf("invalid record length %d", len(v))
	}
	return Object{
		Inode:     binary.BigEndian.Uint64(v),
		Size:      int64(binary.BigEndian.Uint64(v[8:])),
		Paths:     binary.BigEndian.Uint64(v[16:]),
		FirstPath: string(v[objectHeaderLen:]),
	}, nil
}
