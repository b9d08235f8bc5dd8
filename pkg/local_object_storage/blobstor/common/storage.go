package common

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
)

// CRD represents hash-keyed create-read-delete object storage. Objects are
// addressed by the digest of their contents and never change once created.
type CRD interface {
	// Key returns the key data would be stored under without storing it.
	Key(data []byte) key.Key
	// KeyFromFile is like Key, but for the contents of the file at path.
	KeyFromFile(path string) (key.Key, error)

	// Create stores data and returns its key. Storing the same data twice
	// is a no-op returning the same key.
	Create(data []byte) (key.Key, error)
	// CreateFromFile stores a copy of the file at path.
	CreateFromFile(path string) (key.Key, error)

	Exists(key.Key) (bool, error)
	// Read returns up to length bytes of the object starting at offset,
	// length < 0 means "up to the end". Returns [ErrNotFound] if object
	// is missing.
	Read(k key.Key, offset int64, length int64) ([]byte, error)
	// Delete unconditionally removes the object. Returns [ErrNotFound]
	// if object is missing.
	Delete(key.Key) error
}

// Copy copies all objects from src into dst. Objects already present in dst
// are skipped. If any object cannot be stored, Copy immediately fails.
func Copy(dst CRD, src interface {
	CRD
	Iterate(func(key.Key) error) error
}) error {
	err := src.Iterate(func(k key.Key) error {
		exists, err := dst.Exists(k)
		if err != nil {
			return fmt.Errorf("check presence of object %s in the destination storage: %w", k, err)
		} else if exists {
			return nil
		}

		data, err := src.Read(k, 0, -1)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Deleted while we were iterating.
				return nil
			}
			return fmt.Errorf("read object %s: %w", k, err)
		}

		nk, err := dst.Create(data)
		if err != nil {
			return fmt.Errorf("put object %s into destination storage: %w", k, err)
		}
		if !nk.Equal(k) {
			return fmt.Errorf("object %s has key %s in the destination storage, hash functions differ", k, nk)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("iterate over source storage: %w", err)
	}

	return nil
}
