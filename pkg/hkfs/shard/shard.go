// Package shard maps content keys to their location in a two-level directory
// tree. Key "ABCDxyz..." is stored as <root>/AB/CD/ABCDxyz... which bounds the
// number of entries per directory regardless of the number of stored objects.
package shard

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
)

const (
	// DirNameLen is the number of encoded key characters in each directory name.
	DirNameLen = 2
	// Depth is the number of nested directories.
	Depth = 2
	// MinEncodedLen is the shortest encoded key that can be sharded.
	MinEncodedLen = Depth * DirNameLen
	// MinKeySize is the shortest raw key yielding MinEncodedLen characters.
	MinKeySize = 3
)

// Path is a location of an object in the tree.
type Path struct {
	Root string
	Dir1 string
	Dir2 string
	Leaf string
}

// Dir returns the directory containing the leaf.
func (p Path) Dir() string {
	return filepath.Join(p.Root, p.Dir1, p.Dir2)
}

// File returns the full path of the leaf.
func (p Path) File() string {
	return filepath.Join(p.Root, p.Dir1, p.Dir2, p.Leaf)
}

// Resolver computes Paths under a fixed root. It has no file system side
// effects.
type Resolver struct {
	root string
}

// NewResolver returns Resolver for the tree rooted at root.
func NewResolver(root string) Resolver {
	return Resolver{root: root}
}

// Root returns the tree root.
func (r Resolver) Root() string {
	return r.root
}

// Resolve returns the location of the object with key k. Returns
// [common.ErrConfiguration] if the key is too short to be sharded.
func (r Resolver) Resolve(k key.Key) (Path, error) {
	enc := key.Encode(k)
	if len(enc) < MinEncodedLen {
		return Path{}, fmt.Errorf("%w: %d-byte key %q is too short for sharding", common.ErrConfiguration, len(k), enc)
	}
	return Path{
		Root: r.root,
		Dir1: enc[:DirNameLen],
		Dir2: enc[DirNameLen : 2*DirNameLen],
		Leaf: enc,
	}, nil
}

// ParseRel decodes a key from the path of a leaf relative to the root. The
// directory components must match the leaf's prefix.
func ParseRel(rel string) (key.Key, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != Depth+1 {
		return nil, fmt.Errorf("unexpected path depth: %q", rel)
	}
	leaf := parts[Depth]
	if len(leaf) < MinEncodedLen || parts[0] != leaf[:DirNameLen] || parts[1] != leaf[DirNameLen:2*DirNameLen] {
		return nil, fmt.Errorf("leaf %q does not belong to %q", leaf, rel)
	}
	return key.Decode(leaf)
}
