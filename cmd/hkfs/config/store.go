package config

import (
	"fmt"
	"io/fs"

	"github.com/mitchellh/go-homedir"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
)

const storeSection = "store"

// StorePath returns the value of "path" config parameter from "store"
// section with leading ~ expanded.
func StorePath(c *Config) (string, error) {
	return expandPath(StringSafe(c.Sub(storeSection), "path"))
}

// StoreHasher returns the hash function named by "hasher" config parameter
// from "store" section. BLAKE3 is used if the value is missing.
func StoreHasher(c *Config) (hasher.Hasher, error) {
	return hasher.ByName(StringSafe(c.Sub(storeSection), "hasher"))
}

// StorePerm returns the value of "perm" config parameter from "store"
// section. Strings are parsed as octal numbers when they start with 0.
//
// Returns hktree.DefaultPerm if the value is missing or zero.
func StorePerm(c *Config) (fs.FileMode, error) {
	v, err := Uint32(c.Sub(storeSection), "perm")
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return hktree.DefaultPerm, nil
	}
	if v&^uint32(fs.ModePerm) != 0 {
		return 0, fmt.Errorf("invalid store.perm %o: only permission bits are allowed", v)
	}
	return fs.FileMode(v), nil
}

// StoreNoSync returns the value of "no_sync" config parameter from "store"
// section.
func StoreNoSync(c *Config) bool {
	return BoolSafe(c.Sub(storeSection), "no_sync")
}

// StoreReadOnly returns the value of "read_only" config parameter from
// "store" section.
func StoreReadOnly(c *Config) bool {
	return BoolSafe(c.Sub(storeSection), "read_only")
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	res, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return res, nil
}
