package hktree

import (
	"io/fs"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"go.uber.org/zap"
)

// Option is a Tree construction option.
type Option func(*Tree)

// WithPath sets root directory of the tree. The directory must exist.
func WithPath(p string) Option {
	return func(t *Tree) {
		t.RootPath = p
	}
}

// WithPerm sets permission bits of created directories. Object files get
// the same bits without execution ones.
func WithPerm(p fs.FileMode) Option {
	return func(t *Tree) {
		t.Permissions = p
	}
}

// WithHasher sets hash function used to derive object keys. BLAKE3 is used by
// default.
func WithHasher(h hasher.Hasher) Option {
	return func(t *Tree) {
		t.hasher = h
	}
}

// WithNoSync disables syncing written data to the disk before making it
// visible.
func WithNoSync(noSync bool) Option {
	return func(t *Tree) {
		t.noSync = noSync
	}
}

// WithRewrite makes Create rewrite objects that are already stored instead
// of trusting the existing contents.
func WithRewrite(rewrite bool) Option {
	return func(t *Tree) {
		t.rewrite = rewrite
	}
}

// WithLogger sets logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		t.log = l
	}
}

// WithMetrics sets metrics collector.
func WithMetrics(m Metrics) Option {
	return func(t *Tree) {
		t.metrics = m
	}
}
