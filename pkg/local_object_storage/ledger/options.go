package ledger

import (
	"io/fs"
	"time"

	"go.uber.org/zap"
)

type cfg struct {
	log     *zap.Logger
	timeout time.Duration
	perm    fs.FileMode
	noSync  bool
}

// Option allows setting optional parameters of the Ledger.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:     zap.NewNop(),
		timeout: time.Second,
		perm:    0o600,
	}
}

// WithLogger returns an option to specify logger.
func WithLogger(v *zap.Logger) Option {
	return func(c *cfg) {
		c.log = v
	}
}

// WithTimeout returns an option to specify how long to wait for the database
// file lock held by another process.
func WithTimeout(v time.Duration) Option {
	return func(c *cfg) {
		c.timeout = v
	}
}

// WithPerm returns an option to specify permission bits of a new database
// file.
func WithPerm(v fs.FileMode) Option {
	return func(c *cfg) {
		c.perm = v
	}
}

// WithNoSync returns an option to skip fsync after each transaction.
func WithNoSync(v bool) Option {
	return func(c *cfg) {
		c.noSync = v
	}
}
