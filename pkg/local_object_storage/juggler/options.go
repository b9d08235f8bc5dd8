package juggler

import (
	"go.uber.org/zap"
)

// Verify defines how files are checked for modifications before their name
// is replaced with a link to the stored object.
type Verify uint8

const (
	// VerifyStat compares size and modification time.
	VerifyStat Verify = iota
	// VerifyRehash additionally hashes the contents once again.
	VerifyRehash
)

// DefaultCacheSize is a default number of inodes remembered between calls.
const DefaultCacheSize = 1 << 14

// Metrics collects assimilation statistics.
type Metrics interface {
	AddAssimilated(outcome string)
	AddSkipped()
	AddFailed()
	AddHashedBytes(n int64)
}

type noopMetrics struct{}

func (noopMetrics) AddAssimilated(string) {}
func (noopMetrics) AddSkipped()           {}
func (noopMetrics) AddFailed()            {}
func (noopMetrics) AddHashedBytes(int64)  {}

type cfg struct {
	log       *zap.Logger
	metrics   Metrics
	verify    Verify
	workers   int
	cacheSize int
}

// Option allows setting optional parameters of the Juggler.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:       zap.NewNop(),
		metrics:   noopMetrics{},
		verify:    VerifyStat,
		workers:   1,
		cacheSize: DefaultCacheSize,
	}
}

// WithLogger returns an option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l
	}
}

// WithMetrics returns an option to specify metrics collector.
func WithMetrics(m Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}

// WithVerify returns an option to specify modification check mode.
func WithVerify(v Verify) Option {
	return func(c *cfg) {
		c.verify = v
	}
}

// WithWorkers returns an option to specify the number of files assimilated
// in parallel by AssimilateTree.
func WithWorkers(n int) Option {
	return func(c *cfg) {
		c.workers = n
	}
}

// WithCacheSize returns an option to specify the number of inodes whose keys
// are remembered. Names of the inodes that are already stored objects are
// recognized without hashing. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(c *cfg) {
		c.cacheSize = n
	}
}
