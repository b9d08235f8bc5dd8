package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
)

const jugglerSection = "juggler"

// Values of "verify" config parameter of "juggler" section.
const (
	// VerifyStat selects [juggler.VerifyStat].
	VerifyStat = "stat"
	// VerifyRehash selects [juggler.VerifyRehash].
	VerifyRehash = "rehash"
)

// JugglerWorkers returns the value of "workers" config parameter from
// "juggler" section.
//
// Returns GOMAXPROCS if the value is missing or zero.
func JugglerWorkers(c *Config) (int, error) {
	v, err := Int(c.Sub(jugglerSection), "workers")
	if err != nil {
		return 0, err
	}
	switch {
	case v < 0:
		return 0, fmt.Errorf("invalid juggler.workers %d", v)
	case v == 0:
		return runtime.GOMAXPROCS(0), nil
	default:
		return v, nil
	}
}

// JugglerVerify returns modification check mode from "verify" config
// parameter of "juggler" section: "stat" (default) or "rehash".
func JugglerVerify(c *Config) (juggler.Verify, error) {
	switch v := StringSafe(c.Sub(jugglerSection), "verify"); strings.ToLower(v) {
	case "", VerifyStat:
		return juggler.VerifyStat, nil
	case VerifyRehash:
		return juggler.VerifyRehash, nil
	default:
		return 0, fmt.Errorf("invalid juggler.verify %q", v)
	}
}

// JugglerCacheSize returns the value of "cache_size" config parameter from
// "juggler" section.
//
// Returns juggler.DefaultCacheSize if the value is missing. Zero disables
// the cache.
func JugglerCacheSize(c *Config) (int, error) {
	sub := c.Sub(jugglerSection)
	if sub.Value("cache_size") == nil {
		return juggler.DefaultCacheSize, nil
	}
	v, err := Int(sub, "cache_size")
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid juggler.cache_size %d", v)
	}
	return v, nil
}
