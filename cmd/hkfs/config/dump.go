package config

import (
	"fmt"

	"github.com/nspcc-dev/hkfs/cmd/internal/configvalidator"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
	"gopkg.in/yaml.v3"
)

// Effective is the configuration with all defaults applied.
type Effective struct {
	Store struct {
		Path     string `yaml:"path"`
		Hasher   string `yaml:"hasher"`
		Perm     string `yaml:"perm"`
		NoSync   bool   `yaml:"no_sync"`
		ReadOnly bool   `yaml:"read_only"`
	} `yaml:"store"`
	Juggler struct {
		Workers   int    `yaml:"workers"`
		Verify    string `yaml:"verify"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"juggler"`
	Ledger struct {
		Path string `yaml:"path"`
	} `yaml:"ledger"`
	Logger struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"logger"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

// Resolve reads and validates every known parameter of c.
func Resolve(c *Config) (Effective, error) {
	var (
		e   Effective
		err error
	)

	if e.Store.Path, err = StorePath(c); err != nil {
		return e, err
	}
	h, err := StoreHasher(c)
	if err != nil {
		return e, err
	}
	e.Store.Hasher = h.Name()
	perm, err := StorePerm(c)
	if err != nil {
		return e, err
	}
	e.Store.Perm = fmt.Sprintf("%#o", uint32(perm))
	e.Store.NoSync = StoreNoSync(c)
	e.Store.ReadOnly = StoreReadOnly(c)

	if e.Juggler.Workers, err = JugglerWorkers(c); err != nil {
		return e, err
	}
	v, err := JugglerVerify(c)
	if err != nil {
		return e, err
	}
	e.Juggler.Verify = VerifyStat
	if v == juggler.VerifyRehash {
		e.Juggler.Verify = VerifyRehash
	}
	if e.Juggler.CacheSize, err = JugglerCacheSize(c); err != nil {
		return e, err
	}

	if e.Ledger.Path, err = LedgerPath(c); err != nil {
		return e, err
	}
	e.Logger.Level = LoggerLevel(c)
	e.Logger.Encoding = LoggerEncoding(c)
	if e.Metrics.Textfile, err = MetricsTextfile(c); err != nil {
		return e, err
	}
	return e, nil
}

// Dump returns the effective configuration as YAML.
func Dump(c *Config) ([]byte, error) {
	e, err := Resolve(c)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(e)
}

// Validate checks that the configuration file has no unknown parameters.
func Validate(c *Config) error {
	return configvalidator.CheckForUnknownFields(c.v.AllSettings(), Effective{})
}
