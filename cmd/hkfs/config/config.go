package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is a prefix of ENV variables overriding configuration values:
// store.path is read from HKFS_STORE_PATH.
const EnvPrefix = "hkfs"

// EnvSeparator is a section separator in ENV variables.
const EnvSeparator = "_"

const separator = "."

// Config represents a group of named values structured
// by tree type.
//
// Sub-trees are named configuration sub-sections,
// leaves are named configuration values.
// Names are of string type.
type Config struct {
	v *viper.Viper

	path []string
}

// New creates a new Config instance. Values are read from the file at path
// if it is not empty, file format is detected by its extension. ENV
// variables take precedence over the file.
func New(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(separator, EnvSeparator))

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		v: v,
	}, nil
}

// Sub returns subsection of the Config by name.
func (x *Config) Sub(name string) *Config {
	return &Config{
		v:    x.v,
		path: append(x.path[:len(x.path):len(x.path)], name),
	}
}

// Value returns configuration value by name.
//
// Result can be casted to a particular type
// via corresponding function (e.g. StringSafe).
// Note: casting via Go `.()` operator is not
// recommended.
func (x *Config) Value(name string) any {
	return x.v.Get(x.key(name))
}

// Set overrides configuration value by name, command line flags are applied
// this way.
func (x *Config) Set(name string, value any) {
	x.v.Set(x.key(name), value)
}

// ConfigFileUsed returns the path of the configuration file, empty if there
// is none.
func (x *Config) ConfigFileUsed() string {
	return x.v.ConfigFileUsed()
}

func (x *Config) key(name string) string {
	return strings.Join(append(x.path[:len(x.path):len(x.path)], name), separator)
}
