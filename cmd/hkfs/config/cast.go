package config

import (
	"fmt"

	"github.com/spf13/cast"
)

// StringSafe reads configuration value
// from c by name and casts it to string.
//
// Returns "" if value can not be casted.
func StringSafe(c *Config, name string) string {
	return cast.ToString(c.Value(name))
}

// BoolSafe reads configuration value
// from c by name and casts it to bool.
//
// Returns false if value can not be casted.
func BoolSafe(c *Config, name string) bool {
	return cast.ToBool(c.Value(name))
}

// Int reads configuration value
// from c by name and casts it to int.
//
// Returns 0 and no error for missing values.
func Int(c *Config, name string) (int, error) {
	v := c.Value(name)
	if v == nil {
		return 0, nil
	}
	x, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", c.key(name), err)
	}
	return x, nil
}

// Uint32 reads configuration value
// from c by name and casts it to uint32.
//
// Returns 0 and no error for missing values. Strings with leading 0 are
// parsed as octal numbers.
func Uint32(c *Config, name string) (uint32, error) {
	v := c.Value(name)
	if v == nil {
		return 0, nil
	}
	x, err := cast.ToUint32E(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", c.key(name), err)
	}
	return x, nil
}
