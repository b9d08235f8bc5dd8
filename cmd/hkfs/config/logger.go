package config

const (
	// LoggerLevelDefault is a default logger level.
	LoggerLevelDefault = "warn"
	// LoggerEncodingDefault is a default log record format.
	LoggerEncodingDefault = "console"
)

// LoggerLevel returns the value of "level" config parameter
// from "logger" section.
//
// Returns LoggerLevelDefault if the value is not a non-empty string.
func LoggerLevel(c *Config) string {
	v := StringSafe(c.Sub("logger"), "level")
	if v != "" {
		return v
	}

	return LoggerLevelDefault
}

// LoggerEncoding returns the value of "encoding" config parameter
// from "logger" section.
//
// Returns LoggerEncodingDefault if the value is not a non-empty string.
func LoggerEncoding(c *Config) string {
	v := StringSafe(c.Sub("logger"), "encoding")
	if v != "" {
		return v
	}

	return LoggerEncodingDefault
}
