package config

// MetricsTextfile returns the value of "textfile" config parameter from
// "metrics" section with leading ~ expanded. Metrics are written to this
// file when a command finishes, empty path disables them.
func MetricsTextfile(c *Config) (string, error) {
	return expandPath(StringSafe(c.Sub("metrics"), "textfile"))
}
