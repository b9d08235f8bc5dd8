package config

// LedgerPath returns the value of "path" config parameter from "ledger"
// section with leading ~ expanded. Empty path disables the ledger.
func LedgerPath(c *Config) (string, error) {
	return expandPath(StringSafe(c.Sub("ledger"), "path"))
}
