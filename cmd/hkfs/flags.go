package main

import (
	"github.com/nspcc-dev/hkfs/cmd/hkfs/config"
	"github.com/spf13/pflag"
)

const (
	versionFlag = "version"
	configFlag  = "config"

	storeFlag    = "store"
	hasherFlag   = "hasher"
	readOnlyFlag = "read-only"
	noSyncFlag   = "no-sync"
	ledgerFlag   = "ledger"
	logLevelFlag = "log-level"

	workersFlag = "workers"
	verifyFlag  = "verify"
)

// flagKeys maps flags to configuration parameters they override.
var flagKeys = map[string]string{
	storeFlag:    "store.path",
	hasherFlag:   "store.hasher",
	readOnlyFlag: "store.read_only",
	noSyncFlag:   "store.no_sync",
	ledgerFlag:   "ledger.path",
	logLevelFlag: "logger.level",
	workersFlag:  "juggler.workers",
	verifyFlag:   "juggler.verify",
}

func initGlobalFlags(ff *pflag.FlagSet) {
	ff.StringP(configFlag, "c", "", "Path to the configuration file (YAML or JSON)")
	ff.StringP(storeFlag, "s", "", "Storage root directory")
	ff.String(hasherFlag, "", "Hash function: blake3, sha256 or blake2b")
	ff.Bool(readOnlyFlag, false, "Open storage in read-only mode")
	ff.Bool(noSyncFlag, false, "Do not sync written objects to the disk")
	ff.String(ledgerFlag, "", "Path to the ledger database")
	ff.String(logLevelFlag, "", "Logging level: debug, info, warn or error")
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(ff *pflag.FlagSet, c *config.Config) {
	ff.Visit(func(f *pflag.Flag) {
		if k, ok := flagKeys[f.Name]; ok {
			c.Set(k, f.Value.String())
		}
	})
}
