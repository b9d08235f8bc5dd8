package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/hkfs/cmd/hkfs/config"
	"github.com/nspcc-dev/hkfs/misc"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/ledger"
	"github.com/nspcc-dev/hkfs/pkg/metrics"
	"github.com/nspcc-dev/hkfs/pkg/util/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds resources shared by commands. They are created on demand and
// released once the command finishes.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.StoreMetrics

	store  *hktree.Tree
	ledger *ledger.Ledger
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func newCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "hkfs",
		Short: "Hash-keyed file storage",
		Long: `hkfs stores files under the hash of their contents in a sharded directory
tree and deduplicates existing files by replacing copies with hard links to
the stored objects.`,
		RunE:              entryPoint,
		PersistentPreRunE: initApp,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	command.Flags().Bool(versionFlag, false, "Application version")
	initGlobalFlags(command.PersistentFlags())

	command.AddCommand(
		keyCmd(),
		createCmd(),
		readCmd(),
		existsCmd(),
		deleteCmd(),
		listCmd(),
		copyCmd(),
		assimilateCmd(),
		ledgerCmd(),
		configCmd(),
	)
	return command
}

// execute runs the command with args and releases resources it has
// acquired.
func execute(ctx context.Context, command *cobra.Command, args []string) error {
	a := new(app)
	command.SetArgs(args)
	err := command.ExecuteContext(context.WithValue(ctx, appKey{}, a))
	return errors.Join(err, a.close())
}

func entryPoint(cmd *cobra.Command, _ []string) error {
	printVersion, _ := cmd.Flags().GetBool(versionFlag)
	if printVersion {
		cmd.Print(misc.BuildInfo("hkfs"))

		return nil
	}

	return cmd.Usage()
}

func initApp(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)

	cfgPath, _ := cmd.Flags().GetString(configFlag)

	var err error
	a.cfg, err = config.New(cfgPath)
	if err != nil {
		return err
	}
	if err = config.Validate(a.cfg); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", a.cfg.ConfigFileUsed(), err)
	}
	applyFlags(cmd.Flags(), a.cfg)

	var prm logger.Prm
	if err = prm.SetLevelString(config.LoggerLevel(a.cfg)); err != nil {
		return err
	}
	if err = prm.SetEncoding(config.LoggerEncoding(a.cfg)); err != nil {
		return err
	}
	a.log, err = logger.NewLogger(prm)
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewStoreMetrics(a.registry, misc.Version)
	return nil
}

// openStore returns the initialized storage.
func (a *app) openStore() (*hktree.Tree, error) {
	if a.store != nil {
		return a.store, nil
	}

	opts, err := a.storeOptions()
	if err != nil {
		return nil, err
	}
	p, err := config.StorePath(a.cfg)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, fmt.Errorf("storage path is not set, use --%s or store.path", storeFlag)
	}

	t := hktree.New(append(opts, hktree.WithPath(p))...)
	if err := t.Open(config.StoreReadOnly(a.cfg)); err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := t.Init(); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.store = t
	return t, nil
}

// storeOptions returns storage options from the configuration, except for
// the path.
func (a *app) storeOptions() ([]hktree.Option, error) {
	h, err := config.StoreHasher(a.cfg)
	if err != nil {
		return nil, err
	}
	perm, err := config.StorePerm(a.cfg)
	if err != nil {
		return nil, err
	}
	return []hktree.Option{
		hktree.WithHasher(h),
		hktree.WithPerm(perm),
		hktree.WithNoSync(config.StoreNoSync(a.cfg)),
		hktree.WithLogger(a.log),
		hktree.WithMetrics(a.metrics),
	}, nil
}

// openLedger returns the ledger or nil if it is not configured.
func (a *app) openLedger() (*ledger.Ledger, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}

	p, err := config.LedgerPath(a.cfg)
	if err != nil || p == "" {
		return nil, err
	}
	l, err := ledger.Open(p,
		ledger.WithLogger(a.log.With(zap.String("component", "ledger"))),
		ledger.WithNoSync(config.StoreNoSync(a.cfg)))
	if err != nil {
		return nil, err
	}
	a.ledger = l
	return l, nil
}

func (a *app) close() error {
	var errs []error

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if a.registry != nil {
		p, err := config.MetricsTextfile(a.cfg)
		if err == nil && p != "" {
			err = metrics.WriteTextfile(p, a.registry)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}
