package main

import (
	"fmt"
	"io/fs"
	"sync"

	"github.com/nspcc-dev/hkfs/cmd/hkfs/config"
	"github.com/nspcc-dev/hkfs/cmd/internal/cmderr"
	"github.com/nspcc-dev/hkfs/cmd/internal/cmdprinter"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/ledger"
	"github.com/spf13/cobra"
)

const (
	verboseFlag = "verbose"
	quietFlag   = "quiet"
)

// exitCodeFailed is returned when some files could not be assimilated.
const exitCodeFailed = 2

func assimilateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assimilate PATH...",
		Short: "Fold files into the storage replacing duplicates with hard links",
		Long: `Every regular file under the given paths gets a hard link in the storage. Files
whose contents are stored already are replaced with hard links to the stored
objects. Symbolic links and special files are skipped. The files and the
storage must reside on the same file system.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAssimilate,
	}

	ff := cmd.Flags()
	ff.Int(workersFlag, 0, "Number of files processed in parallel (default GOMAXPROCS)")
	ff.String(verifyFlag, "", "Modification check before linking: stat or rehash")
	ff.BoolP(verboseFlag, "v", false, "Print every processed file")
	ff.BoolP(quietFlag, "q", false, "Do not print the summary")
	return cmd
}

func runAssimilate(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)

	store, err := a.openStore()
	if err != nil {
		return err
	}
	workers, err := config.JugglerWorkers(a.cfg)
	if err != nil {
		return err
	}
	verify, err := config.JugglerVerify(a.cfg)
	if err != nil {
		return err
	}
	cacheSize, err := config.JugglerCacheSize(a.cfg)
	if err != nil {
		return err
	}

	j := juggler.New(store,
		juggler.WithLogger(a.log),
		juggler.WithMetrics(a.metrics),
		juggler.WithWorkers(workers),
		juggler.WithVerify(verify),
		juggler.WithCacheSize(cacheSize),
	)

	verbose, _ := cmd.Flags().GetBool(verboseFlag)
	obs := observers{newPrinter(cmd, verbose)}
	l, err := a.openLedger()
	if err != nil {
		return err
	}
	if l != nil {
		obs = append(obs, ledger.Observer(l))
	}

	var total juggler.Summary
	for _, p := range args {
		sum, err := j.AssimilateTree(cmd.Context(), p, obs)
		total.Added += sum.Added
		total.Linked += sum.Linked
		total.Skipped += sum.Skipped
		total.Failed += sum.Failed
		total.Bytes += sum.Bytes
		if err != nil {
			return fmt.Errorf("assimilate %q: %w", p, err)
		}
	}

	if quiet, _ := cmd.Flags().GetBool(quietFlag); !quiet {
		cmdprinter.PrettyPrintSummary(cmd, total)
	}
	if total.Failed > 0 {
		return cmderr.ExitErr{
			Code:  exitCodeFailed,
			Cause: fmt.Errorf("%d files were not assimilated", total.Failed),
		}
	}
	return nil
}

// observers broadcasts events to every element.
type observers []juggler.Observer

func (o observers) Assimilated(path string, res juggler.Result) {
	for i := range o {
		o[i].Assimilated(path, res)
	}
}

func (o observers) Skipped(path string, mode fs.FileMode) {
	for i := range o {
		o[i].Skipped(path, mode)
	}
}

func (o observers) Failed(path string, err error) {
	for i := range o {
		o[i].Failed(path, err)
	}
}

// printer reports failures and, if verbose, every other event.
type printer struct {
	mu      sync.Mutex
	cmd     *cobra.Command
	verbose bool
}

func newPrinter(cmd *cobra.Command, verbose bool) *printer {
	return &printer{cmd: cmd, verbose: verbose}
}

func (p *printer) Assimilated(path string, res juggler.Result) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmd.Printf("%-6s %s %s\n", res.Outcome, res.Key, path)
}

func (p *printer) Skipped(path string, mode fs.FileMode) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmd.Printf("%-6s %s (%s)\n", "skip", path, mode.Type())
}

func (p *printer) Failed(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmd.PrintErrf("%s: %v\n", path, err)
}
