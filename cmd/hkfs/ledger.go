package main

import (
	"fmt"
	"path/filepath"

	"github.com/nspcc-dev/hkfs/cmd/internal/cmdprinter"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/ledger"
	"github.com/spf13/cobra"
)

var errNoLedger = fmt.Errorf("ledger is not configured, use --%s or ledger.path", ledgerFlag)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the record of assimilated files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print numbers of recorded objects and paths",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				l, err := mustLedger(cmd)
				if err != nil {
					return err
				}
				s, err := l.Stats()
				if err != nil {
					return err
				}
				cmdprinter.PrettyPrintLedgerStats(cmd, s)
				return nil
			},
		},
		&cobra.Command{
			Use:   "lookup PATH",
			Short: "Print the key the file was assimilated with",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := mustLedger(cmd)
				if err != nil {
					return err
				}
				p, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				k, err := l.Lookup(p)
				if err != nil {
					return err
				}
				cmd.Println(k)
				return nil
			},
		},
		&cobra.Command{
			Use:   "object KEY",
			Short: "Print the record of the object",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := mustLedger(cmd)
				if err != nil {
					return err
				}
				k, err := key.Decode(args[0])
				if err != nil {
					return fmt.Errorf("invalid key %q: %w", args[0], err)
				}
				o, err := l.Object(k)
				if err != nil {
					return err
				}
				cmdprinter.PrettyPrintObject(cmd, o)
				return nil
			},
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List recorded paths and their keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				l, err := mustLedger(cmd)
				if err != nil {
					return err
				}
				return l.Paths(func(p string, k key.Key) error {
					cmd.Printf("%s\t%s\n", k, p)
					return nil
				})
			},
		},
	)
	return cmd
}

func mustLedger(cmd *cobra.Command) (*ledger.Ledger, error) {
	l, err := appFrom(cmd).openLedger()
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errNoLedger
	}
	return l, nil
}
