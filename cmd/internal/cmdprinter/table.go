package cmdprinter

import (
	"strconv"

	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/ledger"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// PrettyPrintSummary prints counters of tree assimilation as a table.
func PrettyPrintSummary(cmd *cobra.Command, s juggler.Summary) {
	printTable(cmd, []string{"Added", "Linked", "Skipped", "Failed", "Bytes"}, [][]string{{
		strconv.FormatUint(s.Added, 10),
		strconv.FormatUint(s.Linked, 10),
		strconv.FormatUint(s.Skipped, 10),
		strconv.FormatUint(s.Failed, 10),
		strconv.FormatUint(s.Bytes, 10),
	}})
}

// PrettyPrintLedgerStats prints ledger summary as a table.
func PrettyPrintLedgerStats(cmd *cobra.Command, s ledger.Stats) {
	printTable(cmd, []string{"Objects", "Paths", "Bytes", "Saved"}, [][]string{{
		strconv.FormatUint(s.Objects, 10),
		strconv.FormatUint(s.Paths, 10),
		strconv.FormatUint(s.Bytes, 10),
		strconv.FormatUint(s.Saved, 10),
	}})
}

// PrettyPrintObject prints ledger record of an object.
func PrettyPrintObject(cmd *cobra.Command, o ledger.Object) {
	printTable(cmd, []string{"Key", "Inode", "Size", "Paths", "First path"}, [][]string{{
		o.Key.String(),
		strconv.FormatUint(o.Inode, 10),
		strconv.FormatInt(o.Size, 10),
		strconv.FormatUint(o.Paths, 10),
		o.FirstPath,
	}})
}

func printTable(cmd *cobra.Command, header []string, rows [][]string) {
	out := tablewriter.NewWriter(cmd.OutOrStdout())
	out.SetHeader(header)
	out.SetAlignment(tablewriter.ALIGN_RIGHT)
	out.SetAutoWrapText(false)
	out.AppendBulk(rows)
	out.Render()
}
