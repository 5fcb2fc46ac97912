package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/export"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a reconciled billing report",
	Long: `Generate a reconciled billing report from the live data.

The report is cross-checked before it is written: every grouped summary must
reconcile against the flat totals, and a mismatch fails the command.`,
	Example: `  # Full-history CSV to stdout
  billingctl report

  # One month as PDF
  billingctl report --from 2025-06-01 --to 2025-06-30 --format pdf --out june.pdf`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("from", "", "Start date (YYYY-MM-DD, inclusive)")
	reportCmd.Flags().String("to", "", "End date (YYYY-MM-DD, inclusive)")
	reportCmd.Flags().String("title", "", "Report title")
	reportCmd.Flags().String("format", "csv", "Output format: csv or pdf")
	reportCmd.Flags().String("out", "", "Output file (default: stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	title, _ := cmd.Flags().GetString("title")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	opts := export.Options{Title: title, From: domain.Date(from), To: domain.Date(to)}
	if !opts.From.IsZero() && !opts.From.IsValid() {
		return fmt.Errorf("invalid --from %q, want YYYY-MM-DD", from)
	}
	if !opts.To.IsZero() && !opts.To.IsValid() {
		return fmt.Errorf("invalid --to %q, want YYYY-MM-DD", to)
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Get(cmd.Context())
	if err != nil {
		return err
	}

	report, err := export.Build(&snap, opts)
	if err != nil {
		return fmt.Errorf("report failed integrity check: %w", err)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "csv":
		return export.WriteCSV(out, report)
	case "pdf":
		return export.WritePDF(out, report)
	default:
		return fmt.Errorf("unknown format %q, want csv or pdf", format)
	}
}
