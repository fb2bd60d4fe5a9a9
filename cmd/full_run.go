package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoiceqc/internal/config"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/report"
	"invoiceqc/pkg/models"
)

var fullRunCmd = &cobra.Command{
	Use:   "full-run",
	Short: "Extract a folder of documents and validate the records",
	Long: `Full-run extracts every document in a folder and validates the records
in one pass. The report contains the results, the summary and the
extracted invoices.

Exits with status 2 when any invoice is invalid.`,
	Example: `  invoiceqc full-run --pdf-dir ./invoices --report report.json

  # Scanned documents through Document AI, 4 workers
  invoiceqc full-run --pdf-dir ./scans --report report.json --ocr-engine documentai --workers 4`,
	Args: cobra.NoArgs,
	RunE: runFullRun,
}

func init() {
	rootCmd.AddCommand(fullRunCmd)

	fullRunCmd.Flags().String("pdf-dir", "", "Folder containing invoice documents (required)")
	_ = fullRunCmd.MarkFlagRequired("pdf-dir")
	addEngineFlags(fullRunCmd)
	addOutputFlags(fullRunCmd)
}

func runFullRun(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("full-run")

	pdfDir, _ := cmd.Flags().GetString("pdf-dir")
	opts := readOutputFlags(cmd)
	c := effectiveConfig(cmd)

	if err := requireDir(pdfDir); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	processor, closeText, err := newProcessor(ctx, c, log)
	if err != nil {
		return err
	}
	defer closeText()

	summary, err := fullRun(ctx, processor, invoice.NewValidator(c.ValidatorConfig()), pdfDir, opts, c, log)
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Full run", opts.reportPath, summary)
}

// fullRun extracts dir, validates the records and writes every configured sink.
func fullRun(ctx context.Context, processor *invoice.Processor, validator *invoice.Validator, dir string, opts outputOptions, c *config.Config, log zerolog.Logger) (models.BatchSummary, error) {
	invoices, err := processor.ExtractFolder(ctx, dir)
	if err != nil {
		return models.BatchSummary{}, fmt.Errorf("failed to extract folder: %w", err)
	}

	results, summary := validator.ValidateAll(invoices)

	doc := report.Report{Results: results, Summary: summary, Invoices: invoices}
	if err := writeOutputs(ctx, opts, c, doc, invoices, log); err != nil {
		return summary, err
	}

	log.Info().
		Int("total", summary.TotalInvoices).
		Int("valid", summary.ValidInvoices).
		Int("invalid", summary.InvalidInvoices).
		Str("report", opts.reportPath).
		Msg("Full run finished")

	return summary, nil
}

// printRun writes the completion line and summary without an exit code.
func printRun(w io.Writer, path string, summary models.BatchSummary) {
	fmt.Fprintf(w, "Full run complete: %s\n", path)
	report.PrintSummary(w, summary)
}
