package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON array of invoice records",
	Long: `Validate checks every record of a JSON array (as written by extract)
and writes a report with one result per record plus a batch summary.

Exits with status 2 when any invoice is invalid.`,
	Example: `  invoiceqc validate --input extracted.json --report report.json

  # Also write an XLSX workbook and append to a Google Sheet
  invoiceqc validate --input extracted.json --report report.json \
    --xlsx report.xlsx --sheet-url https://docs.google.com/spreadsheets/d/<id>/edit`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("input", "", "Input JSON file, a list of invoices (required)")
	_ = validateCmd.MarkFlagRequired("input")
	validateCmd.Flags().Int("workers", 0, "Records validated concurrently (default: BATCH_WORKERS)")
	addOutputFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("validate")

	inputPath, _ := cmd.Flags().GetString("input")
	opts := readOutputFlags(cmd)
	c := effectiveConfig(cmd)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	invoices, err := invoice.DecodeBatch(data)
	if err != nil {
		var batchErr *invoice.BatchError
		if errors.As(err, &batchErr) {
			for _, cause := range batchErr.Causes {
				log.Error().Str("cause", cause).Msg("Invalid invoice record")
			}
		}
		return fmt.Errorf("invalid input %s: %w", inputPath, err)
	}

	results, summary := invoice.NewValidator(c.ValidatorConfig()).ValidateAll(invoices)

	ctx, cancel := signalContext()
	defer cancel()

	doc := report.Report{Results: results, Summary: summary}
	if err := writeOutputs(ctx, opts, c, doc, invoices, log); err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Validation", opts.reportPath, summary)
}
