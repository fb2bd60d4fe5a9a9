package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoiceqc/internal/logger"
	"invoiceqc/internal/report"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract invoice records from a folder of documents into JSON",
	Long: `Extract reads every PDF and plain-text document in a folder, in name
order, and writes one invoice record per document to a JSON array.

Documents that cannot be read produce a record carrying only source_file
and an "extraction_failed: ..." error, so the output always has one
record per document.`,
	Example: `  # Extract PDFs with a text layer
  invoiceqc extract --pdf-dir ./invoices --output extracted.json

  # Extract scanned PDFs through Google Cloud Vision
  invoiceqc extract --pdf-dir ./scans --output extracted.json --ocr-engine vision`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("pdf-dir", "", "Folder containing invoice documents (required)")
	extractCmd.Flags().StringP("output", "o", "", "Output JSON file (required)")
	_ = extractCmd.MarkFlagRequired("pdf-dir")
	_ = extractCmd.MarkFlagRequired("output")
	addEngineFlags(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	pdfDir, _ := cmd.Flags().GetString("pdf-dir")
	outputPath, _ := cmd.Flags().GetString("output")
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

	log.Info().
		Str("dir", pdfDir).
		Str("engine", c.OCREngine).
		Int("workers", c.BatchWorkers).
		Msg("Starting extraction")

	invoices, err := processor.ExtractFolder(ctx, pdfDir)
	if err != nil {
		return fmt.Errorf("failed to extract folder: %w", err)
	}

	if err := report.WriteJSON(outputPath, invoices); err != nil {
		return err
	}

	log.Info().Int("records", len(invoices)).Str("output", outputPath).Msg("Extraction written")
	fmt.Fprintf(cmd.OutOrStdout(), "Extraction complete: %s\n", outputPath)
	return nil
}

// requireDir checks that dir exists and is a directory.
func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("document folder not found: %s", dir)
		}
		return fmt.Errorf("error accessing document folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}
