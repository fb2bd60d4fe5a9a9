package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-file]",
	Short: "Print the text a document yields, as seen by the field extractor",
	Long: `Read one PDF through the configured text source and print its text.
Useful for checking why a field was not extracted: the extractor sees
exactly this text, with table columns separated by two or more spaces.

With --extract the extracted invoice record is printed instead.`,
	Example: `  # Text layer of a PDF
  invoiceqc ocr invoice.pdf

  # Scanned PDF through Google Cloud Vision, with metadata as JSON
  invoiceqc ocr scan.pdf --ocr-engine vision --json

  # Extracted record
  invoiceqc ocr invoice.pdf --extract`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput is the JSON shape written with --json.
type OCROutput struct {
	FileName           string `json:"file_name"`
	FileSize           int64  `json:"file_size"`
	Engine             string `json:"engine"`
	PageCount          int    `json:"page_count"`
	ProcessingDuration string `json:"processing_duration"`
	Text               string `json:"text"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output text and metadata as JSON")
	ocrCmd.Flags().Bool("extract", false, "Output the extracted invoice record")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	ocrCmd.Flags().String("ocr-engine", "", "Text source: pdf, vision or documentai (default: OCR_ENGINE)")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	extract, _ := cmd.Flags().GetBool("extract")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	c := effectiveConfig(cmd)

	pdfPath := args[0]
	info, err := os.Stat(pdfPath)
	if err != nil {
		return fmt.Errorf("error accessing PDF file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file: %s", pdfPath)
	}
	if !strings.EqualFold(filepath.Ext(pdfPath), invoice.ExtPDF) {
		log.Warn().Str("file", pdfPath).Msg("File does not have .pdf extension")
	}

	ctx, cancel := signalContext()
	defer cancel()

	textSource, err := ocr.NewService(ctx, c.OCRConfig())
	if err != nil {
		return describeOCRError(err, log)
	}
	defer textSource.Close()

	f, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	log.Info().
		Str("file", pdfPath).
		Int64("size", info.Size()).
		Str("engine", c.OCREngine).
		Int("timeout", timeoutSecs).
		Msg("Reading document text")

	processCtx, cancelProcess := timeoutContext(ctx, timeoutSecs)
	defer cancelProcess()

	result, err := textSource.ProcessPDFWithMetadata(processCtx, f)
	if err != nil {
		return handleOCRError(err, log)
	}

	var out []byte
	switch {
	case extract:
		record := invoice.NewExtractor(c.ExtractorConfig()).Extract(result.Text, filepath.Base(pdfPath))
		out, err = json.MarshalIndent(record, "", "  ")
	case jsonOutput:
		out, err = json.MarshalIndent(OCROutput{
			FileName:           filepath.Base(pdfPath),
			FileSize:           info.Size(),
			Engine:             result.Engine,
			PageCount:          result.PageCount,
			ProcessingDuration: result.ProcessingDuration.Round(time.Millisecond).String(),
			Text:               result.Text,
		}, "", "  ")
	default:
		out = []byte(result.Text)
	}
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Int("bytes", len(out)).Msg("Output written")
	return nil
}
