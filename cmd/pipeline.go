package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoiceqc/internal/config"
	"invoiceqc/internal/invoice"
	"invoiceqc/internal/ocr"
	"invoiceqc/internal/report"
	"invoiceqc/pkg/models"
)

// outputOptions are the report sinks shared by validate, full-run and watch.
type outputOptions struct {
	reportPath string
	xlsxPath   string
	sheetURL   string
	sheetName  string
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("report", "", "Output report JSON file (required)")
	cmd.Flags().String("xlsx", "", "Also write an XLSX report to this path")
	cmd.Flags().String("sheet-url", "", "Append results to this Google Sheet (default: GOOGLE_SHEET_URL)")
	cmd.Flags().String("sheet-name", "", "Worksheet name for --sheet-url (default: GOOGLE_SHEET_WORKSHEET)")
	_ = cmd.MarkFlagRequired("report")
}

func readOutputFlags(cmd *cobra.Command) outputOptions {
	opts := outputOptions{}
	opts.reportPath, _ = cmd.Flags().GetString("report")
	opts.xlsxPath, _ = cmd.Flags().GetString("xlsx")
	opts.sheetURL, _ = cmd.Flags().GetString("sheet-url")
	opts.sheetName, _ = cmd.Flags().GetString("sheet-name")

	if opts.sheetURL == "" {
		opts.sheetURL = cfg.GoogleSheetURL
	}
	if opts.sheetName == "" {
		opts.sheetName = cfg.GoogleSheetWorksheet
	}
	return opts
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("ocr-engine", "", "Text source for PDFs: pdf, vision or documentai (default: OCR_ENGINE)")
	cmd.Flags().Int("workers", 0, "Documents and records processed concurrently (default: BATCH_WORKERS)")
}

// effectiveConfig applies --ocr-engine and --workers on top of cfg.
func effectiveConfig(cmd *cobra.Command) *config.Config {
	c := *cfg
	if cmd.Flags().Lookup("ocr-engine") != nil {
		if engine, _ := cmd.Flags().GetString("ocr-engine"); engine != "" {
			c.OCREngine = strings.ToLower(engine)
		}
	}
	if cmd.Flags().Lookup("workers") != nil {
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			c.BatchWorkers = workers
		}
	}
	return &c
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newProcessor builds the text source, extractor and folder processor for c.
// The returned close function releases the text source.
func newProcessor(ctx context.Context, c *config.Config, log zerolog.Logger) (*invoice.Processor, func(), error) {
	text, err := ocr.NewService(ctx, c.OCRConfig())
	if err != nil {
		return nil, nil, describeOCRError(err, log)
	}

	closeText := func() {
		if err := text.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close text source")
		}
	}

	extractor := invoice.NewExtractor(c.ExtractorConfig())
	return invoice.NewProcessor(text, extractor, c.ProcessorConfig()), closeText, nil
}

// describeOCRError turns text source setup failures into actionable messages.
func describeOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Failed to create text source")

	switch {
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("missing Google Cloud credentials. Please set one of:\n"+
			"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
			"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
			"or use --ocr-engine pdf for PDFs with a text layer.\n"+
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrInvalidConfiguration):
		return fmt.Errorf("invalid Document AI configuration. Please check your .env file:\n"+
			"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
			"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
			"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n"+
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrUnknownEngine):
		return fmt.Errorf("unknown OCR engine, expected pdf, vision or documentai: %w", err)
	default:
		return fmt.Errorf("failed to create text source: %w", err)
	}
}

// writeOutputs writes the JSON report and any optional sinks.
func writeOutputs(ctx context.Context, opts outputOptions, c *config.Config, doc report.Report, invoices []*models.Invoice, log zerolog.Logger) error {
	if err := report.WriteJSON(opts.reportPath, doc); err != nil {
		log.Error().Err(err).Str("report", opts.reportPath).Msg("Failed to write report")
		return err
	}

	if opts.xlsxPath == "" && opts.sheetURL == "" {
		return nil
	}

	rows := report.Rows(invoice.ApplyDefaults(invoices, c.DefaultCurrency), doc.Results)

	if opts.xlsxPath != "" {
		if err := report.WriteXLSX(opts.xlsxPath, rows, doc.Summary); err != nil {
			log.Error().Err(err).Str("xlsx", opts.xlsxPath).Msg("Failed to write XLSX report")
			return err
		}
		log.Info().Str("xlsx", opts.xlsxPath).Msg("XLSX report written")
	}

	if opts.sheetURL != "" {
		publisher, err := report.NewSheetsPublisher(ctx, opts.sheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets publisher: %w", err)
		}
		if err := publisher.Publish(ctx, opts.sheetName, rows); err != nil {
			return fmt.Errorf("failed to publish results to Google Sheets: %w", err)
		}
	}

	return nil
}

// finish prints the completion line and summary, and maps invalid invoices
// onto exit code 2.
func finish(w io.Writer, label, path string, summary models.BatchSummary) error {
	fmt.Fprintf(w, "%s complete: %s\n", label, path)
	report.PrintSummary(w, summary)

	if summary.InvalidInvoices > 0 {
		return &ExitCodeError{
			Code: ExitInvalid,
			Err:  fmt.Errorf("%w: %d of %d", errInvalidInvoices, summary.InvalidInvoices, summary.TotalInvoices),
		}
	}
	return nil
}

// timeoutContext bounds ctx by secs seconds; non-positive values leave it unbounded.
func timeoutContext(ctx context.Context, secs int) (context.Context, context.CancelFunc) {
	if secs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(secs)*time.Second)
}

// handleOCRError gives user-friendly messages for text source failures.
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Document text extraction failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity: %w", err)
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages for Vision (maximum 5). Try --ocr-engine documentai")
	case errors.Is(err, ocr.ErrMissingCredentials):
		return describeOCRError(err, log)
	default:
		return fmt.Errorf("text extraction failed: %w", err)
	}
}
