// Package ocr turns invoice documents into plain text for field extraction.
//
// Three engines are available behind the same OCRService interface:
//   - pdf: reads the embedded text layer of a PDF locally (default, no credentials)
//   - vision: Google Cloud Vision document text detection, for scanned PDFs
//   - documentai: Google Document AI OCR processor, for scanned PDFs with complex layout
//
// The Google engines read credentials from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path) and fall back to application
// default credentials.
//
// Cloud API limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Vision processes at most 5 pages synchronously
package ocr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Engine names accepted by NewService.
const (
	EnginePDF        = "pdf"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
)

// MaxFileSizeBytes is the maximum document size accepted by every engine (20MB).
const MaxFileSizeBytes = 20 * 1024 * 1024

// OCRService defines the interface for document text extraction.
type OCRService interface {
	// ProcessPDF extracts text from a PDF document, pages joined by newlines.
	ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error)

	// ProcessPDFWithMetadata extracts text along with processing information.
	ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error)

	// Close releases any client connections held by the service.
	Close() error
}

// OCRResult contains extracted text with metadata.
type OCRResult struct {
	Text               string        `json:"text"`
	PageCount          int           `json:"page_count"`
	Engine             string        `json:"engine"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Config selects and configures an engine.
type Config struct {
	Engine string

	// Google Cloud settings, used by the vision and documentai engines.
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsJSON string
	CredentialsFile string

	Timeout time.Duration
}

// DefaultConfig returns a Config for the local PDF engine.
func DefaultConfig() Config {
	return Config{
		Engine:   EnginePDF,
		Location: "us",
		Timeout:  60 * time.Second,
	}
}

// NewService creates the OCRService named by cfg.Engine.
func NewService(ctx context.Context, cfg Config) (OCRService, error) {
	const op = "NewService"

	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EnginePDF:
		return NewPDFTextService(), nil
	case EngineVision:
		return NewGoogleVisionOCRService(ctx, cfg)
	case EngineDocumentAI:
		return NewDocumentAIOCRService(ctx, cfg)
	default:
		return nil, WrapOCRError(op, ErrUnknownEngine, fmt.Sprintf("engine %q", cfg.Engine))
	}
}

// readDocument reads and size-checks a PDF payload.
func readDocument(op string, pdfData io.Reader) ([]byte, error) {
	pdfBytes, err := io.ReadAll(io.LimitReader(pdfData, MaxFileSizeBytes+1))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("more than %d bytes", MaxFileSizeBytes))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}
	return pdfBytes, nil
}
