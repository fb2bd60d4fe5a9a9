package ocr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoiceqc/internal/logger"
)

// DocumentAIOCRService implements OCRService using a Google Document AI processor.
// Only the document text is used; entity extraction stays with the local
// pattern extractor so that every engine feeds the same rules.
type DocumentAIOCRService struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

// NewDocumentAIOCRService creates a Document AI backed OCR service.
// Requires ProjectID and ProcessorID; Location defaults to "us".
func NewDocumentAIOCRService(ctx context.Context, cfg Config) (OCRService, error) {
	const op = "NewDocumentAIOCRService"

	if cfg.ProjectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := credentialOptions(cfg)
	hasCredentials := len(opts) > 0
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		if !hasCredentials {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return &DocumentAIOCRService{
		client: client,
		config: cfg,
		log:    logger.WithComponent("documentai-ocr"),
	}, nil
}

// ProcessPDF extracts text from a PDF document.
func (d *DocumentAIOCRService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	result, err := d.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessPDFWithMetadata sends the document to the configured processor.
func (d *DocumentAIOCRService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := readDocument(op, pdfData)
	if err != nil {
		return nil, err
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, d.classifyError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	d.log.Debug().
		Int("pages", len(resp.Document.Pages)).
		Int("chars", len(resp.Document.Text)).
		Msg("Document AI OCR completed")

	processedAt := time.Now()
	return &OCRResult{
		Text:               resp.Document.Text,
		PageCount:          len(resp.Document.Pages),
		Engine:             EngineDocumentAI,
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}, nil
}

func (d *DocumentAIOCRService) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// classifyError maps Document AI status strings onto package errors.
func (d *DocumentAIOCRService) classifyError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "Unauthenticated"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapOCRError(op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapOCRError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "context deadline exceeded"):
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "context canceled"):
		return WrapOCRError(op, context.Canceled, "processing was canceled")
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAIOCRService) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
