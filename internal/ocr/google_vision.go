package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoiceqc/internal/logger"
)

// MaxPagesSync is the maximum number of pages Vision processes synchronously.
const MaxPagesSync = 5

// GoogleVisionOCRService implements OCRService using Google Cloud Vision API.
type GoogleVisionOCRService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionOCRService creates a Vision-backed OCR service.
func NewGoogleVisionOCRService(ctx context.Context, cfg Config) (OCRService, error) {
	const op = "NewGoogleVisionOCRService"

	opts := credentialOptions(cfg)
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return NewGoogleVisionOCRServiceWithClient(client), nil
}

// NewGoogleVisionOCRServiceWithClient creates a Vision OCR service around an existing client.
func NewGoogleVisionOCRServiceWithClient(client *vision.ImageAnnotatorClient) OCRService {
	return &GoogleVisionOCRService{
		client: client,
		log:    logger.WithComponent("vision-ocr"),
	}
}

// ProcessPDF extracts text from a PDF document.
func (g *GoogleVisionOCRService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	result, err := g.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessPDFWithMetadata runs document text detection over every page.
func (g *GoogleVisionOCRService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := readDocument(op, pdfData)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	text, pages, err := g.collectText(fileResp)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}

	g.log.Debug().
		Int("pages", pages).
		Int("chars", len(text)).
		Msg("Vision text detection completed")

	processedAt := time.Now()
	return &OCRResult{
		Text:               text,
		PageCount:          pages,
		Engine:             EngineVision,
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}, nil
}

// collectText joins the full-text annotation of each page with newlines.
func (g *GoogleVisionOCRService) collectText(fileResp *visionpb.AnnotateFileResponse) (string, int, error) {
	pageCount := len(fileResp.Responses)
	if pageCount > MaxPagesSync {
		return "", 0, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, pageCount)
	}

	parts := make([]string, 0, pageCount)
	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return "", 0, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		if page.FullTextAnnotation != nil {
			parts = append(parts, strings.TrimRight(page.FullTextAnnotation.Text, "\n"))
		}
	}
	return strings.Join(parts, "\n"), pageCount, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// credentialOptions builds client options from inline JSON or a credentials
// file, checking the config first and the environment second.
func credentialOptions(cfg Config) []option.ClientOption {
	credJSON := cfg.CredentialsJSON
	if credJSON == "" {
		credJSON = os.Getenv("GOOGLE_CREDENTIALS")
	}
	if credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}

	credFile := cfg.CredentialsFile
	if credFile == "" {
		credFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}
