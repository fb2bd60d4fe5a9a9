package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"invoiceqc/internal/logger"
)

// columnGapEm is the horizontal gap, in multiples of the font size, above
// which two text runs on the same row are treated as separate table columns.
const columnGapEm = 1.0

// wordGapEm is the gap above which two runs are separated by a single space.
const wordGapEm = 0.15

// PDFTextService reads the embedded text layer of a PDF without any network calls.
// Table columns are preserved as runs of two spaces so that spacing-based
// line-item detection keeps working on the output.
type PDFTextService struct {
	log zerolog.Logger
}

// NewPDFTextService creates a local PDF text service.
func NewPDFTextService() *PDFTextService {
	return &PDFTextService{log: logger.WithComponent("pdf-text")}
}

// ProcessPDF extracts text from a PDF document.
func (s *PDFTextService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	result, err := s.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessPDFWithMetadata extracts text and page count from a PDF document.
func (s *PDFTextService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := readDocument(op, pdfData)
	if err != nil {
		return nil, err
	}

	text, pages, err := s.readPages(ctx, pdfBytes)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF text layer")
	}

	s.log.Debug().
		Int("pages", pages).
		Int("chars", len(text)).
		Msg("PDF text layer extracted")

	processedAt := time.Now()
	return &OCRResult{
		Text:               text,
		PageCount:          pages,
		Engine:             EnginePDF,
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}, nil
}

// readPages walks every page row by row. The pdf library panics on some
// malformed inputs, so panics are converted into ErrInvalidPDF.
func (s *PDFTextService) readPages(ctx context.Context, pdfBytes []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	var parts []string
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, rowText(row.Content))
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}

	return strings.Join(parts, "\n"), pages, nil
}

// rowText joins the text runs of one row, inserting one space between words
// and two spaces between columns.
func rowText(runs pdf.TextHorizontal) string {
	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	var prevEnd float64
	for i, run := range sorted {
		if i > 0 {
			gap := run.X - prevEnd
			switch {
			case gap > run.FontSize*columnGapEm:
				b.WriteString("  ")
			case gap > run.FontSize*wordGapEm:
				b.WriteString(" ")
			}
		}
		b.WriteString(run.S)
		prevEnd = run.X + run.W
	}
	return strings.TrimRight(b.String(), " ")
}

// Close is a no-op; the local engine holds no connections.
func (s *PDFTextService) Close() error {
	return nil
}
