package invoice

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceqc/internal/ocr"
	"invoiceqc/pkg/models"
)

// stubText returns canned text for PDFs, keyed by the document body.
type stubText map[string]string

func (s stubText) ProcessPDF(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	text, ok := s[string(data)]
	if !ok {
		return "", ocr.WrapOCRError("ProcessPDF", ocr.ErrInvalidPDF, "stub")
	}
	return text, nil
}

func (s stubText) ProcessPDFWithMetadata(ctx context.Context, r io.Reader) (*ocr.OCRResult, error) {
	text, err := s.ProcessPDF(ctx, r)
	if err != nil {
		return nil, err
	}
	return &ocr.OCRResult{Text: text, Engine: "stub"}, nil
}

func (s stubText) Close() error { return nil }

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdf", "x")
	writeFile(t, dir, "a.TXT", "x")
	writeFile(t, dir, "c.png", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	paths, err := FindDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.TXT"), filepath.Join(dir, "b.pdf")}, paths)

	_, err = FindDocuments(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestExtractFolderOrderAndFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01-good.pdf", "good")
	writeFile(t, dir, "02-broken.pdf", "broken")
	writeFile(t, dir, "03-plain.txt", "Invoice No: INV-3\nSeller: Plain Co")
	writeFile(t, dir, "04-empty.txt", "   \n")

	text := stubText{"good": "Invoice No: INV-1\nSeller: ACME\nTotal: 10"}
	p := NewProcessor(text, NewExtractor(DefaultExtractorConfig()), ProcessorConfig{Workers: 3})

	invoices, err := p.ExtractFolder(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, invoices, 4)

	assert.Equal(t, "01-good.pdf", invoices[0].SourceFile)
	assert.Equal(t, "INV-1", models.Value(invoices[0].InvoiceNumber))
	assert.Empty(t, invoices[0].Error)

	assert.Equal(t, "02-broken.pdf", invoices[1].SourceFile)
	assert.Nil(t, invoices[1].InvoiceNumber)
	assert.True(t, strings.HasPrefix(invoices[1].Error, "extraction_failed: "))

	assert.Equal(t, "INV-3", models.Value(invoices[2].InvoiceNumber))
	assert.Equal(t, "Plain Co", models.Value(invoices[2].SellerName))

	assert.Equal(t, "extraction_failed: "+ErrEmptyDocument.Error(), invoices[3].Error)
}

func TestExtractFileLimits(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", strings.Repeat("x", 64))
	writeFile(t, dir, "doc.csv", "x")
	writeFile(t, dir, "scan.pdf", "x")

	p := NewProcessor(nil, NewExtractor(DefaultExtractorConfig()), ProcessorConfig{MaxDocumentBytes: 16})

	inv := p.ExtractFile(context.Background(), filepath.Join(dir, "big.txt"))
	assert.Contains(t, inv.Error, ErrDocumentTooLarge.Error())

	inv = p.ExtractFile(context.Background(), filepath.Join(dir, "doc.csv"))
	assert.Contains(t, inv.Error, ErrUnsupportedDocument.Error())

	inv = p.ExtractFile(context.Background(), filepath.Join(dir, "scan.pdf"))
	assert.Contains(t, inv.Error, ErrUnsupportedDocument.Error())

	inv = p.ExtractFile(context.Background(), filepath.Join(dir, "absent.txt"))
	assert.Equal(t, "absent.txt", inv.SourceFile)
	assert.NotEmpty(t, inv.Error)
}

func TestExtractFileCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Invoice No: INV-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(nil, NewExtractor(DefaultExtractorConfig()), ProcessorConfig{})
	inv := p.ExtractFile(ctx, filepath.Join(dir, "a.txt"))
	assert.Equal(t, "extraction_failed: "+context.Canceled.Error(), inv.Error)
}

func TestWrapExtractionError(t *testing.T) {
	assert.Nil(t, WrapExtractionError("op", "a.pdf", nil, ""))

	err := WrapExtractionError("ExtractFile", "a.pdf", ErrEmptyDocument, "")
	assert.True(t, errors.Is(err, ErrEmptyDocument))
	assert.Equal(t, "invoice: ExtractFile failed for a.pdf: document contains no text", err.Error())
	assert.Same(t, err, WrapExtractionError("outer", "b.pdf", err, "x"))
}
