package invoice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"invoiceqc/internal/logger"
	"invoiceqc/internal/ocr"
	"invoiceqc/pkg/models"
)

// Supported document extensions.
const (
	ExtPDF  = ".pdf"
	ExtText = ".txt"
)

// ProcessorConfig holds settings for folder processing.
type ProcessorConfig struct {
	// Workers is the number of documents processed concurrently.
	Workers int

	// MaxDocumentBytes limits the size of a single document. Zero means ocr.MaxFileSizeBytes.
	MaxDocumentBytes int64
}

// Processor extracts invoice records from documents on disk.
type Processor struct {
	text      ocr.OCRService
	extractor *Extractor
	config    ProcessorConfig
	log       zerolog.Logger
}

// NewProcessor creates a Processor reading PDFs through text and plain-text
// documents directly.
func NewProcessor(text ocr.OCRService, extractor *Extractor, config ProcessorConfig) *Processor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxDocumentBytes <= 0 {
		config.MaxDocumentBytes = ocr.MaxFileSizeBytes
	}
	return &Processor{
		text:      text,
		extractor: extractor,
		config:    config,
		log:       logger.WithComponent("processor"),
	}
}

// FindDocuments lists supported documents in dir, sorted by name.
func FindDocuments(dir string) ([]string, error) {
	const op = "FindDocuments"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// IsSupported reports whether name has a supported document extension.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtPDF, ExtText:
		return true
	}
	return false
}

// ExtractFolder extracts one record per supported document in dir, in name order.
func (p *Processor) ExtractFolder(ctx context.Context, dir string) ([]*models.Invoice, error) {
	paths, err := FindDocuments(dir)
	if err != nil {
		return nil, err
	}
	p.log.Info().
		Str("dir", dir).
		Int("documents", len(paths)).
		Int("workers", p.config.Workers).
		Msg("Extracting folder")
	return p.ExtractFiles(ctx, paths), nil
}

// ExtractFiles extracts records for paths using a worker pool. The output has
// one record per path in the same order. Failed documents yield error records.
func (p *Processor) ExtractFiles(ctx context.Context, paths []string) []*models.Invoice {
	jobs := make(chan int, len(paths))
	results := make([]*models.Invoice, len(paths))

	var processed int
	var mu sync.Mutex

	workers := p.config.Workers
	if workers > len(paths) {
		workers = len(paths)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				p.log.Debug().
					Int("worker", workerID).
					Str("file", paths[i]).
					Int("index", i+1).
					Msg("Worker processing document")

				results[i] = p.ExtractFile(ctx, paths[i])

				mu.Lock()
				processed++
				p.log.Debug().
					Int("processed", processed).
					Int("total", len(paths)).
					Msg("Progress")
				mu.Unlock()
			}
		}(w + 1)
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// ExtractFile extracts a single document. It never returns nil; a document
// that cannot be read yields a record carrying only source_file and error.
func (p *Processor) ExtractFile(ctx context.Context, path string) *models.Invoice {
	name := filepath.Base(path)

	text, err := p.documentText(ctx, path)
	if err != nil {
		p.log.Warn().
			Err(WrapExtractionError("ExtractFile", name, err, "")).
			Msg("Document extraction failed")
		return FailedRecord(name, err)
	}

	return p.extractor.Extract(text, name)
}

// FailedRecord builds the record emitted for a document that could not be read.
func FailedRecord(sourceFile string, err error) *models.Invoice {
	return &models.Invoice{
		SourceFile: sourceFile,
		LineItems:  []models.LineItem{},
		Error:      fmt.Sprintf("extraction_failed: %v", err),
	}
}

func (p *Processor) documentText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > p.config.MaxDocumentBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtText:
		data, err := io.ReadAll(f)
		if err != nil {
			return "", err
		}
		text = string(data)
	case ExtPDF:
		if p.text == nil {
			return "", fmt.Errorf("%w: no PDF text source configured", ErrUnsupportedDocument)
		}
		text, err = p.text.ProcessPDF(ctx, f)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Ext(path))
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
