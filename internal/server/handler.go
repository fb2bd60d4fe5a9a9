package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/pkg/models"
)

// Default request size limits.
const (
	DefaultMaxJSONBytes   = 10 << 20
	DefaultMaxUploadBytes = 100 << 20
)

// Handler serves the validation endpoints.
type Handler struct {
	validator      *invoice.Validator
	processor      *invoice.Processor
	maxJSONBytes   int64
	maxUploadBytes int64
}

// NewHandler creates a Handler. Non-positive limits select the defaults.
func NewHandler(validator *invoice.Validator, processor *invoice.Processor, maxJSONBytes, maxUploadBytes int64) *Handler {
	if maxJSONBytes <= 0 {
		maxJSONBytes = DefaultMaxJSONBytes
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		validator:      validator,
		processor:      processor,
		maxJSONBytes:   maxJSONBytes,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ValidateJSON validates a JSON array of invoice records.
func (h *Handler) ValidateJSON(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxJSONBytes))
	if err != nil {
		if isTooLarge(err) {
			respondTooLarge(c)
			return
		}
		respondBadRequest(c, ErrInvalidBatch, ErrorDetail{Message: err.Error()})
		return
	}

	invoices, err := invoice.DecodeBatch(body)
	if err != nil {
		var batchErr *invoice.BatchError
		if errors.As(err, &batchErr) {
			details := make([]ErrorDetail, 0, len(batchErr.Causes))
			for _, cause := range batchErr.Causes {
				field, message := splitCause(cause)
				details = append(details, ErrorDetail{Field: field, Message: message})
			}
			respondBadRequest(c, ErrInvalidBatch, details...)
			return
		}
		logger.WithContext(c.Request.Context()).Error().Err(err).Msg("Failed to decode batch")
		respondInternalServerError(c)
		return
	}
	if len(invoices) == 0 {
		respondBadRequest(c, ErrEmptyBatch)
		return
	}

	results, summary := h.validator.ValidateAll(invoices)
	c.JSON(http.StatusOK, BatchResponse{
		Extracted: invoices,
		Summary:   summary,
		Results:   results,
	})
}

// splitCause splits "location: message" produced by batch decoding.
func splitCause(cause string) (string, string) {
	if i := strings.Index(cause, ": "); i > 0 && strings.HasPrefix(cause, "/") {
		return cause[:i], cause[i+2:]
	}
	return "", cause
}

// ExtractAndValidate extracts invoices from uploaded documents and validates them.
// Uploads are staged in a temporary directory removed before returning.
func (h *Handler) ExtractAndValidate(c *gin.Context) {
	log := logger.WithContext(c.Request.Context())

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		if isTooLarge(err) {
			respondTooLarge(c)
			return
		}
		respondBadRequest(c, ErrInvalidMultipart, ErrorDetail{Message: err.Error()})
		return
	}
	defer form.RemoveAll()

	files := form.File["files"]
	if len(files) == 0 {
		respondBadRequest(c, ErrNoFiles)
		return
	}

	tempDir, err := os.MkdirTemp("", "invoice_qc_")
	if err != nil {
		log.Error().Err(err).Msg("Failed to create upload directory")
		respondInternalServerError(c)
		return
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Warn().Err(err).Str("dir", tempDir).Msg("Failed to remove upload directory")
		}
	}()

	records := make([]*models.Invoice, len(files))
	var paths []string
	var slots []int
	for i, fh := range files {
		name := uploadName(fh.Filename)

		// one directory per upload keeps duplicate file names apart
		dst := filepath.Join(tempDir, strconv.Itoa(i), name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			records[i] = invoice.FailedRecord(name, err)
			continue
		}
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			records[i] = invoice.FailedRecord(name, err)
			continue
		}
		paths = append(paths, dst)
		slots = append(slots, i)
	}

	for j, inv := range h.processor.ExtractFiles(c.Request.Context(), paths) {
		records[slots[j]] = inv
	}

	results, summary := h.validator.ValidateAll(records)

	log.Info().
		Int("files", len(files)).
		Int("invalid", summary.InvalidInvoices).
		Msg("Uploaded documents validated")

	c.JSON(http.StatusOK, BatchResponse{
		Extracted: records,
		Summary:   summary,
		Results:   results,
	})
}

// isTooLarge reports whether err came from an exhausted MaxBytesReader.
// Some multipart read paths drop the typed error, so the message is checked too.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func uploadName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload.pdf"
	}
	return name
}
