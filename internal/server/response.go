package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoiceqc/pkg/models"
)

// Common error messages
const (
	ErrInvalidBatch     = "Body must be a JSON array (list of invoices)"
	ErrEmptyBatch       = "Invoice list cannot be empty"
	ErrNoFiles          = "At least one file must be uploaded in the 'files' field"
	ErrPayloadTooLarge  = "Request body exceeds the maximum allowed size"
	ErrInternalServer   = "Internal server error"
	ErrInvalidMultipart = "Invalid multipart form"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail carries one cause of a rejected request.
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// BatchResponse is returned by both validation endpoints.
type BatchResponse struct {
	Extracted []*models.Invoice         `json:"extracted"`
	Summary   models.BatchSummary       `json:"summary"`
	Results   []models.ValidationResult `json:"results"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, message string, details ...ErrorDetail) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Status:  http.StatusText(statusCode),
		Message: message,
		Details: details,
	})
}

func respondBadRequest(c *gin.Context, message string, details ...ErrorDetail) {
	respondWithError(c, http.StatusBadRequest, message, details...)
}

func respondTooLarge(c *gin.Context) {
	respondWithError(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge)
}

func respondInternalServerError(c *gin.Context) {
	respondWithError(c, http.StatusInternalServerError, ErrInternalServer)
}
