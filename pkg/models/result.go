package models

// ValidationResult is the verdict for a single invoice.
type ValidationResult struct {
	InvoiceID string   `json:"invoice_id"`
	IsValid   bool     `json:"is_valid"`
	Errors    []string `json:"errors"`
}

// BatchSummary aggregates the results of one validated batch.
type BatchSummary struct {
	TotalInvoices   int            `json:"total_invoices"`
	ValidInvoices   int            `json:"valid_invoices"`
	InvalidInvoices int            `json:"invalid_invoices"`
	ErrorCounts     map[string]int `json:"error_counts"`
}
