// Package report renders validation output: JSON report files, XLSX
// workbooks, a console summary and rows appended to a Google Sheet.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"invoiceqc/pkg/models"
)

// Report is the document written by the validate and full-run commands.
// Invoices is only set by full-run.
type Report struct {
	Results  []models.ValidationResult `json:"results"`
	Summary  models.BatchSummary       `json:"summary"`
	Invoices []*models.Invoice         `json:"invoices,omitempty"`
}

// Row flattens one invoice and its validation result for tabular sinks.
type Row struct {
	SourceFile      string
	InvoiceID       string
	InvoiceNumber   string
	InvoiceDate     string
	DueDate         string
	SellerName      string
	BuyerName       string
	Currency        string
	NetTotal        *float64
	TaxAmount       *float64
	GrossTotal      *float64
	LineItems       int
	Valid           bool
	Errors          []string
	ExtractionError string
}

// Status returns "valid" or "invalid".
func (r Row) Status() string {
	if r.Valid {
		return "valid"
	}
	return "invalid"
}

// Rows zips invoices with their results by position. invoices may be
// shorter than results (or nil) when only results are available.
func Rows(invoices []*models.Invoice, results []models.ValidationResult) []Row {
	rows := make([]Row, len(results))
	for i, res := range results {
		row := Row{
			InvoiceID: res.InvoiceID,
			Valid:     res.IsValid,
			Errors:    res.Errors,
		}
		if i < len(invoices) && invoices[i] != nil {
			inv := invoices[i]
			row.SourceFile = inv.SourceFile
			row.InvoiceNumber = models.Value(inv.InvoiceNumber)
			row.InvoiceDate = models.Value(inv.InvoiceDate)
			row.DueDate = models.Value(inv.DueDate)
			row.SellerName = models.Value(inv.SellerName)
			row.BuyerName = models.Value(inv.BuyerName)
			row.Currency = models.Value(inv.Currency)
			row.NetTotal = inv.NetTotal
			row.TaxAmount = inv.TaxAmount
			row.GrossTotal = inv.GrossTotal
			row.LineItems = len(inv.LineItems)
			row.ExtractionError = inv.Error
		}
		rows[i] = row
	}
	return rows
}

// WriteJSON writes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	const op = "WriteJSON"

	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return fmt.Errorf("%s: create directory: %w", op, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%s: write %s: %w", op, path, err)
	}
	return nil
}

func dirOf(path string) string {
	if dir := filepath.Dir(path); dir != "" {
		return dir
	}
	return "."
}

// ErrorCount is one entry of the error frequency table.
type ErrorCount struct {
	Code  string
	Count int
}

// TopErrors returns error counts ordered by count, most frequent first, then by code.
func TopErrors(summary models.BatchSummary) []ErrorCount {
	counts := make([]ErrorCount, 0, len(summary.ErrorCounts))
	for code, n := range summary.ErrorCounts {
		counts = append(counts, ErrorCount{Code: code, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Code < counts[j].Code
	})
	return counts
}

// PrintSummary writes the console summary block.
func PrintSummary(w io.Writer, summary models.BatchSummary) {
	fmt.Fprintln(w, "=== Validation Summary ===")
	fmt.Fprintf(w, "Total invoices: %d\n", summary.TotalInvoices)
	fmt.Fprintf(w, "Valid invoices: %d\n", summary.ValidInvoices)
	fmt.Fprintf(w, "Invalid invoices: %d\n", summary.InvalidInvoices)
	fmt.Fprintln(w, "Top errors:")
	for _, ec := range TopErrors(summary) {
		fmt.Fprintf(w, "  %s: %d\n", ec.Code, ec.Count)
	}
}

// joinErrors renders an error list for a single spreadsheet cell.
func joinErrors(errs []string) string {
	return strings.Join(errs, "; ")
}
