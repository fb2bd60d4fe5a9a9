package invoice

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceqc/pkg/models"
)

func TestDecodeBatch(t *testing.T) {
	body := `[
	  {"invoice_number": "INV-1", "seller_name": "ACME", "net_total": 100, "tax_amount": null,
	   "line_items": [{"description": "a", "line_total": 100}], "_duplicate_flag": true},
	  {"source_file": "b.pdf", "line_items": null}
	]`

	invoices, err := DecodeBatch([]byte(body))
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	assert.Equal(t, "INV-1", models.Value(invoices[0].InvoiceNumber))
	require.NotNil(t, invoices[0].NetTotal)
	assert.Equal(t, 100.0, *invoices[0].NetTotal)
	assert.Nil(t, invoices[0].TaxAmount)
	assert.Equal(t, []models.LineItem{{Description: "a", LineTotal: 100}}, invoices[0].LineItems)

	assert.Equal(t, "b.pdf", invoices[1].SourceFile)
	assert.NotNil(t, invoices[1].LineItems)
}

func TestDecodeBatchRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"invoice_number": "INV-1"}`},
		{"malformed", `[{"invoice_number": }`},
		{"array of scalars", `[1, 2]`},
		{"null record", `[null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBatch([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBatch))

			var batchErr *BatchError
			require.True(t, errors.As(err, &batchErr))
			assert.NotEmpty(t, batchErr.Causes)
		})
	}
}

func TestDecodeBatchCoercesFieldTypes(t *testing.T) {
	body := `[
	  {"invoice_number": 12345, "net_total": "1,000.00", "tax_amount": " ", "gross_total": "$1,190",
	   "line_items": [{"description": "a", "line_total": "1000"}]},
	  {"invoice_number": "INV-2"}
	]`

	invoices, err := DecodeBatch([]byte(body))
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	first := invoices[0]
	assert.Equal(t, "12345", models.Value(first.InvoiceNumber))
	require.NotNil(t, first.NetTotal)
	require.NotNil(t, first.GrossTotal)
	assert.Equal(t, 1000.0, *first.NetTotal)
	assert.Nil(t, first.TaxAmount)
	assert.Equal(t, 1190.0, *first.GrossTotal)
	assert.Equal(t, []models.LineItem{{Description: "a", LineTotal: 1000}}, first.LineItems)
	assert.Empty(t, first.Error)

	assert.Equal(t, "INV-2", models.Value(invoices[1].InvoiceNumber))
	assert.Empty(t, invoices[1].Error)
}

func TestDecodeBatchFlagsBadRecordAndKeepsGoodOne(t *testing.T) {
	body := `[
	  {"invoice_number": "INV-1", "net_total": "abc", "seller_name": {"name": "ACME"},
	   "line_items": [{"description": "a"}, 7]},
	  {"invoice_number": "INV-2", "invoice_date": "2024-01-15", "seller_name": "ACME", "buyer_name": "Globex",
	   "net_total": 100, "tax_amount": 19, "gross_total": 119}
	]`

	invoices, err := DecodeBatch([]byte(body))
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	bad := invoices[0]
	assert.Equal(t, "INV-1", models.Value(bad.InvoiceNumber))
	assert.Nil(t, bad.NetTotal)
	assert.Nil(t, bad.SellerName)
	assert.Equal(t, []models.LineItem{{Description: "a"}}, bad.LineItems)
	assert.Contains(t, bad.Error, "invalid_fields: ")
	assert.Contains(t, bad.Error, `net_total: expected a number, got "abc"`)
	assert.Contains(t, bad.Error, "seller_name: expected text")
	assert.Contains(t, bad.Error, "line_items/0/line_total: missing")
	assert.Contains(t, bad.Error, "line_items/1: expected an object")

	results, summary := NewValidator(DefaultValidatorConfig()).ValidateAll(invoices)
	require.Len(t, results, 2)
	assert.False(t, results[0].IsValid)
	assert.True(t, results[1].IsValid, "errors: %v", results[1].Errors)
	assert.Equal(t, 2, summary.TotalInvoices)
}

func TestDecodeBatchKeepsExtractionError(t *testing.T) {
	invoices, err := DecodeBatch([]byte(`[{"source_file": "a.pdf", "error": "extraction_failed: boom", "gross_total": "x"}]`))
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "a.pdf", invoices[0].SourceFile)
	assert.True(t, strings.HasPrefix(invoices[0].Error, "extraction_failed: boom; invalid_fields: gross_total"))
}

func TestDecodeBatchEmpty(t *testing.T) {
	invoices, err := DecodeBatch([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestApplyDefaults(t *testing.T) {
	withCurrency := validInvoice()
	withCurrency.Currency = models.String("USD")
	without := validInvoice()
	without.Currency = nil

	out := ApplyDefaults([]*models.Invoice{withCurrency, without, nil}, "EUR")
	require.Len(t, out, 3)

	assert.Equal(t, "USD", models.Value(out[0].Currency))
	assert.Equal(t, "EUR", models.Value(out[1].Currency))
	assert.Nil(t, out[2])
	assert.Nil(t, without.Currency)
}
