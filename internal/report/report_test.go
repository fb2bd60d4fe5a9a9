package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoiceqc/pkg/models"
)

func sampleData() ([]*models.Invoice, []models.ValidationResult, models.BatchSummary) {
	invoices := []*models.Invoice{
		{
			InvoiceNumber: models.String("INV-1"),
			SourceFile:    "a.pdf",
			InvoiceDate:   models.String("2024-01-15"),
			SellerName:    models.String("ACME"),
			BuyerName:     models.String("Globex"),
			Currency:      models.String("EUR"),
			NetTotal:      models.Float(100),
			TaxAmount:     models.Float(10),
			GrossTotal:    models.Float(110),
			LineItems:     []models.LineItem{{Description: "x", LineTotal: 100}},
		},
		{SourceFile: "b.pdf", Error: "extraction_failed: boom"},
	}
	results := []models.ValidationResult{
		{InvoiceID: "INV-1", IsValid: true, Errors: []string{}},
		{InvoiceID: "b.pdf", IsValid: false, Errors: []string{"missing_field:invoice_number", "missing_field:seller_name"}},
	}
	summary := models.BatchSummary{
		TotalInvoices:   2,
		ValidInvoices:   1,
		InvalidInvoices: 1,
		ErrorCounts: map[string]int{
			"missing_field:invoice_number": 1,
			"missing_field:seller_name":    1,
		},
	}
	return invoices, results, summary
}

func TestRows(t *testing.T) {
	invoices, results, _ := sampleData()

	rows := Rows(invoices, results)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.pdf", rows[0].SourceFile)
	assert.Equal(t, "valid", rows[0].Status())
	assert.Equal(t, 1, rows[0].LineItems)
	assert.Equal(t, "invalid", rows[1].Status())
	assert.Equal(t, "extraction_failed: boom", rows[1].ExtractionError)

	rows = Rows(nil, results)
	require.Len(t, rows, 2)
	assert.Equal(t, "INV-1", rows[0].InvoiceID)
	assert.Empty(t, rows[0].SourceFile)
}

func TestTopErrorsAndPrintSummary(t *testing.T) {
	summary := models.BatchSummary{
		TotalInvoices:   3,
		ValidInvoices:   0,
		InvalidInvoices: 3,
		ErrorCounts: map[string]int{
			"b": 1,
			"a": 1,
			"c": 3,
		},
	}

	assert.Equal(t, []ErrorCount{{"c", 3}, {"a", 1}, {"b", 1}}, TopErrors(summary))

	var buf bytes.Buffer
	PrintSummary(&buf, summary)
	assert.Equal(t, `=== Validation Summary ===
Total invoices: 3
Valid invoices: 0
Invalid invoices: 3
Top errors:
  c: 3
  a: 1
  b: 1
`, buf.String())
}

func TestWriteJSONCreatesDirectories(t *testing.T) {
	_, results, summary := sampleData()
	path := filepath.Join(t.TempDir(), "nested", "out", "report.json")

	require.NoError(t, WriteJSON(path, Report{Results: results, Summary: summary}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "results")
	assert.Contains(t, decoded, "summary")
	assert.NotContains(t, decoded, "invoices")
}

func TestWriteXLSX(t *testing.T) {
	invoices, results, summary := sampleData()
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, WriteXLSX(path, Rows(invoices, results), summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, "a.pdf", rows[1][0])
	assert.Equal(t, "110", rows[1][10])
	assert.Equal(t, "valid", rows[1][12])
	assert.Equal(t, "invalid", rows[2][12])
	assert.Equal(t, "missing_field:invoice_number; missing_field:seller_name", rows[2][13])

	total, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	code, err := f.GetCellValue(summarySheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, "missing_field:invoice_number", code)
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := ExtractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = ExtractSpreadsheetID("https://example.com/nothing")
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "P", columnLetter(16))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
}

// fakeSheetsAPI serves the subset of the Sheets v4 REST API the publisher uses.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	calls    []string
	appended [][]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && !strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "get")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet123","sheets":[{"properties":{"title":"Validation","sheetId":7}}]}`)
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "headers")
		_, _ = io.WriteString(w, `{"values":[]}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "format")
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		for _, row := range vr.Values {
			f.appended = append(f.appended, row)
		}
		_, _ = io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func TestSheetsPublisherPublish(t *testing.T) {
	api := &fakeSheetsAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	ctx := context.Background()
	svc, err := sheets.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	p := &SheetsPublisher{
		sheetsService: svc,
		spreadsheetID: "sheet123",
		log:           zerolog.Nop(),
		now:           func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}

	invoices, results, _ := sampleData()
	require.NoError(t, p.Publish(ctx, "", Rows(invoices, results)))

	assert.Equal(t, []string{"get", "headers", "update", "format", "append"}, api.calls)
	require.Len(t, api.appended, 2)
	assert.Equal(t, "2024-01-02 03:04:05", api.appended[0][0])
	assert.Equal(t, "a.pdf", api.appended[0][1])
	assert.Equal(t, "invalid", api.appended[1][13])
}
