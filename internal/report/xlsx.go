package report

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"invoiceqc/pkg/models"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultHeaders = []string{
	"Source File", "Invoice ID", "Invoice Number", "Invoice Date", "Due Date",
	"Seller", "Buyer", "Currency", "Net Total", "Tax Amount", "Gross Total",
	"Line Items", "Status", "Errors", "Extraction Error",
}

// BuildXLSX renders rows and the summary into a workbook with a Results and a Summary sheet.
func BuildXLSX(rows []Row, summary models.BatchSummary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	for i, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(resultsSheet, cell, h)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(resultsSheet, 1, 1, bold)
	}

	for r, row := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, r+2)
			_ = f.SetCellValue(resultsSheet, cell, v)
		}
		write(1, row.SourceFile)
		write(2, row.InvoiceID)
		write(3, row.InvoiceNumber)
		write(4, row.InvoiceDate)
		write(5, row.DueDate)
		write(6, row.SellerName)
		write(7, row.BuyerName)
		write(8, row.Currency)
		writeAmount(write, 9, row.NetTotal)
		writeAmount(write, 10, row.TaxAmount)
		writeAmount(write, 11, row.GrossTotal)
		write(12, row.LineItems)
		write(13, row.Status())
		write(14, joinErrors(row.Errors))
		write(15, row.ExtractionError)
	}

	_ = f.SetColWidth(resultsSheet, "A", "C", 22)
	_ = f.SetColWidth(resultsSheet, "D", "E", 12)
	_ = f.SetColWidth(resultsSheet, "F", "G", 28)
	_ = f.SetColWidth(resultsSheet, "I", "K", 14)
	_ = f.SetColWidth(resultsSheet, "N", "O", 60)

	summaryRows := [][]any{
		{"Total invoices", summary.TotalInvoices},
		{"Valid invoices", summary.ValidInvoices},
		{"Invalid invoices", summary.InvalidInvoices},
		{},
		{"Error code", "Count"},
	}
	for _, ec := range TopErrors(summary) {
		summaryRows = append(summaryRows, []any{ec.Code, ec.Count})
	}
	for i, values := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if len(values) == 0 {
			continue
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 48)

	return f, nil
}

func writeAmount(write func(int, any), col int, v *float64) {
	if v == nil {
		write(col, "")
		return
	}
	write(col, *v)
}

// WriteXLSX writes the workbook to path, creating parent directories.
func WriteXLSX(path string, rows []Row, summary models.BatchSummary) error {
	const op = "WriteXLSX"

	f, err := BuildXLSX(rows, summary)
	if err != nil {
		return fmt.Errorf("%s: build workbook: %w", op, err)
	}
	defer f.Close()

	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return fmt.Errorf("%s: create directory: %w", op, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: save %s: %w", op, path, err)
	}
	return nil
}
