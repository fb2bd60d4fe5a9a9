package invoice_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/ocr"
	"invoiceqc/pkg/models"
)

// Example demonstrates extracting a record from text and validating it.
func Example() {
	text := `Invoice No: INV-7
Invoice Date: 01/03/2024
Seller: ACME
Buyer: Globex
Subtotal: 100.00
Tax: 10.00
Total: 112.00`

	extractor := invoice.NewExtractor(invoice.DefaultExtractorConfig())
	record := extractor.Extract(text, "inv7.txt")

	validator := invoice.NewValidator(invoice.DefaultValidatorConfig())
	result := validator.Validate(record)

	fmt.Println(models.Value(record.InvoiceDate))
	fmt.Println(result.InvoiceID, result.IsValid, result.Errors)
	// Output:
	// 2024-03-01
	// INV-7 false [business_rule_failed:totals_mismatch]
}

// ExampleValidator_ValidateAll shows duplicate detection across a batch.
func ExampleValidator_ValidateAll() {
	batch, err := invoice.DecodeBatch([]byte(`[
	  {"invoice_number": "INV-1", "invoice_date": "2024-01-15", "seller_name": "ACME", "buyer_name": "Globex"},
	  {"invoice_number": "INV-1", "invoice_date": "2024-01-15", "seller_name": "acme", "buyer_name": "Globex"}
	]`))
	if err != nil {
		log.Fatal(err)
	}

	results, summary := invoice.NewValidator(invoice.DefaultValidatorConfig()).ValidateAll(batch)
	for _, r := range results {
		fmt.Println(r.InvoiceID, r.IsValid, r.Errors)
	}
	fmt.Printf("total=%d valid=%d invalid=%d\n", summary.TotalInvoices, summary.ValidInvoices, summary.InvalidInvoices)
	// Output:
	// INV-1 true []
	// INV-1 false [anomaly:duplicate_invoice]
	// total=2 valid=1 invalid=1
}

// ExampleProcessor demonstrates extracting every document in a folder.
func ExampleProcessor() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	text, err := ocr.NewService(ctx, ocr.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer text.Close()

	processor := invoice.NewProcessor(text,
		invoice.NewExtractor(invoice.DefaultExtractorConfig()),
		invoice.ProcessorConfig{Workers: 4})

	invoices, err := processor.ExtractFolder(ctx, "./invoices")
	if err != nil {
		log.Fatal(err)
	}

	for _, inv := range invoices {
		if inv.Error != "" {
			fmt.Printf("%s: %s\n", inv.SourceFile, inv.Error)
			continue
		}
		fmt.Printf("%s: %s\n", inv.SourceFile, inv.ID())
	}
}
