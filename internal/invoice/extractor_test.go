package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceqc/pkg/models"
)

const sampleInvoiceText = `ACME Supplies Ltd
Invoice No: INV-1001
Invoice Date: 15/01/2024
Due Date: 2024-02-14
Seller: ACME Supplies Ltd
Buyer: Globex Corp
Currency: EUR
VAT ID: DE123456789

Description      Qty    Amount
Widget A         2      60.00
Widget B         1      40.00

Subtotal: 100.00
VAT: 19.00
Total: 119.00
`

func TestExtractFullInvoice(t *testing.T) {
	inv := NewExtractor(DefaultExtractorConfig()).Extract(sampleInvoiceText, "acme.pdf")

	assert.Equal(t, "acme.pdf", inv.SourceFile)
	assert.Equal(t, "INV-1001", models.Value(inv.InvoiceNumber))
	assert.Equal(t, "2024-01-15", models.Value(inv.InvoiceDate))
	assert.Equal(t, "2024-02-14", models.Value(inv.DueDate))
	assert.Equal(t, "ACME Supplies Ltd", models.Value(inv.SellerName))
	assert.Equal(t, "Globex Corp", models.Value(inv.BuyerName))
	assert.Equal(t, "EUR", models.Value(inv.Currency))
	assert.Equal(t, "DE123456789", models.Value(inv.SellerTaxID))

	require.NotNil(t, inv.NetTotal)
	require.NotNil(t, inv.TaxAmount)
	require.NotNil(t, inv.GrossTotal)
	assert.InDelta(t, 100.00, *inv.NetTotal, 1e-9)
	assert.InDelta(t, 19.00, *inv.TaxAmount, 1e-9)
	assert.InDelta(t, 119.00, *inv.GrossTotal, 1e-9)

	require.Len(t, inv.LineItems, 2)
	assert.Equal(t, models.LineItem{Description: "Widget A 2", LineTotal: 60}, inv.LineItems[0])
	assert.Equal(t, models.LineItem{Description: "Widget B 1", LineTotal: 40}, inv.LineItems[1])

	result := NewValidator(DefaultValidatorConfig()).Validate(inv)
	assert.True(t, result.IsValid, "errors: %v", result.Errors)
}

func TestExtractMissingFieldsAreNil(t *testing.T) {
	inv := NewExtractor(DefaultExtractorConfig()).Extract("nothing useful here", "blank.txt")

	assert.Nil(t, inv.InvoiceNumber)
	assert.Nil(t, inv.InvoiceDate)
	assert.Nil(t, inv.DueDate)
	assert.Nil(t, inv.SellerName)
	assert.Nil(t, inv.BuyerName)
	assert.Nil(t, inv.Currency)
	assert.Nil(t, inv.NetTotal)
	assert.Nil(t, inv.TaxAmount)
	assert.Nil(t, inv.GrossTotal)
	assert.NotNil(t, inv.LineItems)
	assert.Empty(t, inv.LineItems)
	assert.Empty(t, inv.Error)
}

func TestExtractInvoiceNumberFallback(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())

	inv := e.Extract("Payment for inv-0042 received", "a.txt")
	assert.Equal(t, "inv-0042", models.Value(inv.InvoiceNumber))

	inv = e.Extract("Reference Invoice 77 attached", "b.txt")
	assert.Equal(t, "Invoice 77", models.Value(inv.InvoiceNumber))

	inv = e.Extract("Invoice Number: 2024/118\nsee also INV-9", "c.txt")
	assert.Equal(t, "2024/118", models.Value(inv.InvoiceNumber))
}

func TestExtractLabelDisambiguation(t *testing.T) {
	text := "Due Date: 2024-02-01\nDate: 2024-01-01\nNet Total: 100.00\nTax: 10.00\nGross Total: 110.00\nTo: Globex"
	inv := NewExtractor(DefaultExtractorConfig()).Extract(text, "x.txt")

	assert.Equal(t, "2024-01-01", models.Value(inv.InvoiceDate))
	assert.Equal(t, "2024-02-01", models.Value(inv.DueDate))
	require.NotNil(t, inv.NetTotal)
	require.NotNil(t, inv.GrossTotal)
	assert.InDelta(t, 100.00, *inv.NetTotal, 1e-9)
	assert.InDelta(t, 110.00, *inv.GrossTotal, 1e-9)
	assert.Equal(t, "Globex", models.Value(inv.BuyerName))
}

func TestExtractAmountsWithSeparators(t *testing.T) {
	inv := NewExtractor(DefaultExtractorConfig()).Extract("Total: 1,234.50", "x.txt")
	require.NotNil(t, inv.GrossTotal)
	assert.InDelta(t, 1234.50, *inv.GrossTotal, 1e-9)

	inv = NewExtractor(DefaultExtractorConfig()).Extract("Total: ,.,", "x.txt")
	assert.Nil(t, inv.GrossTotal)
}

func TestExtractKeepsRawDatesWhenNormalizationOff(t *testing.T) {
	cfg := DefaultExtractorConfig()
	cfg.NormalizeDates = false

	inv := NewExtractor(cfg).Extract("Invoice Date: 15/01/2024", "x.txt")
	assert.Equal(t, "15/01/2024", models.Value(inv.InvoiceDate))
}

func TestSpacingLineItems(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		text  string
		want  []models.LineItem
	}{
		{
			name: "no header",
			text: "Seller: Acme Goods\nWidget  10.00",
			want: []models.LineItem{},
		},
		{
			name: "header term inside a longer word",
			text: "Seller: Discount Prices Ltd\nWidget  100.00\nSubtotals:\nGadget  50.00\n",
			want: []models.LineItem{
				{Description: "Widget", LineTotal: 100},
				{Description: "Gadget", LineTotal: 50},
			},
		},
		{
			name: "tab separated with currency glyph",
			text: "Item\tPrice\nConsulting\t$1,200.00\nTravel\t300",
			want: []models.LineItem{
				{Description: "Consulting", LineTotal: 1200},
				{Description: "Travel", LineTotal: 300},
			},
		},
		{
			name: "rows without trailing amount skipped",
			text: "Description  Amount\nWidget  n/a\nGadget  5.50\nsingle column 9.99",
			want: []models.LineItem{
				{Description: "Gadget", LineTotal: 5.5},
			},
		},
		{
			name:  "scan depth limits rows",
			depth: 2,
			text:  "Description  Amount\nA  1\nB  2\nC  3",
			want: []models.LineItem{
				{Description: "A", LineTotal: 1},
				{Description: "B", LineTotal: 2},
			},
		},
		{
			name: "default depth is ten",
			text: "Qty  Amount\n1  1\n2  2\n3  3\n4  4\n5  5\n6  6\n7  7\n8  8\n9  9\n10  10\n11  11",
			want: []models.LineItem{
				{Description: "1", LineTotal: 1}, {Description: "2", LineTotal: 2},
				{Description: "3", LineTotal: 3}, {Description: "4", LineTotal: 4},
				{Description: "5", LineTotal: 5}, {Description: "6", LineTotal: 6},
				{Description: "7", LineTotal: 7}, {Description: "8", LineTotal: 8},
				{Description: "9", LineTotal: 9}, {Description: "10", LineTotal: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpacingLineItems(nil, tt.depth)
			assert.Equal(t, tt.want, s.Detect(tt.text))
		})
	}
}

func TestWholeWordLineItems(t *testing.T) {
	text := "Seller: Discount Prices Ltd\nWidget  100.00\nSubtotals:\nGadget  50.00\nUnit Price  Total\nBolt  2.50"

	assert.Equal(t, []models.LineItem{{Description: "Bolt", LineTotal: 2.5}}, NewWholeWordLineItems(nil, 0).Detect(text))
	assert.Len(t, NewSpacingLineItems(nil, 0).Detect(text), 3)
}

type fixedLineItems []models.LineItem

func (f fixedLineItems) Detect(string) []models.LineItem { return f }

func TestExtractorUsesConfiguredStrategy(t *testing.T) {
	items := fixedLineItems{{Description: "fixed", LineTotal: 1}}
	inv := NewExtractor(ExtractorConfig{LineItems: items}).Extract("Description  Amount\nA  5", "x.txt")
	assert.Equal(t, []models.LineItem(items), inv.LineItems)
}
