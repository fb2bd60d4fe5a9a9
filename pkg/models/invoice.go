package models

// Invoice is one invoice record as extracted from a document or supplied as JSON.
// Optional fields are pointers so that "absent" and "empty" stay distinguishable
// on the wire (absent fields marshal as null).
type Invoice struct {
	// Identity
	InvoiceNumber     *string `json:"invoice_number"`
	ExternalReference *string `json:"external_reference,omitempty"`
	SourceFile        string  `json:"source_file"`

	// Dates, canonical YYYY-MM-DD when parseable, otherwise as extracted
	InvoiceDate *string `json:"invoice_date"`
	DueDate     *string `json:"due_date"`

	// Parties
	SellerName  *string `json:"seller_name"`
	SellerTaxID *string `json:"seller_tax_id"`
	BuyerName   *string `json:"buyer_name"`
	BuyerTaxID  *string `json:"buyer_tax_id,omitempty"`

	// Money
	Currency   *string  `json:"currency"`
	NetTotal   *float64 `json:"net_total"`
	TaxAmount  *float64 `json:"tax_amount"`
	GrossTotal *float64 `json:"gross_total"`

	PaymentTerms *string    `json:"payment_terms,omitempty"`
	LineItems    []LineItem `json:"line_items"`

	// Error is set when the document could not be read at all.
	Error string `json:"error,omitempty"`
}

// LineItem is one row of the goods/services breakdown.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	LineTotal   float64  `json:"line_total"`
}

// ID resolves the identifier reported for this invoice: the invoice number,
// then the source file, then "unknown".
func (inv *Invoice) ID() string {
	if inv.InvoiceNumber != nil && *inv.InvoiceNumber != "" {
		return *inv.InvoiceNumber
	}
	if inv.SourceFile != "" {
		return inv.SourceFile
	}
	return "unknown"
}

// String returns a pointer to s, for building records in code.
func String(s string) *string {
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Value dereferences an optional string, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
