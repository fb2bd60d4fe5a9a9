package invoice

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"invoiceqc/internal/logger"
	"invoiceqc/internal/normalize"
	"invoiceqc/pkg/models"
)

const labelSep = `\s*[:\-]?\s*`

const datePattern = `([0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{2}/[0-9]{2}/[0-9]{4})`

// fieldRule captures one labeled field. A match is ignored when the text
// right before the label ends with one of notAfter, so that "Net Total" is
// not read as the gross total and "Due Date" not as the invoice date.
type fieldRule struct {
	field    string
	pattern  *regexp.Regexp
	notAfter []string
}

func newRule(field, label, value string, notAfter ...string) fieldRule {
	return fieldRule{
		field:    field,
		pattern:  regexp.MustCompile(`(?i)\b(?:` + label + `)` + labelSep + value),
		notAfter: notAfter,
	}
}

var fieldRules = []fieldRule{
	newRule("invoice_number", `Invoice\s*(?:No\.?|Number|#)`, `([A-Za-z0-9\-/]+)`),
	newRule("invoice_date", `Invoice\s*Date|Date`, datePattern, "due"),
	newRule("due_date", `Due\s*Date|Due`, datePattern),
	newRule("seller_name", `Seller|From\b`, `(.+)`),
	newRule("buyer_name", `Buyer|To\b`, `(.+)`),
	newRule("currency", `Currency`, `([A-Z]{3})`),
	newRule("net_total", `Subtotal|Net\s*Total|Net\b`, `([0-9.,]+)`),
	newRule("tax_amount", `Sales\s*Tax|Tax|VAT|GST`, `([0-9.,]+)`),
	newRule("gross_total", `Grand\s*Total|Gross\s*Total|Total\s*Amount|Total`, `([0-9.,]+)`, "net", "sub"),
	newRule("seller_tax_id", `VAT\s*(?:ID|No\.?|Number)|GSTIN|Tax\s*ID|Tax\s*No\.?|VAT`, `([A-Z0-9\-]+)`),
}

var invoiceNumberFallback = regexp.MustCompile(`(?i)(?:INV[-\s]?\d{1,6}|Invoice[-\s]?\d{1,6})`)

// find returns the trimmed first capture of the first acceptable match.
func (r fieldRule) find(text string) (string, bool) {
	for _, m := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
		if r.excluded(text[:m[0]]) {
			continue
		}
		return strings.TrimSpace(text[m[2]:m[3]]), true
	}
	return "", false
}

func (r fieldRule) excluded(before string) bool {
	if len(r.notAfter) == 0 {
		return false
	}
	prev := strings.ToLower(strings.TrimRight(before, " \t"))
	for _, word := range r.notAfter {
		if !strings.HasSuffix(prev, word) {
			continue
		}
		rest := prev[:len(prev)-len(word)]
		if rest == "" || !isLetter(rest[len(rest)-1]) {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Extractor turns raw document text into an invoice record.
type Extractor struct {
	config ExtractorConfig
	log    zerolog.Logger
}

// NewExtractor creates an Extractor. A nil LineItems strategy selects the
// spacing heuristic with default header terms and scan depth.
func NewExtractor(config ExtractorConfig) *Extractor {
	if config.LineItems == nil {
		config.LineItems = NewSpacingLineItems(DefaultHeaderTerms, DefaultScanDepth)
	}
	return &Extractor{
		config: config,
		log:    logger.WithComponent("extractor"),
	}
}

// Extract applies the field rules and line-item strategy to text. Fields
// that are not found, or amounts that do not parse, are left nil.
func (e *Extractor) Extract(text, sourceFile string) *models.Invoice {
	inv := &models.Invoice{SourceFile: sourceFile}

	raw := make(map[string]string, len(fieldRules))
	for _, rule := range fieldRules {
		if value, ok := rule.find(text); ok && value != "" {
			raw[rule.field] = value
		}
	}

	if _, ok := raw["invoice_number"]; !ok {
		if m := invoiceNumberFallback.FindString(text); m != "" {
			raw["invoice_number"] = strings.TrimSpace(m)
		}
	}

	inv.InvoiceNumber = optional(raw["invoice_number"])
	inv.InvoiceDate = e.date(raw["invoice_date"])
	inv.DueDate = e.date(raw["due_date"])
	inv.SellerName = optional(raw["seller_name"])
	inv.BuyerName = optional(raw["buyer_name"])
	inv.Currency = optional(raw["currency"])
	inv.SellerTaxID = optional(raw["seller_tax_id"])
	inv.NetTotal = normalize.Amount(optional(raw["net_total"]))
	inv.TaxAmount = normalize.Amount(optional(raw["tax_amount"]))
	inv.GrossTotal = normalize.Amount(optional(raw["gross_total"]))
	inv.LineItems = e.config.LineItems.Detect(text)

	e.log.Debug().
		Str("source_file", sourceFile).
		Int("fields", len(raw)).
		Int("line_items", len(inv.LineItems)).
		Msg("Extracted invoice fields")

	return inv
}

func (e *Extractor) date(value string) *string {
	if value == "" {
		return nil
	}
	if e.config.NormalizeDates {
		value = normalize.NormalizeDate(value)
	}
	return &value
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
