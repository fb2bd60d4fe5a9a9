package invoice

import "fmt"

// Error codes emitted by the Validator.
const (
	CodeMissingInvoiceNumber = "missing_field:invoice_number"
	CodeMissingInvoiceDate   = "missing_field:invoice_date"
	CodeMissingSellerName    = "missing_field:seller_name"
	CodeMissingBuyerName     = "missing_field:buyer_name"
	CodeInvoiceDateFormat    = "format_error:invoice_date"
	CodeNegativeTotal        = "anomaly:negative_total"
	CodeDuplicateInvoice     = "anomaly:duplicate_invoice"
	CodeTotalsMismatch       = "business_rule_failed:totals_mismatch"
	CodeLineItemsMismatch    = "business_rule_failed:line_items_mismatch"
	CodeDueBeforeInvoice     = "business_rule_failed:due_before_invoice"
)

// CurrencyNotAllowed returns the error code for a currency outside the allow-list.
func CurrencyNotAllowed(currency string) string {
	return fmt.Sprintf("format_error:currency_not_allowed(%s)", currency)
}
