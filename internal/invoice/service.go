// Package invoice extracts invoice records from document text and validates
// batches of records against a fixed set of quality rules.
//
// The pipeline has two stages:
//   - Extractor: labeled pattern rules plus a spacing-based line-item heuristic
//     turn raw text into a models.Invoice. Fields that cannot be recovered are
//     left nil; the extractor never reports per-field misses as errors.
//   - Validator: required fields, currency allow-list, sign, totals and
//     line-item arithmetic, chronology and cross-record duplicate checks.
//     Every record yields exactly one models.ValidationResult.
//
// Error codes take the form "<class>:<detail>", for example
// "missing_field:invoice_number" or "business_rule_failed:totals_mismatch".
//
// Processor ties a text source (see package ocr) to the Extractor for whole
// folders, converting document-level failures into error-flagged records so a
// single unreadable file never aborts a batch.
package invoice

import (
	"runtime"
)

// Defaults for the injectable rule tables.
const (
	DefaultCurrency      = "EUR"
	DefaultToleranceAbs  = 0.5
	DefaultToleranceRel  = 0.005
	DefaultScanDepth     = 10
	DefaultBatchWorkers  = 12
	placeholderLineLabel = "item"
)

// DefaultAllowedCurrencies is the currency allow-list used when none is configured.
var DefaultAllowedCurrencies = []string{"USD", "EUR", "INR", "GBP", "AUD", "CAD"}

// DefaultHeaderTerms marks a line as the header row of a line-item table.
var DefaultHeaderTerms = []string{"description", "qty", "quantity", "unit", "unit price", "price", "amount", "total"}

// ValidatorConfig holds the rule constants used by the Validator.
type ValidatorConfig struct {
	// AllowedCurrencies lists accepted ISO codes, compared case-insensitively.
	AllowedCurrencies []string

	// DefaultCurrency is applied by ApplyDefaults for display; validation never uses it.
	DefaultCurrency string

	// ToleranceAbs and ToleranceRel define the accepted deviation between a
	// stated and a computed total: max(abs, rel*max(|stated|, 1)).
	ToleranceAbs float64
	ToleranceRel float64

	// Workers bounds per-record validation concurrency. Values below 1 mean one worker.
	Workers int
}

// DefaultValidatorConfig returns a ValidatorConfig with the standard rule set.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		AllowedCurrencies: append([]string(nil), DefaultAllowedCurrencies...),
		DefaultCurrency:   DefaultCurrency,
		ToleranceAbs:      DefaultToleranceAbs,
		ToleranceRel:      DefaultToleranceRel,
		Workers:           runtime.NumCPU(),
	}
}

// ExtractorConfig holds settings for the Extractor.
type ExtractorConfig struct {
	// LineItems detects line items; nil selects SpacingLineItems with defaults.
	LineItems LineItemStrategy

	// NormalizeDates rewrites parseable invoice and due dates to YYYY-MM-DD.
	NormalizeDates bool
}

// DefaultExtractorConfig returns an ExtractorConfig with date normalization on
// and the spacing-based line-item heuristic.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		LineItems:      NewSpacingLineItems(DefaultHeaderTerms, DefaultScanDepth),
		NormalizeDates: true,
	}
}
