package invoice

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoiceqc/internal/logger"
	"invoiceqc/internal/normalize"
	"invoiceqc/pkg/models"
)

// Validator checks invoice records against the configured rule set.
// It is safe for concurrent use.
type Validator struct {
	config  ValidatorConfig
	allowed map[string]struct{}
	tolAbs  decimal.Decimal
	tolRel  decimal.Decimal
	log     zerolog.Logger
}

// NewValidator creates a Validator. Empty allow-lists and non-positive
// tolerances fall back to the defaults.
func NewValidator(config ValidatorConfig) *Validator {
	if len(config.AllowedCurrencies) == 0 {
		config.AllowedCurrencies = DefaultAllowedCurrencies
	}
	if config.ToleranceAbs <= 0 {
		config.ToleranceAbs = DefaultToleranceAbs
	}
	if config.ToleranceRel <= 0 {
		config.ToleranceRel = DefaultToleranceRel
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	allowed := make(map[string]struct{}, len(config.AllowedCurrencies))
	for _, c := range config.AllowedCurrencies {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	return &Validator{
		config:  config,
		allowed: allowed,
		tolAbs:  decimal.NewFromFloat(config.ToleranceAbs),
		tolRel:  decimal.NewFromFloat(config.ToleranceRel),
		log:     logger.WithComponent("validator"),
	}
}

// Validate checks a single record. Duplicate detection needs the whole
// batch and is only performed by ValidateAll.
func (v *Validator) Validate(inv *models.Invoice) models.ValidationResult {
	return v.validate(inv, false)
}

func (v *Validator) validate(inv *models.Invoice, duplicate bool) models.ValidationResult {
	if inv == nil {
		inv = &models.Invoice{}
	}

	errs := []string{}

	if models.Value(inv.InvoiceNumber) == "" {
		errs = append(errs, CodeMissingInvoiceNumber)
	}

	invoiceDate := models.Value(inv.InvoiceDate)
	if invoiceDate == "" {
		errs = append(errs, CodeMissingInvoiceDate)
	} else if _, ok := normalize.ParseDate(invoiceDate); !ok {
		errs = append(errs, CodeInvoiceDateFormat)
	}

	if models.Value(inv.SellerName) == "" {
		errs = append(errs, CodeMissingSellerName)
	}
	if models.Value(inv.BuyerName) == "" {
		errs = append(errs, CodeMissingBuyerName)
	}

	if currency := models.Value(inv.Currency); currency != "" {
		upper := strings.ToUpper(currency)
		if _, ok := v.allowed[upper]; !ok {
			errs = append(errs, CurrencyNotAllowed(upper))
		}
	}

	net := amount(inv.NetTotal)
	tax := amount(inv.TaxAmount)
	gross := amount(inv.GrossTotal)

	if net.IsNegative() || tax.IsNegative() || gross.IsNegative() {
		errs = append(errs, CodeNegativeTotal)
	}

	tolerance := v.tolerance(gross)
	if net.Add(tax).Sub(gross).Abs().GreaterThan(tolerance) {
		errs = append(errs, CodeTotalsMismatch)
	}

	if len(inv.LineItems) > 0 {
		sum := decimal.Zero
		for _, item := range inv.LineItems {
			sum = sum.Add(decimal.NewFromFloat(item.LineTotal))
		}
		if sum.Sub(net).Abs().GreaterThan(tolerance) {
			errs = append(errs, CodeLineItemsMismatch)
		}
	}

	if dueBeforeInvoice(models.Value(inv.InvoiceDate), models.Value(inv.DueDate)) {
		errs = append(errs, CodeDueBeforeInvoice)
	}

	if duplicate {
		errs = append(errs, CodeDuplicateInvoice)
	}

	return models.ValidationResult{
		InvoiceID: inv.ID(),
		IsValid:   len(errs) == 0,
		Errors:    errs,
	}
}

// tolerance returns max(abs, rel*max(|stated|, 1)).
func (v *Validator) tolerance(stated decimal.Decimal) decimal.Decimal {
	base := decimal.Max(stated.Abs(), decimal.NewFromInt(1))
	return decimal.Max(v.tolAbs, v.tolRel.Mul(base))
}

func amount(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

// dueBeforeInvoice reports whether both dates parse and the due date is
// earlier. Parse failures are not reported here.
func dueBeforeInvoice(invoiceDate, dueDate string) bool {
	if invoiceDate == "" || dueDate == "" {
		return false
	}
	issued, ok := normalize.ParseDate(invoiceDate)
	if !ok {
		return false
	}
	due, ok := normalize.ParseDate(dueDate)
	if !ok {
		return false
	}
	return due.Before(issued)
}

type duplicateKey struct {
	number string
	seller string
	date   string
}

// FindDuplicates returns, for each record, whether an earlier record in the
// batch shares its invoice number, case-folded seller name and invoice date.
// Records without an invoice number are never flagged. The first occurrence
// of a key is not flagged.
func FindDuplicates(invoices []*models.Invoice) []bool {
	flags := make([]bool, len(invoices))
	seen := make(map[duplicateKey]struct{}, len(invoices))

	for i, inv := range invoices {
		if inv == nil || models.Value(inv.InvoiceNumber) == "" {
			continue
		}
		key := duplicateKey{
			number: models.Value(inv.InvoiceNumber),
			seller: strings.ToLower(models.Value(inv.SellerName)),
			date:   models.Value(inv.InvoiceDate),
		}
		if _, ok := seen[key]; ok {
			flags[i] = true
			continue
		}
		seen[key] = struct{}{}
	}

	return flags
}

// ValidateAll validates a batch. Duplicate flags are computed in one
// sequential pass first; records are then validated by a worker pool and
// results are returned in input order. Records are not modified.
func (v *Validator) ValidateAll(invoices []*models.Invoice) ([]models.ValidationResult, models.BatchSummary) {
	duplicates := FindDuplicates(invoices)
	results := make([]models.ValidationResult, len(invoices))

	workers := v.config.Workers
	if workers > len(invoices) {
		workers = len(invoices)
	}

	jobs := make(chan int, len(invoices))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = v.validate(invoices[i], duplicates[i])
			}
		}()
	}
	for i := range invoices {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := Summarize(results)

	v.log.Debug().
		Int("total", summary.TotalInvoices).
		Int("valid", summary.ValidInvoices).
		Int("invalid", summary.InvalidInvoices).
		Msg("Batch validated")

	return results, summary
}

// Summarize aggregates validation results into a batch summary.
func Summarize(results []models.ValidationResult) models.BatchSummary {
	summary := models.BatchSummary{
		TotalInvoices: len(results),
		ErrorCounts:   map[string]int{},
	}
	for _, r := range results {
		if r.IsValid {
			summary.ValidInvoices++
		} else {
			summary.InvalidInvoices++
		}
		for _, code := range r.Errors {
			summary.ErrorCounts[code]++
		}
	}
	return summary
}
