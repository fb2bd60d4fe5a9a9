package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"invoiceqc/internal/normalize"
	"invoiceqc/pkg/models"
)

// batchSchemaJSON fixes the batch shape only: an array of objects. Field
// types inside a record are handled per record by recordDecoder.
const batchSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"type": "object"}
}`

var batchSchema = compileBatchSchema()

func compileBatchSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice-batch.json", bytes.NewReader([]byte(batchSchemaJSON))); err != nil {
		panic(fmt.Sprintf("add batch schema: %v", err))
	}
	return compiler.MustCompile("invoice-batch.json")
}

// DecodeBatch parses a JSON array of invoice records. It returns a
// *BatchError wrapping ErrInvalidBatch only when the body is not an array of
// objects. Fields of the wrong type never reject the batch: numeric strings
// are parsed as amounts, numbers are accepted as text, and values that cannot
// be coerced are dropped and listed in the record's error field. An empty
// array is returned as is; callers that require records check the length.
func DecodeBatch(data []byte) ([]*models.Invoice, error) {
	const op = "DecodeBatch"

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &BatchError{Err: ErrInvalidBatch, Causes: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &BatchError{Err: ErrInvalidBatch, Causes: []string{"body must be a JSON array (list of invoices)"}}
	}

	if err := batchSchema.Validate(raw); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &BatchError{Err: ErrInvalidBatch, Causes: leafCauses(ve)}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoices := make([]*models.Invoice, len(items))
	for i, item := range items {
		invoices[i] = decodeRecord(item.(map[string]any))
	}
	return invoices, nil
}

// decodeRecord builds an Invoice from one JSON object, coercing field types.
func decodeRecord(rec map[string]any) *models.Invoice {
	var d recordDecoder

	inv := &models.Invoice{
		InvoiceNumber:     d.text("invoice_number", rec["invoice_number"]),
		ExternalReference: d.text("external_reference", rec["external_reference"]),
		SourceFile:        models.Value(d.text("source_file", rec["source_file"])),
		InvoiceDate:       d.text("invoice_date", rec["invoice_date"]),
		DueDate:           d.text("due_date", rec["due_date"]),
		SellerName:        d.text("seller_name", rec["seller_name"]),
		SellerTaxID:       d.text("seller_tax_id", rec["seller_tax_id"]),
		BuyerName:         d.text("buyer_name", rec["buyer_name"]),
		BuyerTaxID:        d.text("buyer_tax_id", rec["buyer_tax_id"]),
		Currency:          d.text("currency", rec["currency"]),
		NetTotal:          d.amount("net_total", rec["net_total"]),
		TaxAmount:         d.amount("tax_amount", rec["tax_amount"]),
		GrossTotal:        d.amount("gross_total", rec["gross_total"]),
		PaymentTerms:      d.text("payment_terms", rec["payment_terms"]),
		LineItems:         d.lineItems(rec["line_items"]),
		Error:             models.Value(d.text("error", rec["error"])),
	}

	if len(d.problems) > 0 {
		note := "invalid_fields: " + strings.Join(d.problems, "; ")
		if inv.Error != "" {
			note = inv.Error + "; " + note
		}
		inv.Error = note
	}
	return inv
}

// recordDecoder collects the fields that could not be coerced.
type recordDecoder struct {
	problems []string
}

func (d *recordDecoder) reject(field, want string, v any) {
	got := fmt.Sprintf("%v", v)
	if s, ok := v.(string); ok {
		got = strconv.Quote(s)
	}
	d.problems = append(d.problems, fmt.Sprintf("%s: expected %s, got %s", field, want, got))
}

func (d *recordDecoder) text(field string, v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return &x
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		return &s
	default:
		d.reject(field, "text", v)
		return nil
	}
}

func (d *recordDecoder) amount(field string, v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return &x
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		if value, ok := normalize.ParseAmount(x); ok {
			return &value
		}
	}
	d.reject(field, "a number", v)
	return nil
}

func (d *recordDecoder) lineItems(v any) []models.LineItem {
	items := []models.LineItem{}
	if v == nil {
		return items
	}
	rows, ok := v.([]any)
	if !ok {
		d.reject("line_items", "a list", v)
		return items
	}

	for i, row := range rows {
		path := fmt.Sprintf("line_items/%d", i)
		obj, ok := row.(map[string]any)
		if !ok {
			d.reject(path, "an object", row)
			continue
		}

		item := models.LineItem{
			Description: models.Value(d.text(path+"/description", obj["description"])),
			Quantity:    d.amount(path+"/quantity", obj["quantity"]),
			UnitPrice:   d.amount(path+"/unit_price", obj["unit_price"]),
		}
		// a missing or unparseable line total counts as zero
		if total := d.amount(path+"/line_total", obj["line_total"]); total != nil {
			item.LineTotal = *total
		} else if _, present := obj["line_total"]; !present {
			d.problems = append(d.problems, path+"/line_total: missing")
		}
		items = append(items, item)
	}
	return items
}

// leafCauses flattens a schema validation error into "location: message" lines.
func leafCauses(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		location := ve.InstanceLocation
		if location == "" {
			location = "/"
		}
		return []string{fmt.Sprintf("%s: %s", location, ve.Message)}
	}

	var causes []string
	for _, c := range ve.Causes {
		causes = append(causes, leafCauses(c)...)
	}
	sort.Strings(causes)
	return causes
}

// ApplyDefaults returns copies of invoices with a missing currency set to
// currency. The input records are left untouched.
func ApplyDefaults(invoices []*models.Invoice, currency string) []*models.Invoice {
	out := make([]*models.Invoice, len(invoices))
	for i, inv := range invoices {
		if inv == nil {
			continue
		}
		cp := *inv
		if models.Value(cp.Currency) == "" && currency != "" {
			cp.Currency = models.String(currency)
		}
		out[i] = &cp
	}
	return out
}
