package normalize

import (
	"strings"
	"time"
)

// ISODate is the canonical layout for stored dates.
const ISODate = "2006-01-02"

// dateLayouts are tried in order and the first match wins. Day/month
// ambiguous inputs such as "03/04/2024" therefore always read as DD/MM.
var dateLayouts = []string{
	"2006-1-2", // YYYY-MM-DD
	"2/1/2006", // DD/MM/YYYY
	"2-1-2006", // DD-MM-YYYY
	"1/2/2006", // MM/DD/YYYY
}

// ParseDate parses s against the supported layouts.
// ok is false for empty input or when no layout matches.
func ParseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns s in YYYY-MM-DD form, or s unchanged if it cannot be parsed.
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(ISODate)
	}
	return s
}

// Date is the optional form of NormalizeDate.
func Date(s *string) *string {
	if s == nil {
		return nil
	}
	normalized := NormalizeDate(*s)
	return &normalized
}
