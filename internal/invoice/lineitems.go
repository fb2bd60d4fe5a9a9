package invoice

import (
	"regexp"
	"strings"

	"invoiceqc/internal/normalize"
	"invoiceqc/pkg/models"
)

// LineItemStrategy detects line items in document text.
type LineItemStrategy interface {
	Detect(text string) []models.LineItem
}

var columnSeparator = regexp.MustCompile(`\s{2,}|\t`)

// SpacingLineItems finds the first line containing a header term and reads
// up to ScanDepth following lines as table rows, splitting columns on runs of
// two or more spaces or tabs. The last column of a row must parse as an
// amount; rows where it does not are skipped.
type SpacingLineItems struct {
	HeaderTerms []string
	ScanDepth   int

	// WholeWords restricts header terms to whole-word matches, so that
	// "Subtotals" or "Community" no longer start a table. Off by default.
	WholeWords bool

	terms  []string
	header *regexp.Regexp
}

// NewSpacingLineItems creates a spacing-based strategy. A line is a header
// when its lower-cased text contains any of headerTerms.
func NewSpacingLineItems(headerTerms []string, scanDepth int) *SpacingLineItems {
	if len(headerTerms) == 0 {
		headerTerms = DefaultHeaderTerms
	}
	if scanDepth <= 0 {
		scanDepth = DefaultScanDepth
	}

	terms := make([]string, 0, len(headerTerms))
	quoted := make([]string, 0, len(headerTerms))
	for _, term := range headerTerms {
		words := strings.Fields(strings.ToLower(term))
		if len(words) == 0 {
			continue
		}
		terms = append(terms, strings.Join(words, " "))
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		quoted = append(quoted, strings.Join(words, `\s+`))
	}

	return &SpacingLineItems{
		HeaderTerms: headerTerms,
		ScanDepth:   scanDepth,
		terms:       terms,
		header:      regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// NewWholeWordLineItems is NewSpacingLineItems with WholeWords set.
func NewWholeWordLineItems(headerTerms []string, scanDepth int) *SpacingLineItems {
	s := NewSpacingLineItems(headerTerms, scanDepth)
	s.WholeWords = true
	return s
}

func (s *SpacingLineItems) isHeader(line string) bool {
	if s.WholeWords {
		return s.header.MatchString(line)
	}
	low := strings.ToLower(line)
	for _, term := range s.terms {
		if strings.Contains(low, term) {
			return true
		}
	}
	return false
}

// Detect implements LineItemStrategy.
func (s *SpacingLineItems) Detect(text string) []models.LineItem {
	items := []models.LineItem{}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	headerIdx := -1
	for i, line := range lines {
		if s.isHeader(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return items
	}

	end := headerIdx + 1 + s.ScanDepth
	if end > len(lines) {
		end = len(lines)
	}

	for _, row := range lines[headerIdx+1 : end] {
		cols := columnSeparator.Split(strings.TrimSpace(row), -1)
		if len(cols) < 2 {
			continue
		}

		amount, ok := normalize.ParseAmount(cols[len(cols)-1])
		if !ok {
			continue
		}

		description := strings.TrimSpace(strings.Join(cols[:len(cols)-1], " "))
		if description == "" {
			description = placeholderLineLabel
		}

		items = append(items, models.LineItem{
			Description: description,
			LineTotal:   amount,
		})
	}

	return items
}
