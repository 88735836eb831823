package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// Pattern table for the free-text pass. Every pattern is independent;
// a miss leaves the field absent and never fails the others.
var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)(?:faktura|fv|invoice)\s*(?:vat)?\s*(?:nr|no\.?|#)?\s*[:.]?\s*([A-Z0-9][A-Z0-9/\-.]{2,})`)

	// Polish NIP: ten digits, optionally grouped by dashes or spaces.
	taxIDPattern = regexp.MustCompile(`(?i)(?:NIP|VAT\s*ID|Tax\s*ID)\s*[:.]?\s*((?:\d[ -]?){9}\d)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{2}[./]\d{2}[./]\d{4})\b`),
	}

	amountPattern = regexp.MustCompile(`\b\d{1,3}(?:[ .]\d{3})*,\d{2}\b|\b\d+\.\d{2}\b`)
)

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006"}

// ExtractFromText runs the pattern pass over recognized text. The returned
// fields carry the provider confidence minus the amount-ambiguity penalty.
func ExtractFromText(text string, providerConfidence int) *entity.ExtractedFields {
	fields := &entity.ExtractedFields{
		Confidence: providerConfidence,
		LineText:   firstLines(text, 5),
	}

	if m := invoiceNumberPattern.FindStringSubmatch(text); len(m) > 1 {
		fields.InvoiceNumber = strings.TrimRight(m[1], ".")
	}

	// Tax ids: first match is the seller, second the buyer.
	taxIDs := collectTaxIDs(text)
	if len(taxIDs) > 0 {
		fields.SellerTaxID = taxIDs[0]
	}
	if len(taxIDs) > 1 {
		fields.BuyerTaxID = taxIDs[1]
	}

	// Dates: first match is the issue date, second the due date.
	dates := collectDates(text)
	if len(dates) > 0 {
		fields.IssueDate = &dates[0]
	}
	if len(dates) > 1 {
		fields.DueDate = &dates[1]
	}

	// Amounts: largest is gross, second largest net.
	assignment := AssignAmounts(collectAmounts(text))
	fields.GrossCents = assignment.GrossCents
	fields.NetCents = assignment.NetCents
	fields.VATCents = assignment.VATCents
	if assignment.ConfidencePenalty > 0 {
		fields.Confidence -= assignment.ConfidencePenalty
		if fields.Confidence < 0 {
			fields.Confidence = 0
		}
	}

	if fields.SellerName == "" {
		fields.SellerName = guessSellerName(text)
	}

	return fields
}

func collectTaxIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range taxIDPattern.FindAllStringSubmatch(text, -1) {
		id := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m[1])
		if len(id) == 10 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func collectDates(text string) []time.Time {
	var dates []time.Time
	for _, pattern := range datePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, m[1]); err == nil {
					dates = append(dates, t)
					break
				}
			}
		}
	}
	return dates
}

func collectAmounts(text string) []int64 {
	var amounts []int64
	for _, token := range amountPattern.FindAllString(text, -1) {
		if cents, ok := ParseAmountCents(token); ok {
			amounts = append(amounts, cents)
		}
	}
	return amounts
}

// guessSellerName takes the first non-empty line that is not an obvious
// header keyword. Crude, but the field is advisory and reviewed by the
// operator.
func guessSellerName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "faktura") || strings.HasPrefix(lower, "invoice") ||
			strings.HasPrefix(lower, "paragon") || strings.HasPrefix(lower, "receipt") {
			continue
		}
		if len(line) > 80 {
			line = line[:80]
		}
		return line
	}
	return ""
}

func firstLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
