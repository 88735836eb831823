package extract

import (
	"sort"
	"strconv"
	"strings"
)

// ParseAmountCents parses an amount token honoring locale separators:
// "1 234,56", "1.234,56", "1,234.56" and "1234.56" all yield 123456.
// Returns false for tokens that do not look like money.
func ParseAmountCents(token string) (int64, bool) {
	s := strings.TrimSpace(token)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	// The last separator is the decimal mark; everything before it is a
	// thousands separator.
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	decimalSep := byte(0)
	switch {
	case lastComma > lastDot:
		decimalSep = ','
	case lastDot > lastComma:
		decimalSep = '.'
	}

	intPart, fracPart := s, ""
	if decimalSep != 0 {
		idx := strings.LastIndexByte(s, decimalSep)
		intPart, fracPart = s[:idx], s[idx+1:]
		// Three digits after the separator means it was a thousands group.
		if len(fracPart) == 3 {
			intPart += fracPart
			fracPart = ""
		}
	}

	intPart = strings.ReplaceAll(intPart, ",", "")
	intPart = strings.ReplaceAll(intPart, ".", "")
	if intPart == "" {
		intPart = "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}

	var frac int64
	switch len(fracPart) {
	case 0:
		frac = 0
	case 1:
		d, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, false
		}
		frac = d * 10
	case 2:
		d, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, false
		}
		frac = d
	default:
		return 0, false
	}

	return whole*100 + frac, true
}

// AmountAssignment is the result of the documented amount heuristic.
type AmountAssignment struct {
	GrossCents int64
	NetCents   int64
	VATCents   int64

	// ConfidencePenalty is subtracted from the recognition confidence when
	// more than two amount-like tokens were found, since the largest-token
	// rule may then pick an unrelated number.
	ConfidencePenalty int
}

// extraAmountPenalty is applied once when candidates beyond gross and net
// exist.
const extraAmountPenalty = 10

// AssignAmounts implements the explicit amount policy: candidates are
// filtered to positive values and sorted descending; the largest becomes
// gross, the second largest net, and VAT is their difference when both are
// present. This is a deliberate simplification kept exactly as documented,
// not a guess.
func AssignAmounts(candidates []int64) AmountAssignment {
	positive := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		if c > 0 {
			positive = append(positive, c)
		}
	}
	sort.Slice(positive, func(i, j int) bool { return positive[i] > positive[j] })

	var out AmountAssignment
	if len(positive) > 0 {
		out.GrossCents = positive[0]
	}
	if len(positive) > 1 {
		out.NetCents = positive[1]
		out.VATCents = out.GrossCents - out.NetCents
	}
	if len(positive) > 2 {
		out.ConfidencePenalty = extraAmountPenalty
	}
	return out
}
