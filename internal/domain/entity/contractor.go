package entity

import (
	"strings"
	"time"
)

// Contractor is a denormalized {taxID -> name} cache maintained as a side
// effect of every invoice save. It speeds up categorization history lookups
// and is fully rebuildable from the invoice table.
type Contractor struct {
	TaxID     string    `json:"tax_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryEntry is one append-only record of a past approval for a
// contractor. Entries are written exactly once per approval and never
// mutated except by a full rebuild.
type CategoryEntry struct {
	ID         int64     `json:"id"`
	TaxID      string    `json:"tax_id"`
	Category   Category  `json:"category"`
	CostCenter string    `json:"cost_center,omitempty"`
	GrossCents int64     `json:"gross_cents"`
	ApprovedAt time.Time `json:"approved_at"`
}

// Rule is an operator-defined categorization rule. All enabled rules are
// evaluated against extracted fields; among matches the highest priority
// wins.
type Rule struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Enabled       bool     `json:"enabled"`
	Priority      int      `json:"priority"`
	TaxID         string   `json:"tax_id,omitempty"`
	NameContains  string   `json:"name_contains,omitempty"`
	MinGrossCents int64    `json:"min_gross_cents,omitempty"`
	MaxGrossCents int64    `json:"max_gross_cents,omitempty"`
	Category      Category `json:"category"`
	CostCenter    string   `json:"cost_center,omitempty"`
}

// Matches reports whether the rule's conditions hold for the given fields.
// A zero-valued condition is treated as absent.
func (r *Rule) Matches(sellerTaxID, sellerName string, grossCents int64) bool {
	if !r.Enabled {
		return false
	}
	if r.TaxID != "" && r.TaxID != sellerTaxID {
		return false
	}
	if r.NameContains != "" && !strings.Contains(strings.ToLower(sellerName), strings.ToLower(r.NameContains)) {
		return false
	}
	if r.MinGrossCents > 0 && grossCents < r.MinGrossCents {
		return false
	}
	if r.MaxGrossCents > 0 && grossCents > r.MaxGrossCents {
		return false
	}
	return true
}
