package categorize

import (
	"context"
	"strings"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// HistoryStore provides the append-only category history. Append is the
// engine's only mutation, performed exactly once per approval.
type HistoryStore interface {
	ListByTaxID(ctx context.Context, taxID string) ([]*entity.CategoryEntry, error)
	Append(ctx context.Context, e *entity.CategoryEntry) error
}

// RuleStore provides the operator-defined rules.
type RuleStore interface {
	ListEnabled(ctx context.Context) ([]*entity.Rule, error)
}

// ContractorLookup resolves a tax id from a contractor name, the fallback
// identity when extraction found no tax id.
type ContractorLookup interface {
	FindTaxIDByName(ctx context.Context, name string) (string, error)
}

// NormalizeName canonicalizes a contractor name for identity fallback:
// lowercased, whitespace collapsed, common legal suffixes stripped.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{"sp. z o.o.", "sp. z o. o.", "s.a.", "sp.j.", "ltd", "gmbh"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.Join(strings.Fields(s), " ")
}

// historyKey is the contractor identity used in the history table: the tax
// id when present, otherwise the normalized name.
func historyKey(taxID, name string) string {
	if taxID != "" {
		return taxID
	}
	if n := NormalizeName(name); n != "" {
		return "name:" + n
	}
	return ""
}
