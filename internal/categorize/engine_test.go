package categorize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

type fakeHistory struct {
	entries  map[string][]*entity.CategoryEntry
	appended []*entity.CategoryEntry
}

func (f *fakeHistory) ListByTaxID(_ context.Context, taxID string) ([]*entity.CategoryEntry, error) {
	return f.entries[taxID], nil
}

func (f *fakeHistory) Append(_ context.Context, e *entity.CategoryEntry) error {
	f.appended = append(f.appended, e)
	if f.entries == nil {
		f.entries = make(map[string][]*entity.CategoryEntry)
	}
	f.entries[e.TaxID] = append(f.entries[e.TaxID], e)
	return nil
}

type fakeRules struct {
	rules []*entity.Rule
}

func (f *fakeRules) ListEnabled(_ context.Context) ([]*entity.Rule, error) {
	return f.rules, nil
}

type fakeContractors struct {
	byName map[string]string
}

func (f *fakeContractors) FindTaxIDByName(_ context.Context, name string) (string, error) {
	return f.byName[NormalizeName(name)], nil
}

func newTestEngine(history *fakeHistory, rules *fakeRules) *Engine {
	if history == nil {
		history = &fakeHistory{}
	}
	if rules == nil {
		rules = &fakeRules{}
	}
	return NewEngine(history, rules, &fakeContractors{}, zap.NewNop())
}

func historyEntries(taxID string, categories ...entity.Category) []*entity.CategoryEntry {
	entries := make([]*entity.CategoryEntry, 0, len(categories))
	for _, c := range categories {
		entries = append(entries, &entity.CategoryEntry{
			TaxID:      taxID,
			Category:   c,
			ApprovedAt: time.Now(),
		})
	}
	return entries
}

func TestSuggestHistoryDominantShare(t *testing.T) {
	history := &fakeHistory{entries: map[string][]*entity.CategoryEntry{
		"7770000037": historyEntries("7770000037",
			entity.CategoryFuel, entity.CategoryFuel, entity.CategoryFuel,
			entity.CategoryFuel, entity.CategoryOfficeSupplies),
	}}
	engine := newTestEngine(history, nil)

	s, err := engine.Suggest(context.Background(), &entity.ExtractedFields{SellerTaxID: "7770000037"})
	require.NoError(t, err)

	assert.Equal(t, entity.CategoryFuel, s.Category)
	assert.Equal(t, 80, s.Confidence, "4 of 5 approvals")
	assert.Equal(t, StrategyHistory, s.Strategy)
	require.Len(t, s.Alternatives, 1)
	assert.Equal(t, entity.CategoryOfficeSupplies, s.Alternatives[0].Category)
}

func TestSuggestHistoryBelowThresholdStillWins(t *testing.T) {
	// 3 of 4 fuel gives 75, below the early-return threshold of 80, but it
	// still beats every other strategy for a seller with no keyword hits.
	history := &fakeHistory{entries: map[string][]*entity.CategoryEntry{
		"7770000037": historyEntries("7770000037",
			entity.CategoryFuel, entity.CategoryFuel, entity.CategoryFuel,
			entity.CategoryOfficeSupplies),
	}}
	engine := newTestEngine(history, nil)

	s, err := engine.Suggest(context.Background(), &entity.ExtractedFields{
		SellerTaxID: "7770000037",
		SellerName:  "Firma XYZ",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.CategoryFuel, s.Category)
	assert.Equal(t, 75, s.Confidence)
	assert.Equal(t, StrategyHistory, s.Strategy)
}

func TestSuggestRuleMatch(t *testing.T) {
	rules := &fakeRules{rules: []*entity.Rule{
		{ID: 1, Name: "fuel stations", Enabled: true, Priority: 100,
			NameContains: "orlen", Category: entity.CategoryFuel},
	}}
	engine := newTestEngine(nil, rules)

	s, err := engine.Suggest(context.Background(), &entity.ExtractedFields{
		SellerName: "ORLEN Stacja 44",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.CategoryFuel, s.Category)
	assert.Equal(t, 90, s.Confidence, "70 + 100/5")
	assert.Equal(t, StrategyRule, s.Strategy)
}

func TestScoreRulesFirstMatchWins(t *testing.T) {
	// Rules arrive sorted by priority descending.
	rules := []*entity.Rule{
		{Enabled: true, Priority: 200, NameContains: "hurtownia", Category: entity.CategoryGoodsPurchase},
		{Enabled: true, Priority: 50, Category: entity.CategoryServices},
	}

	s := ScoreRules(rules, &entity.ExtractedFields{SellerName: "Hurtownia ABC"})
	require.NotNil(t, s)
	assert.Equal(t, entity.CategoryGoodsPurchase, s.Category)
	assert.Equal(t, 100, s.Confidence, "confidence caps at 100")
}

func TestScoreRulesConditions(t *testing.T) {
	rule := &entity.Rule{
		Enabled:       true,
		TaxID:         "7770000037",
		MinGrossCents: 10000,
		MaxGrossCents: 50000,
		Category:      entity.CategoryFuel,
	}

	assert.True(t, rule.Matches("7770000037", "", 24600))
	assert.False(t, rule.Matches("1234563218", "", 24600), "tax id mismatch")
	assert.False(t, rule.Matches("7770000037", "", 5000), "below min gross")
	assert.False(t, rule.Matches("7770000037", "", 99900), "above max gross")

	rule.Enabled = false
	assert.False(t, rule.Matches("7770000037", "", 24600), "disabled rules never match")
}

func TestSuggestKeywordFallback(t *testing.T) {
	engine := newTestEngine(nil, nil)

	s, err := engine.Suggest(context.Background(), &entity.ExtractedFields{
		SellerName: "Stacja Paliw Nowak",
		LineText:   "tankowanie diesel 45l",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.CategoryFuel, s.Category)
	assert.Equal(t, StrategyKeyword, s.Strategy)
	assert.LessOrEqual(t, s.Confidence, keywordMaxConfidence)
	assert.Equal(t, 3*keywordHitConfidence, s.Confidence, "stacja paliw, diesel and tankowanie each hit once")
}

func TestSuggestBucketFallback(t *testing.T) {
	engine := newTestEngine(nil, nil)

	tests := []struct {
		name  string
		gross int64
		want  entity.Category
	}{
		{"small amounts look like consumables", 9900, entity.CategoryOfficeSupplies},
		{"medium amounts look like services", 500000, entity.CategoryServices},
		{"large amounts look like goods", 5_000_000, entity.CategoryGoodsPurchase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := engine.Suggest(context.Background(), &entity.ExtractedFields{GrossCents: tt.gross})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Category)
			assert.Equal(t, bucketConfidence, s.Confidence)
			assert.Equal(t, StrategyBucket, s.Strategy)
		})
	}
}

func TestLearnFromApproval(t *testing.T) {
	history := &fakeHistory{}
	engine := newTestEngine(history, nil)

	inv := &entity.Invoice{
		ID: "inv-1",
		Extracted: &entity.ExtractedFields{
			SellerTaxID: "7770000037",
			GrossCents:  24600,
		},
		Description: &entity.Description{Category: entity.CategoryFuel, CostCenter: "fleet"},
	}

	require.NoError(t, engine.LearnFromApproval(context.Background(), inv))
	require.Len(t, history.appended, 1)
	assert.Equal(t, "7770000037", history.appended[0].TaxID)
	assert.Equal(t, entity.CategoryFuel, history.appended[0].Category)
	assert.Equal(t, "fleet", history.appended[0].CostCenter)
	assert.Equal(t, int64(24600), history.appended[0].GrossCents)
}

func TestLearnFromApprovalFallsBackToName(t *testing.T) {
	history := &fakeHistory{}
	engine := newTestEngine(history, nil)

	inv := &entity.Invoice{
		ID: "inv-2",
		Extracted: &entity.ExtractedFields{
			SellerName: "Hurtownia Papiernicza Sp. z o.o.",
		},
		Description: &entity.Description{Category: entity.CategoryOfficeSupplies},
	}

	require.NoError(t, engine.LearnFromApproval(context.Background(), inv))
	require.Len(t, history.appended, 1)
	assert.Equal(t, "name:hurtownia papiernicza", history.appended[0].TaxID)
}

func TestLearnFromApprovalSkipsAnonymousInvoices(t *testing.T) {
	history := &fakeHistory{}
	engine := newTestEngine(history, nil)

	inv := &entity.Invoice{
		ID:          "inv-3",
		Description: &entity.Description{Category: entity.CategoryServices},
	}

	require.NoError(t, engine.LearnFromApproval(context.Background(), inv))
	assert.Empty(t, history.appended, "no contractor identity, nothing to learn")
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "hurtownia papiernicza", NormalizeName("  Hurtownia   Papiernicza Sp. z o.o."))
	assert.Equal(t, "acme", NormalizeName("ACME LTD"))
	assert.Equal(t, "", NormalizeName("   "))
}
