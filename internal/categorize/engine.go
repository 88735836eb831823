package categorize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"go.uber.org/zap"
)

// Strategy thresholds. A strategy returns early only when its confidence
// clears its own threshold; otherwise the best candidate across strategies
// wins.
const (
	historyThreshold = 80
	ruleThreshold    = 70

	ruleBaseConfidence   = 70
	keywordMaxConfidence = 65
	keywordHitConfidence = 5
	bucketConfidence     = 20
)

// Strategy names recorded on suggestions for operator display.
const (
	StrategyHistory = "history"
	StrategyRule    = "rule"
	StrategyKeyword = "keyword"
	StrategyBucket  = "amount-bucket"
)

// Engine proposes a bookkeeping category for extracted fields. Suggestions
// are advisory: the engine never writes Invoice.Description; auto-approve
// policy, if any, lives with the orchestrating caller.
type Engine struct {
	history     HistoryStore
	rules       RuleStore
	contractors ContractorLookup
	logger      *zap.Logger
}

// NewEngine creates a categorization engine with injected stores.
func NewEngine(history HistoryStore, rules RuleStore, contractors ContractorLookup, logger *zap.Logger) *Engine {
	return &Engine{
		history:     history,
		rules:       rules,
		contractors: contractors,
		logger:      logger,
	}
}

// Suggest applies the three strategies in priority order, falling back to
// the amount-bucket guess when nothing scored.
func (e *Engine) Suggest(ctx context.Context, fields *entity.ExtractedFields) (*entity.Suggestion, error) {
	if fields == nil {
		return nil, fmt.Errorf("nil extracted fields")
	}

	var candidates []*entity.Suggestion

	if s, err := e.historyMatch(ctx, fields); err != nil {
		e.logger.Warn("History strategy failed", zap.Error(err))
	} else if s != nil {
		if s.Confidence >= historyThreshold {
			return s, nil
		}
		candidates = append(candidates, s)
	}

	if s, err := e.ruleMatch(ctx, fields); err != nil {
		e.logger.Warn("Rule strategy failed", zap.Error(err))
	} else if s != nil {
		if s.Confidence >= ruleThreshold {
			return s, nil
		}
		candidates = append(candidates, s)
	}

	if s := keywordMatch(fields); s != nil {
		candidates = append(candidates, s)
	}

	// Highest confidence wins; earlier strategy wins ties.
	best := (*entity.Suggestion)(nil)
	for _, c := range candidates {
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	if best != nil {
		return best, nil
	}

	return &entity.Suggestion{
		Category:   bucketCategory(fields.GrossCents),
		Confidence: bucketConfidence,
		Strategy:   StrategyBucket,
	}, nil
}

// historyMatch scores the contractor's past approvals: confidence is the
// percentage share of the most frequent {category, costCenter} pair.
func (e *Engine) historyMatch(ctx context.Context, fields *entity.ExtractedFields) (*entity.Suggestion, error) {
	key := historyKey(fields.SellerTaxID, fields.SellerName)
	if key == "" {
		return nil, nil
	}

	// Extraction may have found a name but no tax id; the contractor cache
	// can still resolve the canonical identity.
	if fields.SellerTaxID == "" && e.contractors != nil {
		if taxID, err := e.contractors.FindTaxIDByName(ctx, fields.SellerName); err == nil && taxID != "" {
			key = taxID
		}
	}

	entries, err := e.history.ListByTaxID(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	return ScoreHistory(entries), nil
}

// ScoreHistory computes the dominant {category, costCenter} pair and its
// share of all approvals. Pure; exported for tests.
func ScoreHistory(entries []*entity.CategoryEntry) *entity.Suggestion {
	type pair struct {
		category   entity.Category
		costCenter string
	}

	counts := make(map[pair]int)
	order := make([]pair, 0)
	for _, e := range entries {
		p := pair{e.Category, e.CostCenter}
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}

	best := order[0]
	for _, p := range order {
		if counts[p] > counts[best] {
			best = p
		}
	}

	confidence := counts[best] * 100 / len(entries)

	var alternatives []entity.Alternative
	for _, p := range order {
		if p == best {
			continue
		}
		alternatives = append(alternatives, entity.Alternative{
			Category:   p.category,
			CostCenter: p.costCenter,
			Confidence: counts[p] * 100 / len(entries),
		})
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Confidence > alternatives[j].Confidence
	})
	if len(alternatives) > 3 {
		alternatives = alternatives[:3]
	}

	return &entity.Suggestion{
		Category:     best.category,
		CostCenter:   best.costCenter,
		Confidence:   confidence,
		Strategy:     StrategyHistory,
		Alternatives: alternatives,
	}
}

// ruleMatch evaluates all enabled rules and picks the highest-priority
// match; confidence is 70 + priority/5, capped at 100.
func (e *Engine) ruleMatch(ctx context.Context, fields *entity.ExtractedFields) (*entity.Suggestion, error) {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	return ScoreRules(rules, fields), nil
}

// ScoreRules is the pure rule-evaluation step. Rules are expected sorted
// by priority descending; the first match wins.
func ScoreRules(rules []*entity.Rule, fields *entity.ExtractedFields) *entity.Suggestion {
	for _, rule := range rules {
		if !rule.Matches(fields.SellerTaxID, fields.SellerName, fields.GrossCents) {
			continue
		}
		confidence := ruleBaseConfidence + rule.Priority/5
		if confidence > 100 {
			confidence = 100
		}
		return &entity.Suggestion{
			Category:   rule.Category,
			CostCenter: rule.CostCenter,
			Confidence: confidence,
			Strategy:   StrategyRule,
		}
	}
	return nil
}

// keywordMatch scores each built-in category by keyword hits in the seller
// name and line-item text; confidence = min(hits*5, 65). Declaration order
// of entity.Categories breaks ties.
func keywordMatch(fields *entity.ExtractedFields) *entity.Suggestion {
	haystack := strings.ToLower(fields.SellerName + "\n" + fields.LineText)
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	bestScore := 0
	var bestCategory entity.Category
	var alternatives []entity.Alternative

	for _, category := range entity.Categories {
		score := 0
		for _, keyword := range categoryKeywords[category] {
			score += strings.Count(haystack, keyword)
		}
		if score == 0 {
			continue
		}
		confidence := score * keywordHitConfidence
		if confidence > keywordMaxConfidence {
			confidence = keywordMaxConfidence
		}
		if score > bestScore {
			if bestScore > 0 {
				alternatives = append(alternatives, entity.Alternative{
					Category:   bestCategory,
					Confidence: minInt(bestScore*keywordHitConfidence, keywordMaxConfidence),
				})
			}
			bestScore = score
			bestCategory = category
		} else {
			alternatives = append(alternatives, entity.Alternative{
				Category:   category,
				Confidence: confidence,
			})
		}
	}

	if bestScore == 0 {
		return nil
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Confidence > alternatives[j].Confidence
	})
	if len(alternatives) > 3 {
		alternatives = alternatives[:3]
	}

	return &entity.Suggestion{
		Category:     bestCategory,
		Confidence:   minInt(bestScore*keywordHitConfidence, keywordMaxConfidence),
		Strategy:     StrategyKeyword,
		Alternatives: alternatives,
	}
}

// LearnFromApproval appends one history tuple for an approved invoice.
// It is the only mutator of the history store and is called exactly once
// per approval; the workflow machine makes re-approval unreachable.
func (e *Engine) LearnFromApproval(ctx context.Context, inv *entity.Invoice) error {
	if inv.Description == nil {
		return fmt.Errorf("invoice %s approved without description", inv.ID)
	}

	var taxID, name string
	if inv.Extracted != nil {
		taxID = inv.Extracted.SellerTaxID
		name = inv.Extracted.SellerName
	}
	key := historyKey(taxID, name)
	if key == "" {
		// Nothing to key history on; skip rather than pollute the table.
		e.logger.Debug("Skipping history learning, no contractor identity",
			zap.String("id", inv.ID))
		return nil
	}

	var gross int64
	if inv.Extracted != nil {
		gross = inv.Extracted.GrossCents
	}

	return e.history.Append(ctx, &entity.CategoryEntry{
		TaxID:      key,
		Category:   inv.Description.Category,
		CostCenter: inv.Description.CostCenter,
		GrossCents: gross,
		ApprovedAt: time.Now().UTC(),
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
