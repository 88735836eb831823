package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"go.uber.org/zap"
)

// RuleRepository stores operator-defined categorization rules.
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a rule and assigns its id.
func (r *RuleRepository) Create(ctx context.Context, rule *entity.Rule) error {
	query := `
		INSERT INTO rules (name, enabled, priority, tax_id, name_contains,
			min_gross_cents, max_gross_cents, category, cost_center)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Enabled, rule.Priority, rule.TaxID, rule.NameContains,
		rule.MinGrossCents, rule.MaxGrossCents, rule.Category, rule.CostCenter)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.String("name", rule.Name), zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = id
	return nil
}

// ListEnabled returns all enabled rules, highest priority first.
func (r *RuleRepository) ListEnabled(ctx context.Context) ([]*entity.Rule, error) {
	query := `
		SELECT id, name, enabled, priority, tax_id, name_contains,
			min_gross_cents, max_gross_cents, category, cost_center
		FROM rules
		WHERE enabled = 1
		ORDER BY priority DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.Rule
	for rows.Next() {
		var rule entity.Rule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Enabled, &rule.Priority,
			&rule.TaxID, &rule.NameContains, &rule.MinGrossCents, &rule.MaxGrossCents,
			&rule.Category, &rule.CostCenter); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
