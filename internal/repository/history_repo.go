package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"go.uber.org/zap"
)

// HistoryRepository stores the append-only category history used by the
// categorization engine. Rows are written exactly once per approval and
// never mutated.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one approval for a contractor.
func (r *HistoryRepository) Append(ctx context.Context, e *entity.CategoryEntry) error {
	query := `
		INSERT INTO category_history (tax_id, category, cost_center, gross_cents, approved_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		e.TaxID, e.Category, e.CostCenter, e.GrossCents, e.ApprovedAt)
	if err != nil {
		r.logger.Error("Failed to append category history",
			zap.String("tax_id", e.TaxID), zap.Error(err))
		return fmt.Errorf("failed to append category history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListByTaxID returns all approvals recorded for a contractor, oldest first.
func (r *HistoryRepository) ListByTaxID(ctx context.Context, taxID string) ([]*entity.CategoryEntry, error) {
	query := `
		SELECT id, tax_id, category, cost_center, gross_cents, approved_at
		FROM category_history
		WHERE tax_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, taxID)
	if err != nil {
		r.logger.Error("Failed to list category history",
			zap.String("tax_id", taxID), zap.Error(err))
		return nil, fmt.Errorf("failed to list category history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.CategoryEntry
	for rows.Next() {
		var e entity.CategoryEntry
		if err := rows.Scan(&e.ID, &e.TaxID, &e.Category, &e.CostCenter, &e.GrossCents, &e.ApprovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category history: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
