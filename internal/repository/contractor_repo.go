package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"go.uber.org/zap"
)

// ContractorRepository maintains the {taxID -> name} cache. It is updated
// as a side effect of invoice saves and is rebuildable from the invoice
// table, so writes are best-effort upserts.
type ContractorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewContractorRepository creates a new contractor repository.
func NewContractorRepository(db *sql.DB, logger *zap.Logger) *ContractorRepository {
	return &ContractorRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert records the latest known name for a tax id.
func (r *ContractorRepository) Upsert(ctx context.Context, taxID, name string) error {
	if taxID == "" || name == "" {
		return nil
	}

	query := `
		INSERT INTO contractors (tax_id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tax_id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, taxID, name, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to upsert contractor", zap.String("tax_id", taxID), zap.Error(err))
		return fmt.Errorf("failed to upsert contractor: %w", err)
	}
	return nil
}

// Get retrieves a contractor by tax id.
func (r *ContractorRepository) Get(ctx context.Context, taxID string) (*entity.Contractor, error) {
	query := `SELECT tax_id, name, updated_at FROM contractors WHERE tax_id = ?`

	var c entity.Contractor
	err := r.db.QueryRowContext(ctx, query, taxID).Scan(&c.TaxID, &c.Name, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get contractor", zap.String("tax_id", taxID), zap.Error(err))
		return nil, fmt.Errorf("failed to get contractor: %w", err)
	}
	return &c, nil
}

// FindTaxIDByName resolves a tax id from a case-insensitive name match.
// Used as the history-lookup fallback when extraction found no tax id.
func (r *ContractorRepository) FindTaxIDByName(ctx context.Context, name string) (string, error) {
	query := `SELECT tax_id FROM contractors WHERE LOWER(name) = LOWER(?) LIMIT 1`

	var taxID string
	err := r.db.QueryRowContext(ctx, query, name).Scan(&taxID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Failed to find contractor by name", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("failed to find contractor by name: %w", err)
	}
	return taxID, nil
}
