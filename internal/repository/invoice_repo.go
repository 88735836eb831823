package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"go.uber.org/zap"
)

// InvoiceFilter narrows listing queries.
type InvoiceFilter struct {
	Status entity.Status
	Source entity.Source
	Since  *time.Time
}

// InvoiceRepository persists invoices in the ledger table.
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `
	id, source, source_key, file_media_type, file_size, file_name, status,
	extracted_json, suggestion_json, description_json, project, expense_type,
	created_at, updated_at
`

// CreateIfAbsent inserts the invoice unless a record with the same
// (source, source_key) already exists. The uniqueness constraint makes the
// check-and-create atomic; racing adapters never produce a duplicate row.
// Returns the stored invoice and whether this call created it.
func (r *InvoiceRepository) CreateIfAbsent(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, bool, error) {
	query := `
		INSERT INTO invoices (
			id, source, source_key, file_data, file_media_type, file_size,
			file_name, status, project, expense_type, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		inv.ID,
		inv.Source,
		inv.SourceKey,
		inv.OriginalFile.Data,
		inv.OriginalFile.MediaType,
		inv.OriginalFile.Size,
		inv.OriginalFile.Filename,
		inv.Status,
		inv.Project,
		inv.ExpenseType,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert invoice",
			zap.String("source", inv.Source.String()),
			zap.String("source_key", inv.SourceKey),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to insert invoice: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	stored, err := r.GetBySourceKey(ctx, inv.Source, inv.SourceKey)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("invoice vanished after upsert: %s/%s", inv.Source, inv.SourceKey)
	}

	return stored, affected == 1, nil
}

// GetByID retrieves an invoice by id, without the original file bytes.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySourceKey retrieves an invoice by its dedup fingerprint.
func (r *InvoiceRepository) GetBySourceKey(ctx context.Context, source entity.Source, key string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE source = ? AND source_key = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, source, key))
}

// GetOriginalFile loads the raw document bytes for one invoice.
func (r *InvoiceRepository) GetOriginalFile(ctx context.Context, id string) (*entity.OriginalFile, error) {
	query := `SELECT file_data, file_media_type, file_size, file_name FROM invoices WHERE id = ?`

	var file entity.OriginalFile
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.Data, &file.MediaType, &file.Size, &file.Filename,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load original file", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load original file: %w", err)
	}
	return &file, nil
}

// List returns invoices matching the filter, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.Since)
	}
	query += " ORDER BY created_at DESC"

	return r.queryMany(ctx, query, args...)
}

// ListForExport returns approved invoices ordered by id so batch exports
// are reproducible. The single query reads one consistent snapshot.
func (r *InvoiceRepository) ListForExport(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	if len(ids) == 0 {
		query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE status = ? ORDER BY id`
		return r.queryMany(ctx, query, entity.StatusApproved)
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `) ORDER BY id`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryMany(ctx, query, args...)
}

// MarkProcessed advances new -> processed and stores extraction output.
// Returns false when the row was not in the expected state; the WHERE
// clause keeps transitions single-writer per row.
func (r *InvoiceRepository) MarkProcessed(ctx context.Context, id string, extracted *entity.ExtractedFields, suggestion *entity.Suggestion) (bool, error) {
	extractedJSON, err := marshalNullable(extracted)
	if err != nil {
		return false, err
	}
	suggestionJSON, err := marshalNullable(suggestion)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE invoices
		SET status = ?, extracted_json = ?, suggestion_json = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	return r.exec(ctx, query,
		entity.StatusProcessed, extractedJSON, suggestionJSON, time.Now().UTC(),
		id, entity.StatusNew)
}

// MarkApproved advances processed -> approved and stores the operator
// description.
func (r *InvoiceRepository) MarkApproved(ctx context.Context, id string, desc *entity.Description) (bool, error) {
	descJSON, err := marshalNullable(desc)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE invoices
		SET status = ?, description_json = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	return r.exec(ctx, query,
		entity.StatusApproved, descJSON, time.Now().UTC(),
		id, entity.StatusProcessed)
}

// MarkRejected advances processed -> rejected.
func (r *InvoiceRepository) MarkRejected(ctx context.Context, id string) (bool, error) {
	query := `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	return r.exec(ctx, query,
		entity.StatusRejected, time.Now().UTC(), id, entity.StatusProcessed)
}

// MarkExported advances approved -> exported.
func (r *InvoiceRepository) MarkExported(ctx context.Context, id string) (bool, error) {
	query := `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	return r.exec(ctx, query,
		entity.StatusExported, time.Now().UTC(), id, entity.StatusApproved)
}

// Assign sets project and expense type on any non-terminal, non-exported
// invoice. It never changes status.
func (r *InvoiceRepository) Assign(ctx context.Context, id, project, expenseType string) (bool, error) {
	query := `
		UPDATE invoices
		SET project = ?, expense_type = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`
	return r.exec(ctx, query,
		project, expenseType, time.Now().UTC(),
		id, entity.StatusRejected, entity.StatusExported)
}

func (r *InvoiceRepository) exec(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.Error(err))
		return false, fmt.Errorf("failed to update invoice: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *InvoiceRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) scanOne(row *sql.Row) (*entity.Invoice, error) {
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan invoice", zap.Error(err))
		return nil, err
	}
	return inv, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var extractedJSON, suggestionJSON, descriptionJSON sql.NullString

	err := row.Scan(
		&inv.ID,
		&inv.Source,
		&inv.SourceKey,
		&inv.OriginalFile.MediaType,
		&inv.OriginalFile.Size,
		&inv.OriginalFile.Filename,
		&inv.Status,
		&extractedJSON,
		&suggestionJSON,
		&descriptionJSON,
		&inv.Project,
		&inv.ExpenseType,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalNullable(extractedJSON, &inv.Extracted); err != nil {
		return nil, fmt.Errorf("failed to decode extracted fields: %w", err)
	}
	if err := unmarshalNullable(suggestionJSON, &inv.Suggestion); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion: %w", err)
	}
	if err := unmarshalNullable(descriptionJSON, &inv.Description); err != nil {
		return nil, fmt.Errorf("failed to decode description: %w", err)
	}

	return &inv, nil
}

func marshalNullable[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode json column: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalNullable[T any](col sql.NullString, dst **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
