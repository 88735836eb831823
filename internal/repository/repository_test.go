package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/migrations"
	"github.com/pwalczyk/invoiceflow/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))
	return db
}

func testInvoice(id, sourceKey string) *entity.Invoice {
	now := time.Now().UTC().Truncate(time.Second)
	return &entity.Invoice{
		ID:        id,
		Source:    entity.SourceEmail,
		SourceKey: sourceKey,
		OriginalFile: entity.OriginalFile{
			Data:      []byte("%PDF-1.4"),
			MediaType: entity.MediaTypePDF,
			Size:      8,
			Filename:  "faktura.pdf",
		},
		Status:    entity.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	stored, created, err := repo.CreateIfAbsent(ctx, testInvoice("inv-1", "msg-1/a.pdf"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "inv-1", stored.ID)

	// Second insert with the same fingerprint keeps the first record.
	dup, created, err := repo.CreateIfAbsent(ctx, testInvoice("inv-2", "msg-1/a.pdf"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "inv-1", dup.ID)

	// The listing projection omits the blob.
	assert.Nil(t, dup.OriginalFile.Data)
	assert.Equal(t, int64(8), dup.OriginalFile.Size)

	file, err := repo.GetOriginalFile(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), file.Data)
}

func TestStatusTransitionsAreGuarded(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	_, _, err := repo.CreateIfAbsent(ctx, testInvoice("inv-1", "k1"))
	require.NoError(t, err)

	ok, err := repo.MarkApproved(ctx, "inv-1", &entity.Description{Category: entity.CategoryFuel})
	require.NoError(t, err)
	assert.False(t, ok, "approval requires the processed state")

	ok, err = repo.MarkProcessed(ctx, "inv-1", &entity.ExtractedFields{Confidence: 90}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkProcessed(ctx, "inv-1", &entity.ExtractedFields{Confidence: 90}, nil)
	require.NoError(t, err)
	assert.False(t, ok, "second transition loses the guarded update")

	ok, err = repo.MarkApproved(ctx, "inv-1", &entity.Description{Category: entity.CategoryFuel})
	require.NoError(t, err)
	assert.True(t, ok)

	inv, err := repo.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, inv.Status)
	require.NotNil(t, inv.Description)
	assert.Equal(t, entity.CategoryFuel, inv.Description.Category)
}

func TestListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	a := testInvoice("inv-a", "k-a")
	b := testInvoice("inv-b", "k-b")
	b.Source = entity.SourceScanner
	for _, inv := range []*entity.Invoice{a, b} {
		_, _, err := repo.CreateIfAbsent(ctx, inv)
		require.NoError(t, err)
	}
	_, err := repo.MarkProcessed(ctx, "inv-a", nil, nil)
	require.NoError(t, err)

	byStatus, err := repo.List(ctx, InvoiceFilter{Status: entity.StatusNew})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "inv-b", byStatus[0].ID)

	bySource, err := repo.List(ctx, InvoiceFilter{Source: entity.SourceScanner})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "inv-b", bySource[0].ID)
}

func TestContractorRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewContractorRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "7770000037", "Stacja Paliw Orlen"))
	require.NoError(t, repo.Upsert(ctx, "7770000037", "ORLEN S.A."))

	c, err := repo.Get(ctx, "7770000037")
	require.NoError(t, err)
	assert.Equal(t, "ORLEN S.A.", c.Name, "upsert keeps the latest name")

	taxID, err := repo.FindTaxIDByName(ctx, "orlen s.a.")
	require.NoError(t, err)
	assert.Equal(t, "7770000037", taxID)

	taxID, err = repo.FindTaxIDByName(ctx, "nieznana firma")
	require.NoError(t, err)
	assert.Empty(t, taxID)
}

func TestHistoryRepositoryAppendsInOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewHistoryRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	for _, category := range []entity.Category{entity.CategoryFuel, entity.CategoryFuel, entity.CategoryServices} {
		require.NoError(t, repo.Append(ctx, &entity.CategoryEntry{
			TaxID:      "7770000037",
			Category:   category,
			ApprovedAt: time.Now().UTC(),
		}))
	}

	entries, err := repo.ListByTaxID(ctx, "7770000037")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, entity.CategoryFuel, entries[0].Category)
	assert.Equal(t, entity.CategoryServices, entries[2].Category)
	assert.Less(t, entries[0].ID, entries[2].ID)
}

func TestRuleRepositoryOrdersByPriority(t *testing.T) {
	db := newTestDB(t)
	repo := NewRuleRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	low := &entity.Rule{Name: "catch-all", Enabled: true, Priority: 10, Category: entity.CategoryServices}
	high := &entity.Rule{Name: "fuel stations", Enabled: true, Priority: 100, NameContains: "orlen", Category: entity.CategoryFuel}
	off := &entity.Rule{Name: "disabled", Enabled: false, Priority: 500, Category: entity.CategoryWages}

	for _, rule := range []*entity.Rule{low, high, off} {
		require.NoError(t, repo.Create(ctx, rule))
		assert.NotZero(t, rule.ID)
	}

	rules, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "fuel stations", rules[0].Name, "highest priority first")
	assert.Equal(t, "catch-all", rules[1].Name)
}
