package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/domain/event"
	"github.com/pwalczyk/invoiceflow/internal/domain/workflow"
	"github.com/pwalczyk/invoiceflow/internal/repository"
	"github.com/pwalczyk/invoiceflow/migrations"
	"github.com/pwalczyk/invoiceflow/pkg/database"
)

type recordingLearner struct {
	learned []string
}

func (l *recordingLearner) LearnFromApproval(_ context.Context, inv *entity.Invoice) error {
	l.learned = append(l.learned, inv.ID)
	return nil
}

func newTestService(t *testing.T) (*Service, *recordingLearner) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))

	learner := &recordingLearner{}
	svc := NewService(
		repository.NewInvoiceRepository(db.DB, logger),
		repository.NewContractorRepository(db.DB, logger),
		learner,
		logger,
	)
	return svc, learner
}

func emailProv(msgID, attachment string) Provenance {
	return Provenance{MessageID: msgID, AttachmentName: attachment}
}

func ingest(t *testing.T, svc *Service) *entity.Invoice {
	t.Helper()
	inv, created, _, err := svc.Ingest(context.Background(),
		entity.SourceEmail, []byte("%PDF-1.4 fake"), entity.MediaTypePDF,
		emailProv("msg-1", "faktura.pdf"))
	require.NoError(t, err)
	require.True(t, created)
	return inv
}

func TestIngestIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, created, events, err := svc.Ingest(ctx,
		entity.SourceEmail, []byte("%PDF-1.4 fake"), entity.MediaTypePDF,
		emailProv("msg-1", "faktura.pdf"))
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeIngested, events[0].Type)
	assert.Equal(t, entity.StatusNew, first.Status)
	assert.Equal(t, "msg-1/faktura.pdf", first.SourceKey)
	assert.Equal(t, "faktura.pdf", first.OriginalFile.Filename)

	second, created, events, err := svc.Ingest(ctx,
		entity.SourceEmail, []byte("%PDF-1.4 fake"), entity.MediaTypePDF,
		emailProv("msg-1", "faktura.pdf"))
	require.NoError(t, err)
	assert.False(t, created, "duplicate delivery is not an error")
	assert.Empty(t, events, "duplicate delivery emits no event")
	assert.Equal(t, first.ID, second.ID)
}

func TestIngestDistinguishesAttachments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, created, _, err := svc.Ingest(ctx, entity.SourceEmail, []byte("a"), entity.MediaTypePDF,
		emailProv("msg-1", "a.pdf"))
	require.NoError(t, err)
	require.True(t, created)

	b, created, _, err := svc.Ingest(ctx, entity.SourceEmail, []byte("b"), entity.MediaTypePDF,
		emailProv("msg-1", "b.pdf"))
	require.NoError(t, err)
	require.True(t, created, "same message, different attachment is a new document")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestIngestValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, _, err := svc.Ingest(ctx, entity.SourceEmail, nil, entity.MediaTypePDF,
		emailProv("msg-1", "a.pdf"))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, _, _, err = svc.Ingest(ctx, entity.Source("fax"), []byte("x"), entity.MediaTypePDF, Provenance{})
	assert.Error(t, err)

	_, _, _, err = svc.Ingest(ctx, entity.SourceEmail, []byte("x"), entity.MediaTypePDF,
		Provenance{MessageID: "msg-1"})
	assert.Error(t, err, "email provenance requires the attachment name")
}

func TestSourceKeyDerivation(t *testing.T) {
	tests := []struct {
		name    string
		source  entity.Source
		prov    Provenance
		want    string
		wantErr bool
	}{
		{name: "email", source: entity.SourceEmail,
			prov: Provenance{MessageID: "m1", AttachmentName: "f.pdf"}, want: "m1/f.pdf"},
		{name: "storage", source: entity.SourceStorage,
			prov: Provenance{Path: "/inbox", Filename: "f.pdf"}, want: "/inbox/f.pdf"},
		{name: "exchange", source: entity.SourceExchange,
			prov: Provenance{DocumentRef: "KSEF-1"}, want: "KSEF-1"},
		{name: "scanner", source: entity.SourceScanner,
			prov: Provenance{JobID: "job-7"}, want: "job-7"},
		{name: "storage without filename", source: entity.SourceStorage,
			prov: Provenance{Path: "/inbox"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SourceKey(tt.source, tt.prov)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, learner := newTestService(t)
	ctx := context.Background()
	inv := ingest(t, svc)

	fields := &entity.ExtractedFields{
		SellerTaxID: "7770000037",
		SellerName:  "Stacja Paliw Orlen",
		GrossCents:  24600,
		NetCents:    20000,
		VATCents:    4600,
		Confidence:  90,
	}
	suggestion := &entity.Suggestion{Category: entity.CategoryFuel, Confidence: 75, Strategy: "history"}

	events, err := svc.Process(ctx, inv.ID, fields, suggestion)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeProcessed, events[0].Type)
	assert.Equal(t, event.TypeSuggested, events[1].Type)
	assert.Equal(t, "fuel", events[1].Field("category"))

	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusProcessed, stored.Status)
	require.NotNil(t, stored.Extracted)
	assert.Equal(t, int64(24600), stored.Extracted.GrossCents)
	require.NotNil(t, stored.Suggestion)
	assert.Equal(t, entity.CategoryFuel, stored.Suggestion.Category)

	desc := &entity.Description{Category: entity.CategoryFuel, CostCenter: "fleet"}
	events, err = svc.Approve(ctx, inv.ID, desc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeApproved, events[0].Type)
	assert.Equal(t, []string{inv.ID}, learner.learned, "learning happens exactly once at approval")

	events, err = svc.MarkExported(ctx, []string{inv.ID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeExported, events[0].Type)

	stored, err = svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusExported, stored.Status)
}

func TestTransitionsAreMonotonic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inv := ingest(t, svc)

	desc := &entity.Description{Category: entity.CategoryFuel}

	// Approval before processing is not permitted.
	_, err := svc.Approve(ctx, inv.ID, desc)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = svc.Process(ctx, inv.ID, &entity.ExtractedFields{Confidence: 50}, nil)
	require.NoError(t, err)

	// Re-processing a processed invoice is not permitted.
	_, err = svc.Process(ctx, inv.ID, &entity.ExtractedFields{Confidence: 50}, nil)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = svc.Approve(ctx, inv.ID, desc)
	require.NoError(t, err)

	// Rejection after approval is not permitted.
	_, err = svc.Reject(ctx, inv.ID, "changed my mind")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestRejectIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inv := ingest(t, svc)

	_, err := svc.Process(ctx, inv.ID, &entity.ExtractedFields{Confidence: 10}, nil)
	require.NoError(t, err)

	events, err := svc.Reject(ctx, inv.ID, "unreadable")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "unreadable", events[0].Field("reason"))

	_, err = svc.Approve(ctx, inv.ID, &entity.Description{Category: entity.CategoryFuel})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = svc.MarkExported(ctx, []string{inv.ID})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestApproveRequiresCompleteDescription(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inv := ingest(t, svc)

	_, err := svc.Process(ctx, inv.ID, &entity.ExtractedFields{Confidence: 50}, nil)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, inv.ID, nil)
	assert.ErrorIs(t, err, ErrMissingDescription)

	_, err = svc.Approve(ctx, inv.ID, &entity.Description{Category: entity.Category("snacks")})
	assert.ErrorIs(t, err, ErrMissingDescription, "unknown categories do not complete a description")
}

func TestAssign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inv := ingest(t, svc)

	require.NoError(t, svc.Assign(ctx, inv.ID, "Q1", "fleet"))

	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q1", stored.Project)
	assert.Equal(t, "fleet", stored.ExpenseType)
	assert.Equal(t, entity.StatusNew, stored.Status, "assignment never changes status")

	_, err = svc.Process(ctx, inv.ID, &entity.ExtractedFields{Confidence: 50}, nil)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, inv.ID, "duplicate paper copy")
	require.NoError(t, err)

	err = svc.Assign(ctx, inv.ID, "Q2", "fleet")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition, "terminal invoices cannot be reassigned")
}

func TestAssignMissingInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Assign(context.Background(), "no-such-id", "Q1", "fleet")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOriginalFile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inv := ingest(t, svc)

	file, err := svc.GetOriginalFile(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake"), file.Data)
	assert.Equal(t, entity.MediaTypePDF, file.MediaType)

	_, err = svc.GetOriginalFile(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForExportIsStableById(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		inv, _, _, err := svc.Ingest(ctx, entity.SourceScanner, []byte("scan"), entity.MediaTypePDF,
			Provenance{JobID: string(rune('a' + i))})
		require.NoError(t, err)
		_, err = svc.Process(ctx, inv.ID, &entity.ExtractedFields{Confidence: 50}, nil)
		require.NoError(t, err)
		_, err = svc.Approve(ctx, inv.ID, &entity.Description{Category: entity.CategoryServices})
		require.NoError(t, err)
	}

	batch, err := svc.ListForExport(ctx, nil)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i := 1; i < len(batch); i++ {
		assert.Less(t, batch[i-1].ID, batch[i].ID, "export order is stable by id")
	}
}
