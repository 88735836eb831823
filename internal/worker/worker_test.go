package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/config"
	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"github.com/pwalczyk/invoiceflow/internal/repository"
	"github.com/pwalczyk/invoiceflow/migrations"
	"github.com/pwalczyk/invoiceflow/pkg/database"
)

func newTestLedger(t *testing.T) *ledger.Service {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "worker.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))

	invoices := repository.NewInvoiceRepository(db.DB, logger)
	contractors := repository.NewContractorRepository(db.DB, logger)
	return ledger.NewService(invoices, contractors, nil, logger)
}

type fakeMailClient struct {
	messages []MailMessage
	fetches  int
}

func (f *fakeMailClient) Fetch(_ context.Context, _ string) ([]MailMessage, error) {
	f.fetches++
	return f.messages, nil
}

func TestMailboxPollerIngestsAttachments(t *testing.T) {
	svc := newTestLedger(t)
	client := &fakeMailClient{messages: []MailMessage{
		{
			MessageID: "msg-1",
			Attachments: []MailAttachment{
				{Name: "fv-1.pdf", MediaType: entity.MediaTypePDF, Data: []byte("%PDF-1.4")},
				{Name: "logo.png", MediaType: entity.MediaTypePNG, Data: []byte{0x89, 0x50}},
				{Name: "empty.pdf", MediaType: entity.MediaTypePDF},
			},
		},
	}}

	poller := NewMailboxPoller(config.MailboxSourceConfig{Folder: "INBOX"}, client, svc, zap.NewNop())
	poller.ctx = context.Background()

	poller.poll()
	poller.poll()

	assert.Equal(t, 2, client.fetches)

	invoices, err := svc.List(context.Background(), repository.InvoiceFilter{Source: entity.SourceEmail})
	require.NoError(t, err)
	assert.Len(t, invoices, 2, "empty attachment skipped, repeat fetch deduped")
}

type fakeExchangeClient struct {
	docs      []ExchangeDocument
	lastSince time.Time
}

func (f *fakeExchangeClient) ListDocuments(_ context.Context, _ string, since time.Time) ([]ExchangeDocument, error) {
	f.lastSince = since
	return f.docs, nil
}

func TestExchangePollerAdvancesWatermark(t *testing.T) {
	svc := newTestLedger(t)
	received := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	client := &fakeExchangeClient{docs: []ExchangeDocument{
		{Ref: "KSEF-2026-0001", Data: []byte("<Faktura/>"), ReceivedAt: received},
		{Ref: "KSEF-2026-0002", Data: []byte("<Faktura/>"), ReceivedAt: received.Add(time.Hour)},
	}}

	poller := NewExchangePoller(config.ExchangeSourceConfig{TaxID: "5260305006"}, client, svc, zap.NewNop())
	poller.ctx = context.Background()

	poller.poll()
	assert.True(t, client.lastSince.IsZero(), "first poll starts from the zero watermark")

	poller.poll()
	assert.Equal(t, received.Add(time.Hour), client.lastSince, "second poll resumes from the newest document")

	invoices, err := svc.List(context.Background(), repository.InvoiceFilter{Source: entity.SourceExchange})
	require.NoError(t, err)
	assert.Len(t, invoices, 2, "overlapping fetch windows dedup in the ledger")
}

func TestFolderWatcherScansDirectory(t *testing.T) {
	svc := newTestLedger(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fv-1.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	watcher := NewFolderWatcher(config.FolderSourceConfig{Path: dir}, svc, zap.NewNop())
	watcher.ctx = context.Background()

	watcher.scan()
	watcher.scan()

	invoices, err := svc.List(context.Background(), repository.InvoiceFilter{Source: entity.SourceStorage})
	require.NoError(t, err)
	require.Len(t, invoices, 1, "unsupported extensions and directories skipped, rescan deduped")
	assert.Equal(t, entity.MediaTypePDF, invoices[0].OriginalFile.MediaType)
}

func TestMediaTypeForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"faktura.pdf", entity.MediaTypePDF, true},
		{"SCAN.JPG", entity.MediaTypeJPEG, true},
		{"photo.jpeg", entity.MediaTypeJPEG, true},
		{"scan.png", entity.MediaTypePNG, true},
		{"faktura.xml", entity.MediaTypeExchangeXML, true},
		{"notes.txt", "", false},
		{"no-extension", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mediaTypeForFile(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManagerStartAndStop(t *testing.T) {
	manager := NewManager(zap.NewNop())
	svc := newTestLedger(t)

	watcher := NewFolderWatcher(config.FolderSourceConfig{
		Path:         t.TempDir(),
		PollInterval: time.Hour,
	}, svc, zap.NewNop())
	manager.Register(watcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, manager.StartAll(ctx))
	assert.True(t, manager.IsRunning())

	require.NoError(t, manager.StopAll())
	assert.False(t, manager.IsRunning())
}
