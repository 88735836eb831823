package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/config"
	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/export"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"github.com/pwalczyk/invoiceflow/internal/repository"
	"github.com/pwalczyk/invoiceflow/migrations"
	"github.com/pwalczyk/invoiceflow/pkg/database"
)

type testAPI struct {
	router *gin.Engine
	ledger *ledger.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))

	invoices := repository.NewInvoiceRepository(db.DB, logger)
	contractors := repository.NewContractorRepository(db.DB, logger)
	ledgerSvc := ledger.NewService(invoices, contractors, nil, logger)
	exportSvc := export.NewService(export.NewRegistry())

	srv := NewServer(config.ServerConfig{}, ledgerSvc, exportSvc, logger)
	return &testAPI{router: srv.Router(), ledger: ledgerSvc}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) upload(t *testing.T, fields map[string]string, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestIngestEndpoint(t *testing.T) {
	api := newTestAPI(t)
	fields := map[string]string{
		"source":          "email",
		"media_type":      entity.MediaTypePDF,
		"message_id":      "msg-1",
		"attachment_name": "fv.pdf",
	}

	w := api.upload(t, fields, "fv.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusCreated, w.Code)

	// Redelivery of the same attachment is a 200, not a conflict.
	w = api.upload(t, fields, "fv.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.upload(t, map[string]string{"source": "email", "message_id": "msg-2", "attachment_name": "x.pdf"}, "x.pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty upload rejected")
}

func ingestOne(t *testing.T, api *testAPI, messageID string) string {
	t.Helper()

	w := api.upload(t, map[string]string{
		"source":          "email",
		"media_type":      entity.MediaTypePDF,
		"message_id":      messageID,
		"attachment_name": "fv.pdf",
	}, "fv.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, w.Code)

	data, err := json.Marshal(decodeResponse(t, w).Data)
	require.NoError(t, err)
	var inv entity.Invoice
	require.NoError(t, json.Unmarshal(data, &inv))
	require.NotEmpty(t, inv.ID)
	return inv.ID
}

func TestApprovalFlow(t *testing.T) {
	api := newTestAPI(t)
	id := ingestOne(t, api, "msg-1")

	body := ApproveRequest{Category: string(entity.CategoryFuel), Notes: "paliwo"}

	w := api.do(t, http.MethodPost, "/api/invoices/"+id+"/approve", body)
	assert.Equal(t, http.StatusConflict, w.Code, "approval requires a processed invoice")

	_, err := api.ledger.Process(context.Background(), id, &entity.ExtractedFields{
		SellerName: "Orlen", GrossCents: 24600, Confidence: 90,
	}, nil)
	require.NoError(t, err)

	w = api.do(t, http.MethodPost, "/api/invoices/"+id+"/approve", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/invoices/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"approved"`)

	w = api.do(t, http.MethodPost, "/api/invoices/"+id+"/approve", ApproveRequest{Category: "snacks"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "unknown category")

	w = api.do(t, http.MethodPost, "/api/invoices/missing/approve", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	api := newTestAPI(t)
	id := ingestOne(t, api, "msg-1")
	ctx := context.Background()

	_, err := api.ledger.Process(ctx, id, &entity.ExtractedFields{
		SellerName: "Orlen", GrossCents: 24600, NetCents: 20000, VATCents: 4600, Confidence: 90,
	}, nil)
	require.NoError(t, err)
	_, err = api.ledger.Approve(ctx, id, &entity.Description{Category: entity.CategoryFuel})
	require.NoError(t, err)

	w := api.do(t, http.MethodPost, "/api/export", ExportRequest{Format: "dbase3", IDs: []string{id}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown format rejected up front")

	w = api.do(t, http.MethodPost, "/api/export", ExportRequest{Format: export.FormatKPiR, IDs: []string{id}, Label: "2026-03"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "kpir_2026-03.csv")
	assert.Contains(t, w.Body.String(), "200,00")

	// Preview export leaves the batch approved.
	inv, err := api.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, inv.Status)

	w = api.do(t, http.MethodPost, "/api/export", ExportRequest{Format: export.FormatKPiR, IDs: []string{id}, MarkExported: true})
	require.Equal(t, http.StatusOK, w.Code)
	inv, err = api.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusExported, inv.Status)
}

func TestListInvoicesSinceFilter(t *testing.T) {
	api := newTestAPI(t)
	ingestOne(t, api, "msg-1")

	w := api.do(t, http.MethodGet, "/api/invoices?since=2000-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id"`)

	w = api.do(t, http.MethodGet, "/api/invoices?since=2100-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"id"`)

	w = api.do(t, http.MethodGet, "/api/invoices?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFormatsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/export/formats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), export.FormatJPK)
}
