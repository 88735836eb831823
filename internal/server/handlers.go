package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/domain/workflow"
	"github.com/pwalczyk/invoiceflow/internal/export"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"github.com/pwalczyk/invoiceflow/internal/repository"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	ledger *ledger.Service
	export *export.Service
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(ledgerSvc *ledger.Service, exportSvc *export.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		ledger: ledgerSvc,
		export: exportSvc,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// IngestInvoice handles POST /api/invoices. The document arrives as a
// multipart upload with its source and provenance fields; duplicate
// delivery returns the existing invoice with 200 instead of 201.
func (h *Handlers) IngestInvoice(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "failed to open upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "failed to read upload")
		return
	}

	source := entity.Source(c.PostForm("source"))
	mediaType := c.PostForm("media_type")
	if mediaType == "" {
		mediaType = fileHeader.Header.Get("Content-Type")
	}

	prov := ledger.Provenance{
		MessageID:      c.PostForm("message_id"),
		AttachmentName: c.PostForm("attachment_name"),
		Path:           c.PostForm("path"),
		Filename:       c.PostForm("filename"),
		DocumentRef:    c.PostForm("document_ref"),
		JobID:          c.PostForm("job_id"),
	}

	inv, created, _, err := h.ledger.Ingest(c.Request.Context(), source, data, mediaType, prov)
	if err != nil {
		h.serviceError(c, err, "ingestion failed")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, Response{Success: true, Data: inv})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	filter := repository.InvoiceFilter{
		Status: entity.Status(c.Query("status")),
		Source: entity.Source(c.Query("source")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.fail(c, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &t
	}

	invoices, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		h.serviceError(c, err, "failed to list invoices")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	inv, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "failed to get invoice")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// GetOriginalFile handles GET /api/invoices/:id/file
func (h *Handlers) GetOriginalFile(c *gin.Context) {
	file, err := h.ledger.GetOriginalFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "failed to get original file")
		return
	}

	if file.Filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	}
	c.Data(http.StatusOK, file.MediaType, file.Data)
}

// ApproveRequest is the body of POST /api/invoices/:id/approve
type ApproveRequest struct {
	Category   string   `json:"category" binding:"required"`
	CostCenter string   `json:"cost_center"`
	Project    string   `json:"project"`
	Notes      string   `json:"notes"`
	Tags       []string `json:"tags"`
}

// ApproveInvoice handles POST /api/invoices/:id/approve
func (h *Handlers) ApproveInvoice(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	desc := &entity.Description{
		Category:   entity.Category(req.Category),
		CostCenter: req.CostCenter,
		Project:    req.Project,
		Notes:      req.Notes,
		Tags:       req.Tags,
	}

	events, err := h.ledger.Approve(c.Request.Context(), c.Param("id"), desc)
	if err != nil {
		h.serviceError(c, err, "approval failed")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// RejectRequest is the body of POST /api/invoices/:id/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RejectInvoice handles POST /api/invoices/:id/reject
func (h *Handlers) RejectInvoice(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := h.ledger.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.serviceError(c, err, "rejection failed")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// AssignRequest is the body of POST /api/invoices/:id/assign
type AssignRequest struct {
	Project     string `json:"project"`
	ExpenseType string `json:"expense_type"`
}

// AssignInvoice handles POST /api/invoices/:id/assign
func (h *Handlers) AssignInvoice(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ledger.Assign(c.Request.Context(), c.Param("id"), req.Project, req.ExpenseType); err != nil {
		h.serviceError(c, err, "assignment failed")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ListFormats handles GET /api/export/formats
func (h *Handlers) ListFormats(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.export.Formats()})
}

// ExportRequest is the body of POST /api/export
type ExportRequest struct {
	Format string   `json:"format" binding:"required"`
	IDs    []string `json:"ids"`
	Label  string   `json:"label"`

	// MarkExported advances the batch to exported after rendering. Leave
	// false to preview without consuming the batch.
	MarkExported bool `json:"mark_exported"`
}

// ExportBatch handles POST /api/export. The artifact is returned as a file
// download; invoices are marked exported only when requested and only
// after rendering succeeded.
func (h *Handlers) ExportBatch(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.export.ValidateFormat(req.Format); err != nil {
		h.serviceError(c, err, "export failed")
		return
	}

	invoices, err := h.ledger.ListForExport(c.Request.Context(), req.IDs)
	if err != nil {
		h.serviceError(c, err, "failed to load batch")
		return
	}

	artifact, err := h.export.Export(invoices, req.Format, export.Options{Label: req.Label})
	if err != nil {
		h.serviceError(c, err, "export failed")
		return
	}

	if req.MarkExported {
		ids := make([]string, len(invoices))
		for i, inv := range invoices {
			ids[i] = inv.ID
		}
		if _, err := h.ledger.MarkExported(c.Request.Context(), ids); err != nil {
			h.serviceError(c, err, "failed to mark batch exported")
			return
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.MediaType, artifact.Data)
}

// ArchiveRequest is the body of POST /api/export/archive
type ArchiveRequest struct {
	IDs   []string `json:"ids"`
	Label string   `json:"label"`
}

// ExportArchive handles POST /api/export/archive, returning the original
// documents of a batch as a zip grouped by expense type and project.
func (h *Handlers) ExportArchive(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	invoices, err := h.ledger.ListForExport(c.Request.Context(), req.IDs)
	if err != nil {
		h.serviceError(c, err, "failed to load batch")
		return
	}

	// The listing omits blobs; load each original before packing.
	for _, inv := range invoices {
		file, err := h.ledger.GetOriginalFile(c.Request.Context(), inv.ID)
		if err != nil {
			h.serviceError(c, err, "failed to load original file")
			return
		}
		inv.OriginalFile = *file
	}

	label := req.Label
	if label == "" {
		label = time.Now().Format("20060102")
	}

	artifact, err := export.BuildArchive(invoices, label)
	if err != nil {
		h.serviceError(c, err, "archive failed")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.MediaType, artifact.Data)
}

func (h *Handlers) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

// serviceError maps service errors onto HTTP statuses.
func (h *Handlers) serviceError(c *gin.Context, err error, msg string) {
	h.logger.Error(msg, zap.Error(err))

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		h.fail(c, http.StatusNotFound, "invoice not found")
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrInvalidState):
		h.fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrMissingDescription):
		h.fail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, export.ErrUnknownFormat):
		h.fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrEmptyDocument):
		h.fail(c, http.StatusBadRequest, err.Error())
	default:
		h.fail(c, http.StatusInternalServerError, msg)
	}
}
