package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/categorize"
	"github.com/pwalczyk/invoiceflow/internal/config"
	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/extract"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"github.com/pwalczyk/invoiceflow/internal/repository"
	"go.uber.org/zap"
)

// ExtractionWorker drains newly ingested invoices through extraction and
// categorization, advancing each to processed. With auto-approve enabled it
// additionally approves suggestions at or above the configured confidence;
// the default leaves every approval to an operator.
type ExtractionWorker struct {
	cfg       config.PipelineConfig
	ledger    *ledger.Service
	extractor *extract.Extractor
	engine    *categorize.Engine
	logger    *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc

	processedCount int
	failedCount    int
}

// NewExtractionWorker creates a new extraction worker
func NewExtractionWorker(
	cfg config.PipelineConfig,
	ledgerSvc *ledger.Service,
	extractor *extract.Extractor,
	engine *categorize.Engine,
	logger *zap.Logger,
) *ExtractionWorker {
	return &ExtractionWorker{
		cfg:       cfg,
		ledger:    ledgerSvc,
		extractor: extractor,
		engine:    engine,
		logger:    logger,
	}
}

// Start begins the worker polling loop
func (w *ExtractionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("extraction worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ExtractionWorker started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Bool("auto_approve", w.cfg.AutoApprove))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *ExtractionWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("ExtractionWorker stopped",
		zap.Int("processed_count", w.processedCount),
		zap.Int("failed_count", w.failedCount))

	return nil
}

// Name returns the worker name for identification
func (w *ExtractionWorker) Name() string {
	return "ExtractionWorker"
}

func (w *ExtractionWorker) pollLoop() {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	// Drain immediately on start
	w.drainPending()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			w.drainPending()
		}
	}
}

// drainPending processes one batch of invoices still in the new state.
func (w *ExtractionWorker) drainPending() {
	ctx, cancel := context.WithTimeout(w.ctx, 2*time.Minute)
	defer cancel()

	pending, err := w.ledger.List(ctx, repository.InvoiceFilter{Status: entity.StatusNew})
	if err != nil {
		w.logger.Error("Failed to list pending invoices", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}
	if len(pending) > w.cfg.BatchSize {
		pending = pending[:w.cfg.BatchSize]
	}

	for _, inv := range pending {
		if err := w.processOne(ctx, inv); err != nil {
			w.mu.Lock()
			w.failedCount++
			w.mu.Unlock()
			w.logger.Error("Failed to process invoice",
				zap.String("id", inv.ID),
				zap.Error(err))
			continue
		}
		w.mu.Lock()
		w.processedCount++
		w.mu.Unlock()
	}
}

func (w *ExtractionWorker) processOne(ctx context.Context, inv *entity.Invoice) error {
	// Listing omits the blob; load it before extraction.
	file, err := w.ledger.GetOriginalFile(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to load original file: %w", err)
	}
	inv.OriginalFile = *file

	fields, err := w.extractor.Extract(ctx, inv)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	suggestion, err := w.engine.Suggest(ctx, fields)
	if err != nil {
		return fmt.Errorf("categorization failed: %w", err)
	}

	if _, err := w.ledger.Process(ctx, inv.ID, fields, suggestion); err != nil {
		return err
	}

	if w.autoApprovable(fields, suggestion) {
		desc := &entity.Description{
			Category:   suggestion.Category,
			CostCenter: suggestion.CostCenter,
		}
		if _, err := w.ledger.Approve(ctx, inv.ID, desc); err != nil {
			w.logger.Warn("Auto-approval failed, leaving invoice for operator",
				zap.String("id", inv.ID),
				zap.Error(err))
			return nil
		}
		w.logger.Info("Invoice auto-approved",
			zap.String("id", inv.ID),
			zap.String("category", suggestion.Category.String()),
			zap.Int("confidence", suggestion.Confidence))
	}

	return nil
}

// autoApprovable requires both the extraction and the suggestion to clear
// the configured threshold.
func (w *ExtractionWorker) autoApprovable(fields *entity.ExtractedFields, suggestion *entity.Suggestion) bool {
	if !w.cfg.AutoApprove || suggestion == nil || fields == nil {
		return false
	}
	return suggestion.Confidence >= w.cfg.AutoApproveThreshold &&
		fields.Confidence >= w.cfg.AutoApproveThreshold
}
