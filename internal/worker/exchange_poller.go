package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/config"
	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"go.uber.org/zap"
)

// ExchangeDocument is one structured invoice fetched from the national
// invoice exchange.
type ExchangeDocument struct {
	// Ref is the exchange-assigned document reference, unique within the
	// exchange and used as the dedup key.
	Ref string

	// Data is the structured XML payload.
	Data []byte

	// ReceivedAt advances the poll watermark.
	ReceivedAt time.Time
}

// ExchangeClient lists documents addressed to a taxpayer on the invoice
// exchange.
type ExchangeClient interface {
	ListDocuments(ctx context.Context, taxID string, since time.Time) ([]ExchangeDocument, error)
}

// ExchangePoller ingests structured invoices from the exchange. Documents
// arrive with exchange-assigned references, so extraction of these runs
// through the strict structured path with full confidence.
type ExchangePoller struct {
	cfg    config.ExchangeSourceConfig
	client ExchangeClient
	ledger *ledger.Service
	logger *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc

	// watermark is the ReceivedAt of the newest document seen. Dedup in
	// the ledger covers overlap, so the watermark only bounds the query.
	watermark time.Time
}

// NewExchangePoller creates a new exchange poller
func NewExchangePoller(cfg config.ExchangeSourceConfig, client ExchangeClient, ledgerSvc *ledger.Service, logger *zap.Logger) *ExchangePoller {
	return &ExchangePoller{
		cfg:    cfg,
		client: client,
		ledger: ledgerSvc,
		logger: logger,
	}
}

// Start begins the worker polling loop
func (p *ExchangePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return fmt.Errorf("exchange poller already running")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.isRunning = true
	p.mu.Unlock()

	p.logger.Info("ExchangePoller started",
		zap.String("tax_id", p.cfg.TaxID),
		zap.Duration("poll_interval", p.cfg.PollInterval))

	go p.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (p *ExchangePoller) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}

	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	p.logger.Info("ExchangePoller stopped")
	return nil
}

// Name returns the worker name for identification
func (p *ExchangePoller) Name() string {
	return "ExchangePoller"
}

func (p *ExchangePoller) pollLoop() {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *ExchangePoller) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, 2*time.Minute)
	defer cancel()

	p.mu.RLock()
	since := p.watermark
	p.mu.RUnlock()

	docs, err := p.client.ListDocuments(ctx, p.cfg.TaxID, since)
	if err != nil {
		p.logger.Error("Failed to list exchange documents", zap.Error(err))
		return
	}

	ingested := 0
	newest := since
	for _, doc := range docs {
		if doc.ReceivedAt.After(newest) {
			newest = doc.ReceivedAt
		}
		if len(doc.Data) == 0 {
			continue
		}

		_, created, _, err := p.ledger.Ingest(ctx, entity.SourceExchange, doc.Data, entity.MediaTypeExchangeXML, ledger.Provenance{
			DocumentRef: doc.Ref,
		})
		if err != nil {
			p.logger.Error("Failed to ingest exchange document",
				zap.String("ref", doc.Ref),
				zap.Error(err))
			continue
		}
		if created {
			ingested++
		}
	}

	p.mu.Lock()
	p.watermark = newest
	p.mu.Unlock()

	if ingested > 0 {
		p.logger.Info("Exchange poll completed",
			zap.Int("documents", len(docs)),
			zap.Int("ingested", ingested))
	}
}
