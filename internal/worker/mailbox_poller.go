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

// MailAttachment is one attachment of a fetched message.
type MailAttachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// MailMessage is a fetched mailbox message with its stable message id.
type MailMessage struct {
	MessageID   string
	Attachments []MailAttachment
}

// MailClient fetches messages from a mailbox folder. Implementations talk
// to the actual mail provider; the poller only cares about message ids and
// attachments.
type MailClient interface {
	Fetch(ctx context.Context, folder string) ([]MailMessage, error)
}

// MailboxPoller ingests invoice attachments from a mailbox. The message id
// plus attachment name is the dedup key, so re-fetching already seen mail
// is harmless.
type MailboxPoller struct {
	cfg    config.MailboxSourceConfig
	client MailClient
	ledger *ledger.Service
	logger *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewMailboxPoller creates a new mailbox poller
func NewMailboxPoller(cfg config.MailboxSourceConfig, client MailClient, ledgerSvc *ledger.Service, logger *zap.Logger) *MailboxPoller {
	return &MailboxPoller{
		cfg:    cfg,
		client: client,
		ledger: ledgerSvc,
		logger: logger,
	}
}

// Start begins the worker polling loop
func (p *MailboxPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return fmt.Errorf("mailbox poller already running")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.isRunning = true
	p.mu.Unlock()

	p.logger.Info("MailboxPoller started",
		zap.String("folder", p.cfg.Folder),
		zap.Duration("poll_interval", p.cfg.PollInterval))

	go p.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (p *MailboxPoller) Stop() error {
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

	p.logger.Info("MailboxPoller stopped")
	return nil
}

// Name returns the worker name for identification
func (p *MailboxPoller) Name() string {
	return "MailboxPoller"
}

func (p *MailboxPoller) pollLoop() {
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

func (p *MailboxPoller) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, 2*time.Minute)
	defer cancel()

	messages, err := p.client.Fetch(ctx, p.cfg.Folder)
	if err != nil {
		p.logger.Error("Failed to fetch mailbox", zap.Error(err))
		return
	}

	ingested := 0
	for _, msg := range messages {
		for _, att := range msg.Attachments {
			if len(att.Data) == 0 {
				continue
			}

			_, created, _, err := p.ledger.Ingest(ctx, entity.SourceEmail, att.Data, att.MediaType, ledger.Provenance{
				MessageID:      msg.MessageID,
				AttachmentName: att.Name,
			})
			if err != nil {
				p.logger.Error("Failed to ingest attachment",
					zap.String("message_id", msg.MessageID),
					zap.String("attachment", att.Name),
					zap.Error(err))
				continue
			}
			if created {
				ingested++
			}
		}
	}

	if ingested > 0 {
		p.logger.Info("Mailbox poll completed",
			zap.Int("messages", len(messages)),
			zap.Int("ingested", ingested))
	}
}
