package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/domain/event"
	"github.com/pwalczyk/invoiceflow/internal/domain/workflow"
	"github.com/pwalczyk/invoiceflow/internal/repository"
	"go.uber.org/zap"
)

// Learner records one category-history tuple per approval. Implemented by
// the categorization engine; injected so the ledger stays free of scoring
// logic.
type Learner interface {
	LearnFromApproval(ctx context.Context, inv *entity.Invoice) error
}

// Service is the invoice ledger and workflow controller: idempotent
// ingestion, the state machine transitions, and listing. Every mutating
// operation returns the events it emitted.
type Service struct {
	invoices    *repository.InvoiceRepository
	contractors *repository.ContractorRepository
	learner     Learner
	logger      *zap.Logger
}

// NewService creates a new ledger service.
func NewService(
	invoices *repository.InvoiceRepository,
	contractors *repository.ContractorRepository,
	learner Learner,
	logger *zap.Logger,
) *Service {
	return &Service{
		invoices:    invoices,
		contractors: contractors,
		learner:     learner,
		logger:      logger,
	}
}

// Ingest records a document delivered by a source adapter. Calls with the
// same (source, provenance) are idempotent: the second call returns the
// existing invoice with created=false and emits no event. Duplicate
// delivery is not an error.
func (s *Service) Ingest(ctx context.Context, source entity.Source, data []byte, mediaType string, prov Provenance) (*entity.Invoice, bool, []event.Event, error) {
	if !source.IsValid() {
		return nil, false, nil, fmt.Errorf("invalid source: %s", source)
	}
	if len(data) == 0 {
		return nil, false, nil, ErrEmptyDocument
	}

	key, err := SourceKey(source, prov)
	if err != nil {
		return nil, false, nil, err
	}

	now := time.Now().UTC()
	inv := &entity.Invoice{
		ID:        uuid.NewString(),
		Source:    source,
		SourceKey: key,
		OriginalFile: entity.OriginalFile{
			Data:      data,
			MediaType: mediaType,
			Size:      int64(len(data)),
			Filename:  prov.DisplayName(),
		},
		Status:    entity.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, created, err := s.invoices.CreateIfAbsent(ctx, inv)
	if err != nil {
		return nil, false, nil, err
	}

	if !created {
		s.logger.Debug("Duplicate ingestion, returning existing invoice",
			zap.String("source", source.String()),
			zap.String("source_key", key),
			zap.String("id", stored.ID))
		return stored, false, nil, nil
	}

	s.logger.Info("Invoice ingested",
		zap.String("id", stored.ID),
		zap.String("source", source.String()),
		zap.String("media_type", mediaType),
		zap.Int64("size", stored.OriginalFile.Size))

	events := []event.Event{
		event.New(event.TypeIngested, stored.ID).
			With("source", source.String()).
			With("media_type", mediaType),
	}
	return stored, true, events, nil
}

// Process advances new -> processed, storing extraction output and the
// advisory suggestion. The contractor cache is refreshed as a save side
// effect.
func (s *Service) Process(ctx context.Context, id string, fields *entity.ExtractedFields, suggestion *entity.Suggestion) ([]event.Event, error) {
	inv, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := workflow.NextState(workflow.State(inv.Status), workflow.TriggerProcess); err != nil {
		return nil, err
	}

	ok, err := s.invoices.MarkProcessed(ctx, id, fields, suggestion)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to a concurrent transition.
		return nil, fmt.Errorf("%w: invoice %s left state %s concurrently",
			workflow.ErrInvalidTransition, id, inv.Status)
	}

	if fields != nil && fields.SellerTaxID != "" && fields.SellerName != "" {
		if err := s.contractors.Upsert(ctx, fields.SellerTaxID, fields.SellerName); err != nil {
			// Cache only; the invoice table remains the source of truth.
			s.logger.Warn("Contractor cache update failed", zap.Error(err))
		}
	}

	events := []event.Event{event.New(event.TypeProcessed, id)}
	if suggestion != nil {
		events = append(events, event.New(event.TypeSuggested, id).
			With("category", suggestion.Category.String()).
			With("confidence", fmt.Sprintf("%d", suggestion.Confidence)))
	}

	s.logger.Info("Invoice processed", zap.String("id", id))
	return events, nil
}

// Approve advances processed -> approved with the operator's description.
// The description is required; learning happens exactly once here.
func (s *Service) Approve(ctx context.Context, id string, desc *entity.Description) ([]event.Event, error) {
	if !desc.Complete() {
		return nil, ErrMissingDescription
	}

	inv, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := workflow.NextState(workflow.State(inv.Status), workflow.TriggerApprove); err != nil {
		return nil, err
	}

	ok, err := s.invoices.MarkApproved(ctx, id, desc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: invoice %s left state %s concurrently",
			workflow.ErrInvalidTransition, id, inv.Status)
	}

	inv.Status = entity.StatusApproved
	inv.Description = desc

	if s.learner != nil {
		if err := s.learner.LearnFromApproval(ctx, inv); err != nil {
			s.logger.Warn("Category history learning failed",
				zap.String("id", id), zap.Error(err))
		}
	}

	s.logger.Info("Invoice approved",
		zap.String("id", id),
		zap.String("category", desc.Category.String()))

	return []event.Event{
		event.New(event.TypeApproved, id).With("category", desc.Category.String()),
	}, nil
}

// Reject advances processed -> rejected. Terminal.
func (s *Service) Reject(ctx context.Context, id, reason string) ([]event.Event, error) {
	inv, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := workflow.NextState(workflow.State(inv.Status), workflow.TriggerReject); err != nil {
		return nil, err
	}

	ok, err := s.invoices.MarkRejected(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: invoice %s left state %s concurrently",
			workflow.ErrInvalidTransition, id, inv.Status)
	}

	s.logger.Info("Invoice rejected", zap.String("id", id), zap.String("reason", reason))
	return []event.Event{event.New(event.TypeRejected, id).With("reason", reason)}, nil
}

// MarkExported advances approved -> exported for each id. Called only
// after the caller confirmed delivery of the export artifact; a failed
// export leaves the batch in approved so retries stay idempotent.
func (s *Service) MarkExported(ctx context.Context, ids []string) ([]event.Event, error) {
	var events []event.Event
	for _, id := range ids {
		inv, err := s.require(ctx, id)
		if err != nil {
			return events, err
		}
		if _, err := workflow.NextState(workflow.State(inv.Status), workflow.TriggerExport); err != nil {
			return events, fmt.Errorf("invoice %s: %w", id, err)
		}

		ok, err := s.invoices.MarkExported(ctx, id)
		if err != nil {
			return events, err
		}
		if !ok {
			return events, fmt.Errorf("%w: invoice %s left state %s concurrently",
				workflow.ErrInvalidTransition, id, inv.Status)
		}
		events = append(events, event.New(event.TypeExported, id))
	}

	s.logger.Info("Invoices marked exported", zap.Int("count", len(ids)))
	return events, nil
}

// Assign sets project and expense type. Allowed in any non-terminal,
// non-exported state; never changes status.
func (s *Service) Assign(ctx context.Context, id, project, expenseType string) error {
	ok, err := s.invoices.Assign(ctx, id, project, expenseType)
	if err != nil {
		return err
	}
	if !ok {
		inv, err := s.invoices.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrNotFound
		}
		return fmt.Errorf("%w: cannot assign in state %s", workflow.ErrInvalidTransition, inv.Status)
	}
	return nil
}

// Get returns one invoice or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	return s.require(ctx, id)
}

// GetOriginalFile loads the raw document bytes for one invoice.
func (s *Service) GetOriginalFile(ctx context.Context, id string) (*entity.OriginalFile, error) {
	file, err := s.invoices.GetOriginalFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrNotFound
	}
	return file, nil
}

// List returns invoices for interactive listing, newest first.
func (s *Service) List(ctx context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, error) {
	return s.invoices.List(ctx, filter)
}

// ListForExport returns approved invoices in stable id order. When ids is
// empty every approved invoice is selected.
func (s *Service) ListForExport(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	return s.invoices.ListForExport(ctx, ids)
}

func (s *Service) require(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	return inv, nil
}
