package export

import (
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// Options controls a single export run.
type Options struct {
	// Label names the batch inside generated filenames. Empty defaults
	// to the batch date.
	Label string

	// Now supplies the batch timestamp for the default label. Nil uses
	// the wall clock.
	Now func() time.Time
}

// Artifact is a rendered export batch.
type Artifact struct {
	Format    string
	Filename  string
	MediaType string
	Data      []byte
	RowCount  int
}

// Service turns approved invoices into export artifacts.
type Service struct {
	registry *Registry
}

func NewService(registry *Registry) *Service {
	return &Service{registry: registry}
}

// Formats lists the available format identifiers.
func (s *Service) Formats() []string {
	return s.registry.Formats()
}

// ValidateFormat reports ErrUnknownFormat for unregistered format ids.
// Callers use it to reject a request before loading any invoices.
func (s *Service) ValidateFormat(format string) error {
	_, err := s.registry.Get(format)
	return err
}

// Export renders the invoices in the requested format. The format is
// validated before any invoice is inspected; an ineligible invoice fails
// the whole batch with no partial output.
func (s *Service) Export(invoices []*entity.Invoice, format string, opts Options) (*Artifact, error) {
	renderer, err := s.registry.Get(format)
	if err != nil {
		return nil, err
	}

	rows, err := BuildRows(invoices)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(rows)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Format:    renderer.ID(),
		Filename:  renderer.Filename(s.label(opts)),
		MediaType: renderer.MediaType(),
		Data:      data,
		RowCount:  len(rows),
	}, nil
}

func (s *Service) label(opts Options) string {
	if opts.Label != "" {
		return opts.Label
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return now().Format("20060102")
}
