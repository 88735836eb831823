package ledger

import (
	"fmt"
	"path/filepath"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// Provenance carries the source-specific identity a source adapter must
// supply so a stable dedup fingerprint can be derived.
type Provenance struct {
	// Email sources.
	MessageID      string
	AttachmentName string

	// Storage-folder sources.
	Path     string
	Filename string

	// Exchange sources.
	DocumentRef string

	// Device (scanner/printer) sources.
	JobID string
}

// SourceKey derives the deterministic dedup fingerprint for a source.
// Repeated delivery of the same physical document must always map to the
// same key; a moved or renamed storage file intentionally maps to a new
// one and is treated as a new document.
func SourceKey(source entity.Source, p Provenance) (string, error) {
	switch source {
	case entity.SourceEmail:
		if p.MessageID == "" || p.AttachmentName == "" {
			return "", fmt.Errorf("email provenance requires message id and attachment name")
		}
		return p.MessageID + "/" + p.AttachmentName, nil

	case entity.SourceStorage:
		if p.Path == "" || p.Filename == "" {
			return "", fmt.Errorf("storage provenance requires path and filename")
		}
		return filepath.Join(p.Path, p.Filename), nil

	case entity.SourceExchange:
		if p.DocumentRef == "" {
			return "", fmt.Errorf("exchange provenance requires a document reference")
		}
		return p.DocumentRef, nil

	case entity.SourceScanner:
		if p.JobID == "" {
			return "", fmt.Errorf("scanner provenance requires a job id")
		}
		return p.JobID, nil

	default:
		return "", fmt.Errorf("unknown source: %s", source)
	}
}

// DisplayName returns the best human-readable filename for the provenance,
// used as the stored original filename.
func (p Provenance) DisplayName() string {
	switch {
	case p.AttachmentName != "":
		return p.AttachmentName
	case p.Filename != "":
		return p.Filename
	case p.DocumentRef != "":
		return p.DocumentRef
	case p.JobID != "":
		return p.JobID
	}
	return ""
}
