package ledger

import "errors"

var (
	// ErrNotFound is returned when no invoice exists for the given id.
	ErrNotFound = errors.New("invoice not found")

	// ErrMissingDescription is returned when approval or export is
	// attempted without the required description fields. Rejected before
	// any side effect.
	ErrMissingDescription = errors.New("missing description")

	// ErrEmptyDocument is returned when an adapter hands over no bytes.
	ErrEmptyDocument = errors.New("empty document payload")
)
