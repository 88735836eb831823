package extract

import "errors"

// ErrExtractionUnavailable is returned when no recognition provider can
// serve the document (provider unreachable, unsupported media type, empty
// payload). The invoice stays in its current state and the call is safe to
// retry later. Partial field extraction is never an error.
var ErrExtractionUnavailable = errors.New("extraction unavailable")
