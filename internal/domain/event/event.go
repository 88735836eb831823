package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a pipeline notification. Ledger operations return their emitted
// events explicitly so ordering and delivery are visible in the signature
// instead of hidden behind ambient callbacks.
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	InvoiceID string            `json:"invoice_id"`
	Fields    map[string]string `json:"fields,omitempty"`
	At        time.Time         `json:"at"`
}

// New creates an event for an invoice with an auto-generated id.
func New(t Type, invoiceID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		InvoiceID: invoiceID,
		At:        time.Now().UTC(),
	}
}

// With returns a copy of the event with one extra field attached.
func (e Event) With(key, value string) Event {
	fields := make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	e.Fields = fields
	return e
}

// Field returns a field value or "" when absent.
func (e Event) Field(key string) string {
	return e.Fields[key]
}
