package event

// Type identifies a pipeline event.
type Type string

const (
	// TypeIngested fires when a new invoice record is created. Duplicate
	// deliveries of the same sourceKey do not fire it again.
	TypeIngested Type = "invoice.ingested"

	// TypeProcessed fires when extraction populated structured fields.
	TypeProcessed Type = "invoice.processed"

	// TypeSuggested fires when the categorization engine attached a
	// suggestion to the invoice.
	TypeSuggested Type = "invoice.suggested"

	// TypeApproved fires when an operator approved the invoice.
	TypeApproved Type = "invoice.approved"

	// TypeRejected fires when an operator rejected the invoice.
	TypeRejected Type = "invoice.rejected"

	// TypeExported fires when the invoice was confirmed delivered in an
	// export artifact.
	TypeExported Type = "invoice.exported"
)

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}
