package workflow

// Trigger represents an event that may cause a state transition.
type Trigger string

const (
	// TriggerProcess records successful extraction of structured fields.
	TriggerProcess Trigger = "process"

	// TriggerApprove records an operator accepting the invoice with a
	// complete description.
	TriggerApprove Trigger = "approve"

	// TriggerReject records an operator discarding the invoice. Terminal.
	TriggerReject Trigger = "reject"

	// TriggerExport records confirmed delivery of an export artifact
	// containing the invoice.
	TriggerExport Trigger = "export"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
