package workflow

// State represents an invoice workflow state in the intake lifecycle.
type State string

const (
	StateNew       State = "new"
	StateProcessed State = "processed"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateExported  State = "exported"
)

var validStates = map[State]bool{
	StateNew:       true,
	StateProcessed: true,
	StateApproved:  true,
	StateRejected:  true,
	StateExported:  true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StateExported: true,
}

// IsTerminal returns true if the state admits no further transitions.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid workflow state.
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
