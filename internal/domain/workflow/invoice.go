package workflow

// invoiceTable is the single transition table of the intake lifecycle:
//
//	new -> processed -> {approved | rejected}, approved -> exported
//
// Status is monotonic; rejected and exported are terminal.
var invoiceTable = NewBuilder().
	Permit(StateNew, TriggerProcess, StateProcessed).
	Permit(StateProcessed, TriggerApprove, StateApproved).
	Permit(StateProcessed, TriggerReject, StateRejected).
	Permit(StateApproved, TriggerExport, StateExported)

// ForInvoice creates a machine positioned at the invoice's current state.
func ForInvoice(current State) *Machine {
	return invoiceTable.Build(current)
}

// NextState returns the state the trigger leads to from the given state, or
// ErrInvalidTransition if the transition is not in the lifecycle table.
func NextState(current State, trigger Trigger) (State, error) {
	m := ForInvoice(current)
	if err := m.Fire(trigger); err != nil {
		return current, err
	}
	return m.State(), nil
}
