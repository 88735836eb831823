package workflow

import "fmt"

// Machine validates transitions against a configured transition table. It
// tracks the current state only; persistence of the state belongs to the
// ledger, which additionally serializes writers per invoice row.
type Machine struct {
	current     State
	transitions map[State]map[Trigger]State
}

// Builder assembles a transition table for a Machine.
type Builder struct {
	transitions map[State]map[Trigger]State
}

// NewBuilder creates an empty transition table builder.
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger]State)}
}

// Permit allows trigger to move from one state to another. Panics on
// unknown states; the table is assembled from constants at startup.
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	row, ok := b.transitions[from]
	if !ok {
		row = make(map[Trigger]State)
		b.transitions[from] = row
	}
	row[trigger] = to
	return b
}

// Build creates a machine positioned at the given initial state. The
// transition table is copied so the builder can be reused.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	copied := make(map[State]map[Trigger]State, len(b.transitions))
	for from, row := range b.transitions {
		rowCopy := make(map[Trigger]State, len(row))
		for trigger, to := range row {
			rowCopy[trigger] = to
		}
		copied[from] = rowCopy
	}

	return &Machine{current: initial, transitions: copied}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state.
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := m.transitions[m.current][trigger]
	return ok
}

// Fire executes the trigger, moving to the target state, or returns
// ErrInvalidTransition if the trigger is not permitted.
func (m *Machine) Fire(trigger Trigger) error {
	to, ok := m.transitions[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}

// Peek returns the state the trigger would move to without firing it.
func (m *Machine) Peek(trigger Trigger) (State, bool) {
	to, ok := m.transitions[m.current][trigger]
	return to, ok
}

// PermittedTriggers returns all triggers that can fire in the current state.
func (m *Machine) PermittedTriggers() []Trigger {
	row := m.transitions[m.current]
	triggers := make([]Trigger, 0, len(row))
	for trigger := range row {
		triggers = append(triggers, trigger)
	}
	return triggers
}
