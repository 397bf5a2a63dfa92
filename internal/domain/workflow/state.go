package workflow

import "github.com/garyjia/expenseflow/internal/domain/entity"

// State represents a state in the expense lifecycle
type State string

const (
	StateDraft    State = State(entity.ExpenseStatusDraft)
	StatePending  State = State(entity.ExpenseStatusPending)
	StateApproved State = State(entity.ExpenseStatusApproved)
	StateRejected State = State(entity.ExpenseStatusRejected)
)

var validStates = map[State]bool{
	StateDraft:    true,
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// StateOf returns the lifecycle state matching an expense status
func StateOf(status entity.ExpenseStatus) State {
	return State(status)
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// Status converts the state back to an expense status
func (s State) Status() entity.ExpenseStatus {
	return entity.ExpenseStatus(s)
}
