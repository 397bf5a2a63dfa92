package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted    Type = "expense.submitted"
	TypeExpenseStepAdvanced Type = "expense.step_advanced"
	TypeExpenseApproved     Type = "expense.approved"
	TypeExpenseRejected     Type = "expense.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeExpenseStepAdvanced,
		TypeExpenseApproved,
		TypeExpenseRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the event closes the expense's approval flow
func (t Type) IsTerminal() bool {
	return t == TypeExpenseApproved || t == TypeExpenseRejected
}
