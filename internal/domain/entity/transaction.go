package entity

import "time"

// DecisionStatus is the status recorded on an approval transaction
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "Approved"
	DecisionRejected DecisionStatus = "Rejected"
	DecisionWaiting  DecisionStatus = "Waiting"
	DecisionPending  DecisionStatus = "Pending"
)

// String returns the string representation of the decision
func (d DecisionStatus) String() string {
	return string(d)
}

// IsDecided reports whether the status is a final vote on a step
func (d DecisionStatus) IsDecided() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// ApprovalTransaction is one append-only decision on one step of an expense.
// ApproverRole is the approver's role when the decision was recorded.
type ApprovalTransaction struct {
	ID           int64          `json:"id"`
	ExpenseID    int64          `json:"expense_id"`
	ApproverID   int64          `json:"approver_id"`
	ApproverRole Role           `json:"approver_role"`
	StepSequence int            `json:"step_sequence"`
	Status       DecisionStatus `json:"status"`
	Comments     string         `json:"comments"`
	IsOverride   bool           `json:"is_override"`
	Timestamp    time.Time      `json:"timestamp"`
}

// AuditEntry records one status change of an expense
type AuditEntry struct {
	ID             int64     `json:"id"`
	ExpenseID      int64     `json:"expense_id"`
	ActorID        int64     `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	PreviousStep   int       `json:"previous_step"`
	NewStep        int       `json:"new_step"`
	ActionType     string    `json:"action_type"`
	ActionData     string    `json:"action_data"`
	Timestamp      time.Time `json:"timestamp"`
}
