package workflow

import (
	"context"

	"github.com/garyjia/expenseflow/internal/domain/entity"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
)

// DecisionRequest is an approver's decision on an expense's current step
type DecisionRequest struct {
	ExpenseID  int64                 `json:"expense_id"`
	ApproverID int64                 `json:"approver_id"`
	Decision   entity.DecisionStatus `json:"decision"`
	Comments   string                `json:"comments"`
}

// DecisionResult is the persisted effect of a decision
type DecisionResult struct {
	Expense     *entity.Expense             `json:"expense"`
	Transaction *entity.ApprovalTransaction `json:"transaction"`
	Terminal    bool                        `json:"terminal"`
	FiredRule   *entity.ConditionalRule     `json:"fired_rule,omitempty"`
}

// StatusView is a read-only snapshot of an expense's approval progress
type StatusView struct {
	ExpenseID           int64                         `json:"expense_id"`
	Status              entity.ExpenseStatus          `json:"status"`
	CurrentApprovalStep int                           `json:"current_approval_step"`
	Transactions        []*entity.ApprovalTransaction `json:"transactions"`
	NextTarget          *domainwf.StepTarget          `json:"next_target,omitempty"`
	NextApprovers       []*entity.User                `json:"next_approvers"`
}

// ApprovalEngine drives expenses through their approval workflow.
// Writes to one expense are serialized; reads never mutate.
type ApprovalEngine interface {
	// Submit moves a draft into the company's active workflow. Only the submitter may submit.
	Submit(ctx context.Context, expenseID, actorID int64) (*entity.Expense, error)

	// RecordDecision records an eligible approver's decision on the current step
	RecordDecision(ctx context.Context, req DecisionRequest) (*DecisionResult, error)

	// AdminOverride records a company admin's decision on the current step,
	// bypassing step eligibility
	AdminOverride(ctx context.Context, req DecisionRequest) (*DecisionResult, error)

	// GetStatus returns the expense's status, history and next approvers
	GetStatus(ctx context.Context, expenseID int64) (*StatusView, error)
}
