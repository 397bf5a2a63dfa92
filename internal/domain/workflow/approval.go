package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/domain/rule"
)

// Submit moves a draft expense into the approval flow of wf
func Submit(expense *entity.Expense, wf *entity.WorkflowDefinition, now time.Time) error {
	if expense == nil {
		return fmt.Errorf("%w: expense is required", entity.ErrValidation)
	}
	if expense.Status != entity.ExpenseStatusDraft {
		return fmt.Errorf("%w: expense %d is %s, only drafts can be submitted", ErrInvalidState, expense.ID, expense.Status)
	}
	if wf == nil || !wf.IsActive || len(wf.Steps) == 0 {
		return fmt.Errorf("%w: company %d has no active workflow with steps", ErrStepNotFound, expense.CompanyID)
	}

	wf.SortSteps()

	sm := NewExpenseLifecycle(StateOf(expense.Status))
	if err := sm.Fire(context.Background(), TriggerSubmit); err != nil {
		return err
	}

	workflowID := wf.ID
	submittedAt := now
	expense.Status = sm.State().Status()
	// the pointer always starts at 1; a gap resolves to the lowest step >= 1
	expense.CurrentApprovalStep = 1
	expense.WorkflowID = &workflowID
	expense.SubmittedAt = &submittedAt
	expense.UpdatedAt = now
	return nil
}

// DecisionInput carries everything Decide needs to judge one decision
type DecisionInput struct {
	Expense      *entity.Expense
	Workflow     *entity.WorkflowDefinition
	Rules        []*entity.ConditionalRule
	Submitter    *entity.User
	Approver     *entity.User
	Transactions []*entity.ApprovalTransaction
	Decision     entity.DecisionStatus
	Comments     string
	Override     bool
	Now          time.Time
}

// Outcome describes the effect of an accepted decision.
// The expense passed in is updated in place.
type Outcome struct {
	Transaction    *entity.ApprovalTransaction
	PreviousStatus entity.ExpenseStatus
	NewStatus      entity.ExpenseStatus
	PreviousStep   int
	NewStep        int
	Terminal       bool
	FiredRule      *entity.ConditionalRule
	Trigger        Trigger
}

// Decide validates a decision on the expense's current step and applies it.
// Rejection ends the flow; approval ends it when a rule fires or the last
// step is reached, and otherwise moves to the next step.
func Decide(in DecisionInput) (*Outcome, error) {
	expense := in.Expense
	if expense == nil || in.Approver == nil {
		return nil, fmt.Errorf("%w: expense and approver are required", entity.ErrValidation)
	}

	state := StateOf(expense.Status)
	if state.IsTerminal() {
		return nil, fmt.Errorf("%w: expense %d is %s", ErrTerminalState, expense.ID, expense.Status)
	}
	if state != StatePending {
		return nil, fmt.Errorf("%w: expense %d is %s", ErrInvalidState, expense.ID, expense.Status)
	}
	if in.Decision != entity.DecisionApproved && in.Decision != entity.DecisionRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, in.Decision)
	}
	if in.Workflow == nil {
		return nil, fmt.Errorf("%w: expense %d has no workflow", ErrStepNotFound, expense.ID)
	}
	in.Workflow.SortSteps()

	target, err := ResolveApprover(in.Workflow, expense.CurrentApprovalStep, in.Submitter)
	if err != nil && !(in.Override && errors.Is(err, ErrNotAuthorized)) {
		return nil, err
	}
	sequence := target.Sequence
	if in.Override {
		if in.Approver.Role != entity.RoleAdmin || in.Approver.CompanyID != expense.CompanyID {
			return nil, fmt.Errorf("%w: override requires an admin of company %d", ErrNotAuthorized, expense.CompanyID)
		}
		if step, ok := in.Workflow.StepAtOrAfter(expense.CurrentApprovalStep); ok {
			sequence = step.Sequence
		}
	} else if !target.Permits(in.Approver, expense.CompanyID) {
		return nil, fmt.Errorf("%w: user %d cannot act on %s", ErrNotAuthorized, in.Approver.ID, target)
	}

	for _, tx := range in.Transactions {
		if tx != nil && tx.StepSequence == sequence {
			return nil, fmt.Errorf("%w: expense %d step %d", ErrDuplicateDecision, expense.ID, sequence)
		}
	}

	tx := &entity.ApprovalTransaction{
		ExpenseID:    expense.ID,
		ApproverID:   in.Approver.ID,
		ApproverRole: in.Approver.Role,
		StepSequence: sequence,
		Status:       in.Decision,
		Comments:     in.Comments,
		IsOverride:   in.Override,
		Timestamp:    in.Now,
	}

	out := &Outcome{
		Transaction:    tx,
		PreviousStatus: expense.Status,
		PreviousStep:   expense.CurrentApprovalStep,
		NewStep:        expense.CurrentApprovalStep,
	}

	// the evaluator sees the pointer on the step being decided
	current := *expense
	current.CurrentApprovalStep = sequence

	var next entity.WorkflowStep
	switch {
	case in.Decision == entity.DecisionRejected:
		out.Trigger = TriggerReject
	default:
		history := make([]*entity.ApprovalTransaction, 0, len(in.Transactions)+1)
		history = append(history, in.Transactions...)
		history = append(history, tx)

		if fired, ok := rule.FirstMatch(in.Rules, in.Workflow, history, &current); ok {
			out.FiredRule = fired
			out.Trigger = TriggerApprove
		} else if step, ok := in.Workflow.NextStep(sequence); ok {
			next = step
			out.Trigger = TriggerAdvance
		} else {
			out.Trigger = TriggerApprove
		}
	}

	sm := NewExpenseLifecycle(state)
	if err := sm.Fire(context.Background(), out.Trigger); err != nil {
		return nil, err
	}

	expense.Status = sm.State().Status()
	expense.UpdatedAt = in.Now
	expense.CurrentApprovalStep = sequence
	if out.Trigger == TriggerAdvance {
		expense.CurrentApprovalStep = next.Sequence
	}
	if sm.State().IsTerminal() {
		completedAt := in.Now
		expense.CompletedAt = &completedAt
		out.Terminal = true
	}

	out.NewStatus = expense.Status
	out.NewStep = expense.CurrentApprovalStep
	return out, nil
}
