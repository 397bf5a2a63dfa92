// Package rule decides whether an expense's approval history satisfies any
// of its company's conditional approval rules.
package rule

import (
	"github.com/garyjia/expenseflow/internal/domain/entity"
)

// Evaluate returns true when any active rule that applies to the expense's
// current step is satisfied by the transaction history
func Evaluate(
	rules []*entity.ConditionalRule,
	wf *entity.WorkflowDefinition,
	transactions []*entity.ApprovalTransaction,
	expense *entity.Expense,
) bool {
	_, ok := FirstMatch(rules, wf, transactions, expense)
	return ok
}

// FirstMatch returns the first satisfied rule in slice order
func FirstMatch(
	rules []*entity.ConditionalRule,
	wf *entity.WorkflowDefinition,
	transactions []*entity.ApprovalTransaction,
	expense *entity.Expense,
) (*entity.ConditionalRule, bool) {
	if expense == nil {
		return nil, false
	}

	h := newHistory(transactions)
	current := currentSequence(wf, expense)

	for _, r := range rules {
		if r == nil || !r.IsActive || !r.AppliesToStep(expense.CurrentApprovalStep) {
			continue
		}
		if matches(r, h, expense, current) {
			return r, true
		}
	}
	return nil, false
}

func matches(r *entity.ConditionalRule, h history, expense *entity.Expense, current int) bool {
	switch r.Type {
	case entity.RuleTypePercentage:
		return percentageMet(r, h)

	case entity.RuleTypeSpecificApprover:
		return specificApproverMet(r, h)

	case entity.RuleTypeThreshold:
		if r.ThresholdAmount == nil {
			return false
		}
		if !expense.ConvertedAmount.GreaterThan(*r.ThresholdAmount) {
			return false
		}
		step := current
		if r.TargetWorkflowStep != nil {
			step = *r.TargetWorkflowStep
		}
		return h.approvedSteps[step]

	case entity.RuleTypeHybrid:
		return percentageMet(r, h) || specificApproverMet(r, h)
	}
	return false
}

func percentageMet(r *entity.ConditionalRule, h history) bool {
	if r.PercentageRequired == nil {
		return false
	}
	decided := len(h.decidedSteps)
	if decided == 0 {
		return false
	}
	// approved/decided*100 >= required, kept in integers
	return len(h.approvedSteps)*100 >= *r.PercentageRequired*decided
}

func specificApproverMet(r *entity.ConditionalRule, h history) bool {
	if r.ApproverRole == nil {
		return false
	}
	return h.approvedRoles[*r.ApproverRole]
}

// currentSequence maps the expense's step pointer onto the workflow step it
// resolves to, so gaps in the sequence numbering are skipped
func currentSequence(wf *entity.WorkflowDefinition, expense *entity.Expense) int {
	if wf != nil {
		if step, ok := wf.StepAtOrAfter(expense.CurrentApprovalStep); ok {
			return step.Sequence
		}
	}
	return expense.CurrentApprovalStep
}

type history struct {
	decidedSteps  map[int]bool
	approvedSteps map[int]bool
	approvedRoles map[entity.Role]bool
}

func newHistory(transactions []*entity.ApprovalTransaction) history {
	h := history{
		decidedSteps:  make(map[int]bool),
		approvedSteps: make(map[int]bool),
		approvedRoles: make(map[entity.Role]bool),
	}
	for _, tx := range transactions {
		if tx == nil || !tx.Status.IsDecided() {
			continue
		}
		h.decidedSteps[tx.StepSequence] = true
		if tx.Status == entity.DecisionApproved {
			h.approvedSteps[tx.StepSequence] = true
			h.approvedRoles[tx.ApproverRole] = true
		}
	}
	return h
}
