package entity

import (
	"fmt"
	"sort"
	"time"
)

// WorkflowStep names the approver required at one position of a workflow.
// Exactly one of ApproverRole and ApproverSpecificID is set.
type WorkflowStep struct {
	ID                 int64  `json:"id"`
	WorkflowID         int64  `json:"workflow_id"`
	Sequence           int    `json:"sequence"`
	ApproverRole       *Role  `json:"approver_role,omitempty"`
	ApproverSpecificID *int64 `json:"approver_specific_id,omitempty"`
}

// IsRoleBased reports whether the step resolves its approver by role
func (s WorkflowStep) IsRoleBased() bool {
	return s.ApproverSpecificID == nil && s.ApproverRole != nil
}

// WorkflowDefinition is an ordered list of approval steps for a company.
// A definition is never edited once created; a new one is activated instead.
type WorkflowDefinition struct {
	ID        int64          `json:"id"`
	CompanyID int64          `json:"company_id"`
	Name      string         `json:"name"`
	IsActive  bool           `json:"is_active"`
	Steps     []WorkflowStep `json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
}

// SortSteps orders the steps by sequence
func (w *WorkflowDefinition) SortSteps() {
	sort.SliceStable(w.Steps, func(i, j int) bool {
		return w.Steps[i].Sequence < w.Steps[j].Sequence
	})
}

// StepAtOrAfter returns the step with the lowest sequence >= sequence.
// Steps must be sorted.
func (w *WorkflowDefinition) StepAtOrAfter(sequence int) (WorkflowStep, bool) {
	for _, step := range w.Steps {
		if step.Sequence >= sequence {
			return step, true
		}
	}
	return WorkflowStep{}, false
}

// NextStep returns the first step strictly after sequence
func (w *WorkflowDefinition) NextStep(sequence int) (WorkflowStep, bool) {
	return w.StepAtOrAfter(sequence + 1)
}

// MaxSequence returns the highest step sequence, or 0 for an empty workflow
func (w *WorkflowDefinition) MaxSequence() int {
	highest := 0
	for _, step := range w.Steps {
		if step.Sequence > highest {
			highest = step.Sequence
		}
	}
	return highest
}

// IsLastStep reports whether no step follows sequence
func (w *WorkflowDefinition) IsLastStep(sequence int) bool {
	_, ok := w.NextStep(sequence)
	return !ok
}

// Validate checks the step invariants of a new workflow definition
func (w *WorkflowDefinition) Validate() error {
	if w.CompanyID == 0 {
		return fmt.Errorf("%w: company_id is required", ErrValidation)
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("%w: workflow needs at least one step", ErrValidation)
	}

	seen := make(map[int]bool, len(w.Steps))
	for _, step := range w.Steps {
		if step.Sequence < 1 {
			return fmt.Errorf("%w: step sequence must be >= 1, got %d", ErrValidation, step.Sequence)
		}
		if seen[step.Sequence] {
			return fmt.Errorf("%w: duplicate step sequence %d", ErrValidation, step.Sequence)
		}
		seen[step.Sequence] = true

		hasRole := step.ApproverRole != nil
		hasUser := step.ApproverSpecificID != nil
		if hasRole == hasUser {
			return fmt.Errorf("%w: step %d must name exactly one of approver_role or approver_specific_id", ErrValidation, step.Sequence)
		}
		if hasRole && !step.ApproverRole.IsValid() {
			return fmt.Errorf("%w: step %d has invalid role %q", ErrValidation, step.Sequence, *step.ApproverRole)
		}
	}

	return nil
}
