package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType identifies how a conditional rule is evaluated
type RuleType string

const (
	RuleTypePercentage       RuleType = "Percentage"
	RuleTypeSpecificApprover RuleType = "SpecificApprover"
	RuleTypeThreshold        RuleType = "Threshold"
	RuleTypeHybrid           RuleType = "Hybrid"
)

// IsValid returns true if the rule type is one of the defined constants
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypePercentage, RuleTypeSpecificApprover, RuleTypeThreshold, RuleTypeHybrid:
		return true
	default:
		return false
	}
}

// ConditionalRule can approve an expense before its workflow is exhausted.
// TargetWorkflowStep restricts the rule to one step; nil means every step.
type ConditionalRule struct {
	ID                 int64            `json:"id"`
	CompanyID          int64            `json:"company_id"`
	Name               string           `json:"name"`
	Type               RuleType         `json:"type"`
	PercentageRequired *int             `json:"percentage_required,omitempty"`
	ApproverRole       *Role            `json:"approver_role,omitempty"`
	ThresholdAmount    *decimal.Decimal `json:"threshold_amount,omitempty"`
	TargetWorkflowStep *int             `json:"target_workflow_step,omitempty"`
	IsActive           bool             `json:"is_active"`
	CreatedAt          time.Time        `json:"created_at"`
}

// AppliesToStep reports whether the rule participates at the given step
func (r *ConditionalRule) AppliesToStep(sequence int) bool {
	return r.TargetWorkflowStep == nil || *r.TargetWorkflowStep == sequence
}

// Validate checks that the rule carries the parameters its type needs
func (r *ConditionalRule) Validate() error {
	if r.CompanyID == 0 {
		return fmt.Errorf("%w: company_id is required", ErrValidation)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrValidation, r.Type)
	}
	if r.TargetWorkflowStep != nil && *r.TargetWorkflowStep < 1 {
		return fmt.Errorf("%w: target_workflow_step must be >= 1", ErrValidation)
	}
	if r.PercentageRequired != nil && (*r.PercentageRequired < 1 || *r.PercentageRequired > 100) {
		return fmt.Errorf("%w: percentage_required must be within 1-100", ErrValidation)
	}
	if r.ApproverRole != nil && !r.ApproverRole.IsValid() {
		return fmt.Errorf("%w: invalid approver_role %q", ErrValidation, *r.ApproverRole)
	}
	if r.ThresholdAmount != nil && !r.ThresholdAmount.IsPositive() {
		return fmt.Errorf("%w: threshold_amount must be positive", ErrValidation)
	}

	switch r.Type {
	case RuleTypePercentage:
		if r.PercentageRequired == nil {
			return fmt.Errorf("%w: percentage rule needs percentage_required", ErrValidation)
		}
	case RuleTypeSpecificApprover:
		if r.ApproverRole == nil {
			return fmt.Errorf("%w: specific approver rule needs approver_role", ErrValidation)
		}
	case RuleTypeThreshold:
		if r.ThresholdAmount == nil {
			return fmt.Errorf("%w: threshold rule needs threshold_amount", ErrValidation)
		}
	case RuleTypeHybrid:
		if r.PercentageRequired == nil && r.ApproverRole == nil {
			return fmt.Errorf("%w: hybrid rule needs percentage_required or approver_role", ErrValidation)
		}
	}

	return nil
}
