package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expenseflow/internal/application/service"
	"github.com/garyjia/expenseflow/internal/application/workflow"
	"github.com/garyjia/expenseflow/internal/domain/entity"
)

// dateLayout is the wire format of expense dates
const dateLayout = "2006-01-02"

type CreateCompanyRequest struct {
	Name            string `json:"name" binding:"required"`
	DefaultCurrency string `json:"default_currency" binding:"required"`
}

type CreateUserRequest struct {
	CompanyID         int64       `json:"company_id" binding:"required"`
	FullName          string      `json:"full_name" binding:"required"`
	Email             string      `json:"email" binding:"required"`
	Role              entity.Role `json:"role" binding:"required"`
	ManagerID         *int64      `json:"manager_id"`
	IsManagerApprover bool        `json:"is_manager_approver"`
}

func (r CreateUserRequest) toEntity() *entity.User {
	return &entity.User{
		CompanyID:         r.CompanyID,
		FullName:          r.FullName,
		Email:             r.Email,
		Role:              r.Role,
		ManagerID:         r.ManagerID,
		IsManagerApprover: r.IsManagerApprover,
	}
}

// UpdateUserRequest edits a user; omitted fields stay unchanged
type UpdateUserRequest struct {
	ActorID           int64        `json:"actor_id" binding:"required"`
	FullName          *string      `json:"full_name"`
	Role              *entity.Role `json:"role"`
	ManagerID         *int64       `json:"manager_id"`
	ClearManager      bool         `json:"clear_manager"`
	IsManagerApprover *bool        `json:"is_manager_approver"`
}

func (r UpdateUserRequest) toUpdate() service.UserUpdate {
	return service.UserUpdate{
		ActorID:           r.ActorID,
		FullName:          r.FullName,
		Role:              r.Role,
		ManagerID:         r.ManagerID,
		ClearManager:      r.ClearManager,
		IsManagerApprover: r.IsManagerApprover,
	}
}

type WorkflowStepRequest struct {
	Sequence           int          `json:"sequence" binding:"required"`
	ApproverRole       *entity.Role `json:"approver_role"`
	ApproverSpecificID *int64       `json:"approver_specific_id"`
}

type CreateWorkflowRequest struct {
	Name  string                `json:"name" binding:"required"`
	Steps []WorkflowStepRequest `json:"steps" binding:"required,min=1,dive"`
}

func (r CreateWorkflowRequest) toEntity(companyID int64) *entity.WorkflowDefinition {
	wf := &entity.WorkflowDefinition{CompanyID: companyID, Name: r.Name}
	for _, s := range r.Steps {
		wf.Steps = append(wf.Steps, entity.WorkflowStep{
			Sequence:           s.Sequence,
			ApproverRole:       s.ApproverRole,
			ApproverSpecificID: s.ApproverSpecificID,
		})
	}
	return wf
}

type CreateRuleRequest struct {
	Name               string           `json:"name"`
	Type               entity.RuleType  `json:"type" binding:"required"`
	PercentageRequired *int             `json:"percentage_required"`
	ApproverRole       *entity.Role     `json:"approver_role"`
	ThresholdAmount    *decimal.Decimal `json:"threshold_amount"`
	TargetWorkflowStep *int             `json:"target_workflow_step"`

	// IsActive defaults to true when omitted
	IsActive *bool `json:"is_active"`
}

func (r CreateRuleRequest) toEntity(companyID int64) *entity.ConditionalRule {
	active := r.IsActive == nil || *r.IsActive
	return &entity.ConditionalRule{
		CompanyID:          companyID,
		Name:               r.Name,
		Type:               r.Type,
		PercentageRequired: r.PercentageRequired,
		ApproverRole:       r.ApproverRole,
		ThresholdAmount:    r.ThresholdAmount,
		TargetWorkflowStep: r.TargetWorkflowStep,
		IsActive:           active,
	}
}

type SetRuleActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type CreateExpenseRequest struct {
	SubmitterID int64           `json:"submitter_id" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ExpenseDate string          `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"required"`
}

func (r CreateExpenseRequest) toDraft() (service.DraftRequest, error) {
	req := service.DraftRequest{
		SubmitterID: r.SubmitterID,
		Description: r.Description,
		Category:    r.Category,
		Amount:      r.Amount,
		Currency:    r.Currency,
	}
	if r.ExpenseDate != "" {
		date, err := time.Parse(dateLayout, r.ExpenseDate)
		if err != nil {
			return req, fmt.Errorf("%w: expense_date must be YYYY-MM-DD", entity.ErrValidation)
		}
		req.ExpenseDate = date
	}
	return req, nil
}

type SubmitExpenseRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
}

type DecisionBody struct {
	ApproverID int64                 `json:"approver_id" binding:"required"`
	Decision   entity.DecisionStatus `json:"decision" binding:"required"`
	Comments   string                `json:"comments"`
}

func (b DecisionBody) toRequest(expenseID int64) workflow.DecisionRequest {
	return workflow.DecisionRequest{
		ExpenseID:  expenseID,
		ApproverID: b.ApproverID,
		Decision:   b.Decision,
		Comments:   b.Comments,
	}
}
