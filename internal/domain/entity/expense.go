package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the lifecycle status of an expense
type ExpenseStatus string

const (
	ExpenseStatusDraft    ExpenseStatus = "Draft"
	ExpenseStatusPending  ExpenseStatus = "Pending"
	ExpenseStatusApproved ExpenseStatus = "Approved"
	ExpenseStatusRejected ExpenseStatus = "Rejected"
)

// String returns the string representation of the status
func (s ExpenseStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further decision may be recorded
func (s ExpenseStatus) IsTerminal() bool {
	return s == ExpenseStatusApproved || s == ExpenseStatusRejected
}

// Expense is the aggregate root of a single claim.
// ConvertedAmount and ConversionRate are in the company's default currency.
type Expense struct {
	ID                  int64           `json:"id"`
	CompanyID           int64           `json:"company_id"`
	SubmitterID         int64           `json:"submitter_id"`
	WorkflowID          *int64          `json:"workflow_id,omitempty"`
	Description         string          `json:"description"`
	Category            string          `json:"category"`
	ExpenseDate         time.Time       `json:"expense_date"`
	SubmittedAmount     decimal.Decimal `json:"submitted_amount"`
	SubmittedCurrency   string          `json:"submitted_currency"`
	ConvertedAmount     decimal.Decimal `json:"converted_amount"`
	ConversionRate      decimal.Decimal `json:"conversion_rate"`
	Status              ExpenseStatus   `json:"status"`
	CurrentApprovalStep int             `json:"current_approval_step"`
	SubmittedAt         *time.Time      `json:"submitted_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Validate checks the financial invariants of the expense
func (e *Expense) Validate() error {
	if e.CompanyID == 0 || e.SubmitterID == 0 {
		return fmt.Errorf("%w: company_id and submitter_id are required", ErrValidation)
	}
	if !e.SubmittedAmount.IsPositive() {
		return fmt.Errorf("%w: submitted_amount must be positive", ErrValidation)
	}
	if !e.ConvertedAmount.IsPositive() {
		return fmt.Errorf("%w: converted_amount must be positive", ErrValidation)
	}
	if len(e.SubmittedCurrency) != 3 {
		return fmt.Errorf("%w: submitted_currency must be an ISO 4217 code", ErrValidation)
	}
	return nil
}
