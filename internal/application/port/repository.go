package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/expenseflow/internal/domain/entity"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a unique key is already taken
	ErrAlreadyExists = errors.New("record already exists")
)

// CompanyRepository defines persistence operations for Company
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id int64) (*entity.Company, error)
	List(ctx context.Context) ([]*entity.Company, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// Update saves the mutable profile fields: name, role and manager link
	Update(ctx context.Context, user *entity.User) error

	// ListByCompany returns the company roster ordered by ID
	ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error)

	// ListReports returns the users whose manager is managerID
	ListReports(ctx context.Context, managerID int64) ([]*entity.User, error)
}

// WorkflowRepository defines persistence operations for WorkflowDefinition.
// Definitions are immutable; only the active flag changes.
type WorkflowRepository interface {
	// Create stores the definition and its steps
	Create(ctx context.Context, wf *entity.WorkflowDefinition) error

	// GetByID loads a definition with its steps sorted by sequence
	GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)

	// GetActive loads the company's active definition
	GetActive(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error)

	// Activate marks id active and every other definition of the company inactive
	Activate(ctx context.Context, companyID, id int64) error
}

// RuleRepository defines persistence operations for ConditionalRule
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.ConditionalRule) error
	GetByID(ctx context.Context, id int64) (*entity.ConditionalRule, error)

	// ListByCompany returns the company's rules ordered by ID
	ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ConditionalRule, error)

	SetActive(ctx context.Context, id int64, active bool) error
}

// ExpenseFilter narrows expense listings; zero values are ignored
type ExpenseFilter struct {
	CompanyID      int64
	SubmitterIDs   []int64
	Status         entity.ExpenseStatus
	UpdatedBefore  time.Time
	SubmittedAfter time.Time
	Limit          int
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)

	// Update writes the workflow binding, status, step pointer and timestamps
	Update(ctx context.Context, expense *entity.Expense) error

	List(ctx context.Context, filter ExpenseFilter) ([]*entity.Expense, error)
}

// TransactionRepository defines persistence operations for ApprovalTransaction.
// Transactions are append-only.
type TransactionRepository interface {
	// Create inserts a transaction; a second row for the same expense step
	// fails with workflow.ErrDuplicateDecision
	Create(ctx context.Context, tx *entity.ApprovalTransaction) error

	// ListByExpense returns the expense's transactions ordered by step
	ListByExpense(ctx context.Context, expenseID int64) ([]*entity.ApprovalTransaction, error)
}

// AuditRepository defines persistence operations for the approval audit log
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
	ListByExpense(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
