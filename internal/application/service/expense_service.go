package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
	"github.com/garyjia/expenseflow/pkg/utils"
)

// DraftRequest is the input for a new expense claim
type DraftRequest struct {
	SubmitterID int64           `json:"submitter_id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ExpenseDate time.Time       `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// Dashboard summarizes a manager's team
type Dashboard struct {
	ManagerID        int64             `json:"manager_id"`
	TeamSize         int               `json:"team_size"`
	TotalSpentYTD    decimal.Decimal   `json:"total_spent_ytd"`
	PendingApprovals []*entity.Expense `json:"pending_approvals"`
	TeamExpenses     []*entity.Expense `json:"team_expenses"`
}

// ExpenseService manages expense drafts and approver-facing listings
type ExpenseService interface {
	// CreateDraft converts the amount into the company currency and stores a draft
	CreateDraft(ctx context.Context, req DraftRequest) (*entity.Expense, error)
	GetExpense(ctx context.Context, id int64) (*entity.Expense, error)

	// PendingFor lists pending expenses whose current step the user may decide
	PendingFor(ctx context.Context, userID int64) ([]*entity.Expense, error)

	// ManagerDashboard returns the team's expenses, what awaits the manager and the YTD spend
	ManagerDashboard(ctx context.Context, managerID int64) (*Dashboard, error)

	// EligibleApprovers returns the users who may decide the expense's current step
	EligibleApprovers(ctx context.Context, expense *entity.Expense) ([]*entity.User, error)
}

type expenseServiceImpl struct {
	expenses  port.ExpenseRepository
	users     port.UserRepository
	companies port.CompanyRepository
	workflows port.WorkflowRepository
	rates     port.RateProvider
	logger    Logger
	now       func() time.Time
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenses port.ExpenseRepository,
	users port.UserRepository,
	companies port.CompanyRepository,
	workflows port.WorkflowRepository,
	rates port.RateProvider,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenses:  expenses,
		users:     users,
		companies: companies,
		workflows: workflows,
		rates:     rates,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *expenseServiceImpl) CreateDraft(ctx context.Context, req DraftRequest) (*entity.Expense, error) {
	submitter, err := s.users.GetByID(ctx, req.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("get submitter %d: %w", req.SubmitterID, err)
	}
	company, err := s.companies.GetByID(ctx, submitter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get company %d: %w", submitter.CompanyID, err)
	}

	currency, err := utils.NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", entity.ErrValidation)
	}

	rate, err := s.rates.Rate(ctx, currency, company.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	now := s.now()
	expenseDate := req.ExpenseDate
	if expenseDate.IsZero() {
		expenseDate = now
	}

	expense := &entity.Expense{
		CompanyID:         company.ID,
		SubmitterID:       submitter.ID,
		Description:       utils.SanitizeString(req.Description),
		Category:          utils.SanitizeString(req.Category),
		ExpenseDate:       expenseDate,
		SubmittedAmount:   req.Amount,
		SubmittedCurrency: currency,
		ConvertedAmount:   req.Amount.Mul(rate).Round(2),
		ConversionRate:    rate,
		Status:            entity.ExpenseStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		s.logger.Error("Failed to create expense", "error", err, "submitter_id", submitter.ID)
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info("Draft expense created",
		"expense_id", expense.ID,
		"submitter_id", submitter.ID,
		"amount", expense.SubmittedAmount.String(),
		"currency", currency,
		"converted_amount", expense.ConvertedAmount.String(),
	)
	return expense, nil
}

func (s *expenseServiceImpl) GetExpense(ctx context.Context, id int64) (*entity.Expense, error) {
	return s.expenses.GetByID(ctx, id)
}

func (s *expenseServiceImpl) PendingFor(ctx context.Context, userID int64) ([]*entity.Expense, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}

	pending, err := s.expenses.List(ctx, port.ExpenseFilter{
		CompanyID: user.CompanyID,
		Status:    entity.ExpenseStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("list pending expenses: %w", err)
	}

	r := newTargetResolver(s.users, s.workflows)
	result := make([]*entity.Expense, 0)
	for _, expense := range pending {
		target, err := r.resolve(ctx, expense)
		if err != nil {
			s.logger.Error("Failed to resolve approver", "error", err, "expense_id", expense.ID)
			continue
		}
		if target.Permits(user, expense.CompanyID) {
			result = append(result, expense)
		}
	}
	return result, nil
}

func (s *expenseServiceImpl) ManagerDashboard(ctx context.Context, managerID int64) (*Dashboard, error) {
	if _, err := s.users.GetByID(ctx, managerID); err != nil {
		return nil, fmt.Errorf("get manager %d: %w", managerID, err)
	}

	reports, err := s.users.ListReports(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	dashboard := &Dashboard{
		ManagerID:        managerID,
		TeamSize:         len(reports),
		TotalSpentYTD:    decimal.Zero,
		PendingApprovals: []*entity.Expense{},
		TeamExpenses:     []*entity.Expense{},
	}
	if len(reports) == 0 {
		return dashboard, nil
	}

	ids := make([]int64, len(reports))
	for i, u := range reports {
		ids[i] = u.ID
	}
	teamExpenses, err := s.expenses.List(ctx, port.ExpenseFilter{SubmitterIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list team expenses: %w", err)
	}
	dashboard.TeamExpenses = teamExpenses

	yearStart := time.Date(s.now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, e := range teamExpenses {
		if e.Status == entity.ExpenseStatusDraft || e.Status == entity.ExpenseStatusRejected {
			continue
		}
		if e.ExpenseDate.Before(yearStart) {
			continue
		}
		dashboard.TotalSpentYTD = dashboard.TotalSpentYTD.Add(e.ConvertedAmount)
	}

	pending, err := s.PendingFor(ctx, managerID)
	if err != nil {
		return nil, err
	}
	dashboard.PendingApprovals = pending

	return dashboard, nil
}

func (s *expenseServiceImpl) EligibleApprovers(ctx context.Context, expense *entity.Expense) ([]*entity.User, error) {
	target, err := newTargetResolver(s.users, s.workflows).resolve(ctx, expense)
	if err != nil {
		return nil, err
	}
	roster, err := s.users.ListByCompany(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return domainwf.EligibleApprovers(target, expense.CompanyID, roster), nil
}

// targetResolver resolves current-step targets, caching workflows and
// submitters across a batch of expenses
type targetResolver struct {
	users     port.UserRepository
	workflows port.WorkflowRepository
	wfCache   map[int64]*entity.WorkflowDefinition
	userCache map[int64]*entity.User
}

func newTargetResolver(users port.UserRepository, workflows port.WorkflowRepository) *targetResolver {
	return &targetResolver{
		users:     users,
		workflows: workflows,
		wfCache:   make(map[int64]*entity.WorkflowDefinition),
		userCache: make(map[int64]*entity.User),
	}
}

func (r *targetResolver) resolve(ctx context.Context, expense *entity.Expense) (domainwf.StepTarget, error) {
	if expense.Status != entity.ExpenseStatusPending || expense.WorkflowID == nil {
		return domainwf.StepTarget{}, fmt.Errorf("%w: expense %d is %s", domainwf.ErrInvalidState, expense.ID, expense.Status)
	}

	wf, ok := r.wfCache[*expense.WorkflowID]
	if !ok {
		var err error
		wf, err = r.workflows.GetByID(ctx, *expense.WorkflowID)
		if err != nil {
			return domainwf.StepTarget{}, fmt.Errorf("get workflow %d: %w", *expense.WorkflowID, err)
		}
		r.wfCache[wf.ID] = wf
	}

	submitter, ok := r.userCache[expense.SubmitterID]
	if !ok {
		var err error
		submitter, err = r.users.GetByID(ctx, expense.SubmitterID)
		if err != nil {
			return domainwf.StepTarget{}, fmt.Errorf("get submitter %d: %w", expense.SubmitterID, err)
		}
		r.userCache[submitter.ID] = submitter
	}

	return domainwf.ResolveApprover(wf, expense.CurrentApprovalStep, submitter)
}
