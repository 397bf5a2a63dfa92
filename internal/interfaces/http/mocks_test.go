package http

import (
	"context"

	"github.com/garyjia/expenseflow/internal/application/service"
	"github.com/garyjia/expenseflow/internal/application/workflow"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/domain/event"
)

type mockAdmin struct {
	createCompanyFunc  func(ctx context.Context, company *entity.Company) error
	getCompanyFunc     func(ctx context.Context, id int64) (*entity.Company, error)
	createUserFunc     func(ctx context.Context, user *entity.User) error
	getUserFunc        func(ctx context.Context, id int64) (*entity.User, error)
	listUsersFunc      func(ctx context.Context, companyID int64) ([]*entity.User, error)
	updateUserFunc     func(ctx context.Context, id int64, update service.UserUpdate) (*entity.User, error)
	createWorkflowFunc func(ctx context.Context, wf *entity.WorkflowDefinition) error
	activeWorkflowFunc func(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error)
	createRuleFunc     func(ctx context.Context, rule *entity.ConditionalRule) error
	listRulesFunc      func(ctx context.Context, companyID int64) ([]*entity.ConditionalRule, error)
	setRuleActiveFunc  func(ctx context.Context, id int64, active bool) (*entity.ConditionalRule, error)
}

func (m *mockAdmin) CreateCompany(ctx context.Context, company *entity.Company) error {
	if m.createCompanyFunc != nil {
		return m.createCompanyFunc(ctx, company)
	}
	company.ID = 1
	return nil
}

func (m *mockAdmin) GetCompany(ctx context.Context, id int64) (*entity.Company, error) {
	if m.getCompanyFunc != nil {
		return m.getCompanyFunc(ctx, id)
	}
	return &entity.Company{ID: id}, nil
}

func (m *mockAdmin) CreateUser(ctx context.Context, user *entity.User) error {
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockAdmin) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, id)
	}
	return &entity.User{ID: id}, nil
}

func (m *mockAdmin) ListUsers(ctx context.Context, companyID int64) ([]*entity.User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockAdmin) UpdateUser(ctx context.Context, id int64, update service.UserUpdate) (*entity.User, error) {
	if m.updateUserFunc != nil {
		return m.updateUserFunc(ctx, id, update)
	}
	return &entity.User{ID: id}, nil
}

func (m *mockAdmin) CreateWorkflow(ctx context.Context, wf *entity.WorkflowDefinition) error {
	if m.createWorkflowFunc != nil {
		return m.createWorkflowFunc(ctx, wf)
	}
	return nil
}

func (m *mockAdmin) GetActiveWorkflow(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error) {
	if m.activeWorkflowFunc != nil {
		return m.activeWorkflowFunc(ctx, companyID)
	}
	return &entity.WorkflowDefinition{CompanyID: companyID}, nil
}

func (m *mockAdmin) CreateRule(ctx context.Context, rule *entity.ConditionalRule) error {
	if m.createRuleFunc != nil {
		return m.createRuleFunc(ctx, rule)
	}
	return nil
}

func (m *mockAdmin) ListRules(ctx context.Context, companyID int64) ([]*entity.ConditionalRule, error) {
	if m.listRulesFunc != nil {
		return m.listRulesFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockAdmin) SetRuleActive(ctx context.Context, id int64, active bool) (*entity.ConditionalRule, error) {
	if m.setRuleActiveFunc != nil {
		return m.setRuleActiveFunc(ctx, id, active)
	}
	return &entity.ConditionalRule{ID: id, IsActive: active}, nil
}

type mockExpense struct {
	createDraftFunc func(ctx context.Context, req service.DraftRequest) (*entity.Expense, error)
	getExpenseFunc  func(ctx context.Context, id int64) (*entity.Expense, error)
	pendingForFunc  func(ctx context.Context, userID int64) ([]*entity.Expense, error)
	dashboardFunc   func(ctx context.Context, managerID int64) (*service.Dashboard, error)
}

func (m *mockExpense) CreateDraft(ctx context.Context, req service.DraftRequest) (*entity.Expense, error) {
	if m.createDraftFunc != nil {
		return m.createDraftFunc(ctx, req)
	}
	return &entity.Expense{ID: 1, Status: entity.ExpenseStatusDraft}, nil
}

func (m *mockExpense) GetExpense(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.getExpenseFunc != nil {
		return m.getExpenseFunc(ctx, id)
	}
	return &entity.Expense{ID: id}, nil
}

func (m *mockExpense) PendingFor(ctx context.Context, userID int64) ([]*entity.Expense, error) {
	if m.pendingForFunc != nil {
		return m.pendingForFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockExpense) ManagerDashboard(ctx context.Context, managerID int64) (*service.Dashboard, error) {
	if m.dashboardFunc != nil {
		return m.dashboardFunc(ctx, managerID)
	}
	return &service.Dashboard{ManagerID: managerID}, nil
}

func (m *mockExpense) EligibleApprovers(ctx context.Context, expense *entity.Expense) ([]*entity.User, error) {
	return nil, nil
}

type mockAudit struct {
	historyFunc func(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error)
}

func (m *mockAudit) HandleEvent(ctx context.Context, evt *event.Event) error { return nil }

func (m *mockAudit) History(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, expenseID)
	}
	return nil, nil
}

type mockReport struct {
	ledgerFunc  func(ctx context.Context, companyID int64) ([]byte, error)
	archiveFunc func(ctx context.Context, companyID int64) (string, error)
}

func (m *mockReport) Ledger(ctx context.Context, companyID int64) ([]byte, error) {
	if m.ledgerFunc != nil {
		return m.ledgerFunc(ctx, companyID)
	}
	return []byte("PK"), nil
}

func (m *mockReport) Archive(ctx context.Context, companyID int64) (string, error) {
	if m.archiveFunc != nil {
		return m.archiveFunc(ctx, companyID)
	}
	return "/archive/ledger.xlsx", nil
}

type mockEngine struct {
	submitFunc    func(ctx context.Context, expenseID, actorID int64) (*entity.Expense, error)
	decisionFunc  func(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error)
	overrideFunc  func(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error)
	getStatusFunc func(ctx context.Context, expenseID int64) (*workflow.StatusView, error)
}

func (m *mockEngine) Submit(ctx context.Context, expenseID, actorID int64) (*entity.Expense, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, expenseID, actorID)
	}
	return &entity.Expense{ID: expenseID, Status: entity.ExpenseStatusPending, CurrentApprovalStep: 1}, nil
}

func (m *mockEngine) RecordDecision(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error) {
	if m.decisionFunc != nil {
		return m.decisionFunc(ctx, req)
	}
	return &workflow.DecisionResult{}, nil
}

func (m *mockEngine) AdminOverride(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error) {
	if m.overrideFunc != nil {
		return m.overrideFunc(ctx, req)
	}
	return &workflow.DecisionResult{}, nil
}

func (m *mockEngine) GetStatus(ctx context.Context, expenseID int64) (*workflow.StatusView, error) {
	if m.getStatusFunc != nil {
		return m.getStatusFunc(ctx, expenseID)
	}
	return &workflow.StatusView{ExpenseID: expenseID}, nil
}

type mockLogger struct {
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errors = append(m.errors, msg)
}
