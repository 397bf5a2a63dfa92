package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expenseflow/internal/application/dispatcher"
	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/domain/event"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Repositories groups the stores the engine reads and writes
type Repositories struct {
	Expenses     port.ExpenseRepository
	Users        port.UserRepository
	Workflows    port.WorkflowRepository
	Rules        port.RuleRepository
	Transactions port.TransactionRepository
}

// engineImpl is the concrete implementation of ApprovalEngine
type engineImpl struct {
	repos      Repositories
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger
	locks      *keyedLocker
	now        func() time.Time
}

// EngineOption configures the approval engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new approval engine
func NewEngine(repos Repositories, txManager port.TransactionManager, opts ...EngineOption) ApprovalEngine {
	e := &engineImpl{
		repos:     repos,
		txManager: txManager,
		logger:    nopLogger{},
		locks:     newKeyedLocker(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit moves a draft into the company's active workflow
func (e *engineImpl) Submit(ctx context.Context, expenseID, actorID int64) (*entity.Expense, error) {
	unlock := e.locks.Lock(expenseID)
	defer unlock()

	var expense *entity.Expense
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = e.repos.Expenses.GetByID(txCtx, expenseID)
		if err != nil {
			return fmt.Errorf("failed to load expense %d: %w", expenseID, err)
		}
		if expense.SubmitterID != actorID {
			return fmt.Errorf("%w: user %d is not the submitter of expense %d", domainwf.ErrNotAuthorized, actorID, expenseID)
		}

		wf, err := e.repos.Workflows.GetActive(txCtx, expense.CompanyID)
		if errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("%w: company %d has no active workflow", domainwf.ErrStepNotFound, expense.CompanyID)
		}
		if err != nil {
			return fmt.Errorf("failed to load active workflow: %w", err)
		}

		if err := domainwf.Submit(expense, wf, e.now()); err != nil {
			return err
		}
		if err := e.repos.Expenses.Update(txCtx, expense); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Expense submitted",
		"expense_id", expense.ID,
		"previous_status", entity.ExpenseStatusDraft,
		"new_status", expense.Status,
		"step", expense.CurrentApprovalStep,
	)

	e.emit(ctx, event.TypeExpenseSubmitted, expense, actorID, map[string]interface{}{
		event.KeyPreviousStatus: entity.ExpenseStatusDraft.String(),
		event.KeyNewStatus:      expense.Status.String(),
		event.KeyNewStep:        expense.CurrentApprovalStep,
	})

	return expense, nil
}

// RecordDecision records an eligible approver's decision
func (e *engineImpl) RecordDecision(ctx context.Context, req DecisionRequest) (*DecisionResult, error) {
	return e.decide(ctx, req, false)
}

// AdminOverride records a company admin's decision on the current step
func (e *engineImpl) AdminOverride(ctx context.Context, req DecisionRequest) (*DecisionResult, error) {
	return e.decide(ctx, req, true)
}

func (e *engineImpl) decide(ctx context.Context, req DecisionRequest, override bool) (*DecisionResult, error) {
	unlock := e.locks.Lock(req.ExpenseID)
	defer unlock()

	var (
		expense *entity.Expense
		outcome *domainwf.Outcome
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		in, err := e.loadDecisionInput(txCtx, req)
		if err != nil {
			return err
		}
		in.Override = override
		in.Now = e.now()

		outcome, err = domainwf.Decide(in)
		if err != nil {
			return err
		}
		expense = in.Expense

		if err := e.repos.Transactions.Create(txCtx, outcome.Transaction); err != nil {
			return err
		}
		if err := e.repos.Expenses.Update(txCtx, expense); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Decision rejected",
			"expense_id", req.ExpenseID,
			"approver_id", req.ApproverID,
			"override", override,
			"error", err,
		)
		return nil, err
	}

	e.logger.Info("Decision recorded",
		"expense_id", expense.ID,
		"approver_id", req.ApproverID,
		"decision", req.Decision,
		"override", override,
		"previous_status", outcome.PreviousStatus,
		"new_status", outcome.NewStatus,
		"previous_step", outcome.PreviousStep,
		"new_step", outcome.NewStep,
	)

	payload := map[string]interface{}{
		event.KeyPreviousStatus: outcome.PreviousStatus.String(),
		event.KeyNewStatus:      outcome.NewStatus.String(),
		event.KeyPreviousStep:   outcome.PreviousStep,
		event.KeyNewStep:        outcome.NewStep,
		event.KeyDecision:       req.Decision.String(),
		event.KeyComments:       req.Comments,
		event.KeyOverride:       override,
	}
	if outcome.FiredRule != nil {
		payload[event.KeyRuleID] = outcome.FiredRule.ID
		payload[event.KeyRuleName] = outcome.FiredRule.Name
	}
	e.emit(ctx, eventTypeFor(outcome.Trigger), expense, req.ApproverID, payload)

	return &DecisionResult{
		Expense:     expense,
		Transaction: outcome.Transaction,
		Terminal:    outcome.Terminal,
		FiredRule:   outcome.FiredRule,
	}, nil
}

// loadDecisionInput gathers the expense and everything Decide judges it against
func (e *engineImpl) loadDecisionInput(ctx context.Context, req DecisionRequest) (domainwf.DecisionInput, error) {
	in := domainwf.DecisionInput{Decision: req.Decision, Comments: req.Comments}

	expense, err := e.repos.Expenses.GetByID(ctx, req.ExpenseID)
	if err != nil {
		return in, fmt.Errorf("failed to load expense %d: %w", req.ExpenseID, err)
	}
	in.Expense = expense

	approver, err := e.repos.Users.GetByID(ctx, req.ApproverID)
	if err != nil {
		return in, fmt.Errorf("failed to load approver %d: %w", req.ApproverID, err)
	}
	in.Approver = approver

	// drafts and closed expenses are rejected by Decide before the workflow is consulted
	if expense.Status != entity.ExpenseStatusPending {
		return in, nil
	}

	if expense.WorkflowID != nil {
		wf, err := e.repos.Workflows.GetByID(ctx, *expense.WorkflowID)
		if err != nil {
			return in, fmt.Errorf("failed to load workflow %d: %w", *expense.WorkflowID, err)
		}
		in.Workflow = wf
	}

	submitter, err := e.repos.Users.GetByID(ctx, expense.SubmitterID)
	if err != nil {
		return in, fmt.Errorf("failed to load submitter %d: %w", expense.SubmitterID, err)
	}
	in.Submitter = submitter

	rules, err := e.repos.Rules.ListByCompany(ctx, expense.CompanyID, true)
	if err != nil {
		return in, fmt.Errorf("failed to load rules: %w", err)
	}
	in.Rules = rules

	txs, err := e.repos.Transactions.ListByExpense(ctx, expense.ID)
	if err != nil {
		return in, fmt.Errorf("failed to load transactions: %w", err)
	}
	in.Transactions = txs

	return in, nil
}

// GetStatus returns the expense's status, history and next approvers
func (e *engineImpl) GetStatus(ctx context.Context, expenseID int64) (*StatusView, error) {
	expense, err := e.repos.Expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %d: %w", expenseID, err)
	}

	txs, err := e.repos.Transactions.ListByExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	view := &StatusView{
		ExpenseID:           expense.ID,
		Status:              expense.Status,
		CurrentApprovalStep: expense.CurrentApprovalStep,
		Transactions:        txs,
		NextApprovers:       []*entity.User{},
	}

	if expense.Status != entity.ExpenseStatusPending || expense.WorkflowID == nil {
		return view, nil
	}

	target, err := e.nextTarget(ctx, expense)
	if err != nil {
		// an unresolvable step leaves the expense waiting on an admin override
		e.logger.Error("Failed to resolve next approver", "expense_id", expenseID, "error", err)
		return view, nil
	}
	view.NextTarget = &target

	roster, err := e.repos.Users.ListByCompany(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	view.NextApprovers = domainwf.EligibleApprovers(target, expense.CompanyID, roster)

	return view, nil
}

func (e *engineImpl) nextTarget(ctx context.Context, expense *entity.Expense) (domainwf.StepTarget, error) {
	wf, err := e.repos.Workflows.GetByID(ctx, *expense.WorkflowID)
	if err != nil {
		return domainwf.StepTarget{}, fmt.Errorf("failed to load workflow: %w", err)
	}
	submitter, err := e.repos.Users.GetByID(ctx, expense.SubmitterID)
	if err != nil {
		return domainwf.StepTarget{}, fmt.Errorf("failed to load submitter: %w", err)
	}
	return domainwf.ResolveApprover(wf, expense.CurrentApprovalStep, submitter)
}

func (e *engineImpl) emit(ctx context.Context, t event.Type, expense *entity.Expense, actorID int64, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(t, expense.ID, expense.CompanyID, actorID, payload))
}

func eventTypeFor(trigger domainwf.Trigger) event.Type {
	switch trigger {
	case domainwf.TriggerApprove:
		return event.TypeExpenseApproved
	case domainwf.TriggerReject:
		return event.TypeExpenseRejected
	default:
		return event.TypeExpenseStepAdvanced
	}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var _ ApprovalEngine = (*engineImpl)(nil)
