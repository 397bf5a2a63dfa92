package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
	"github.com/garyjia/expenseflow/pkg/utils"
)

// AdminService manages companies, users, workflow definitions and rules
type AdminService interface {
	CreateCompany(ctx context.Context, company *entity.Company) error
	GetCompany(ctx context.Context, id int64) (*entity.Company, error)

	CreateUser(ctx context.Context, user *entity.User) error
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	ListUsers(ctx context.Context, companyID int64) ([]*entity.User, error)

	// UpdateUser changes a user's name, role or manager link. The actor must be
	// an Admin of the user's company. Decisions already recorded keep the role
	// the approver had at the time.
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (*entity.User, error)

	// CreateWorkflow stores a new definition and makes it the company's active one
	CreateWorkflow(ctx context.Context, wf *entity.WorkflowDefinition) error
	GetActiveWorkflow(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error)

	CreateRule(ctx context.Context, rule *entity.ConditionalRule) error
	ListRules(ctx context.Context, companyID int64) ([]*entity.ConditionalRule, error)
	SetRuleActive(ctx context.Context, id int64, active bool) (*entity.ConditionalRule, error)
}

// UserUpdate holds the changes an admin makes to a user. Nil fields are kept.
type UserUpdate struct {
	ActorID           int64
	FullName          *string
	Role              *entity.Role
	ManagerID         *int64
	ClearManager      bool
	IsManagerApprover *bool
}

type adminServiceImpl struct {
	companies port.CompanyRepository
	users     port.UserRepository
	workflows port.WorkflowRepository
	rules     port.RuleRepository
	txManager port.TransactionManager
	logger    Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(
	companies port.CompanyRepository,
	users port.UserRepository,
	workflows port.WorkflowRepository,
	rules port.RuleRepository,
	txManager port.TransactionManager,
	logger Logger,
) AdminService {
	return &adminServiceImpl{
		companies: companies,
		users:     users,
		workflows: workflows,
		rules:     rules,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *adminServiceImpl) CreateCompany(ctx context.Context, company *entity.Company) error {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return fmt.Errorf("%w: company name is required", entity.ErrValidation)
	}
	currency, err := utils.NormalizeCurrency(company.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("%w: default_currency: %v", entity.ErrValidation, err)
	}
	company.DefaultCurrency = currency
	company.CreatedAt = time.Now().UTC()

	if err := s.companies.Create(ctx, company); err != nil {
		s.logger.Error("Failed to create company", "error", err, "name", company.Name)
		return fmt.Errorf("create company: %w", err)
	}
	s.logger.Info("Company created", "company_id", company.ID, "currency", company.DefaultCurrency)
	return nil
}

func (s *adminServiceImpl) GetCompany(ctx context.Context, id int64) (*entity.Company, error) {
	return s.companies.GetByID(ctx, id)
}

func (s *adminServiceImpl) CreateUser(ctx context.Context, user *entity.User) error {
	user.FullName = strings.TrimSpace(user.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.FullName == "" || user.Email == "" {
		return fmt.Errorf("%w: full_name and email are required", entity.ErrValidation)
	}
	if err := utils.ValidateEmail(user.Email); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	if !user.Role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", entity.ErrValidation, user.Role)
	}
	if _, err := s.companies.GetByID(ctx, user.CompanyID); err != nil {
		return fmt.Errorf("get company %d: %w", user.CompanyID, err)
	}

	if user.HasManager() {
		manager, err := s.users.GetByID(ctx, *user.ManagerID)
		if err != nil {
			return fmt.Errorf("get manager %d: %w", *user.ManagerID, err)
		}
		if manager.CompanyID != user.CompanyID {
			return fmt.Errorf("%w: manager belongs to another company", entity.ErrValidation)
		}
	} else {
		user.ManagerID = nil
	}
	if user.IsManagerApprover && user.ManagerID == nil {
		return fmt.Errorf("%w: is_manager_approver requires a manager", entity.ErrValidation)
	}
	user.CreatedAt = time.Now().UTC()

	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "error", err, "email", user.Email)
		return fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("User created", "user_id", user.ID, "company_id", user.CompanyID, "role", user.Role)
	return nil
}

func (s *adminServiceImpl) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *adminServiceImpl) ListUsers(ctx context.Context, companyID int64) ([]*entity.User, error) {
	return s.users.ListByCompany(ctx, companyID)
}

func (s *adminServiceImpl) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*entity.User, error) {
	if update.ClearManager && update.ManagerID != nil {
		return nil, fmt.Errorf("%w: manager_id and clear_manager are exclusive", entity.ErrValidation)
	}

	var updated *entity.User
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("get user %d: %w", id, err)
		}
		actor, err := s.users.GetByID(txCtx, update.ActorID)
		if err != nil {
			return fmt.Errorf("get actor %d: %w", update.ActorID, err)
		}
		if actor.Role != entity.RoleAdmin || actor.CompanyID != user.CompanyID {
			return fmt.Errorf("%w: only an admin of company %d may edit users", domainwf.ErrNotAuthorized, user.CompanyID)
		}

		if update.FullName != nil {
			name := strings.TrimSpace(*update.FullName)
			if name == "" {
				return fmt.Errorf("%w: full_name must not be empty", entity.ErrValidation)
			}
			user.FullName = name
		}
		if update.Role != nil {
			if !update.Role.IsValid() {
				return fmt.Errorf("%w: invalid role %q", entity.ErrValidation, *update.Role)
			}
			user.Role = *update.Role
		}
		switch {
		case update.ClearManager:
			user.ManagerID = nil
		case update.ManagerID != nil:
			if err := s.checkManager(txCtx, user, *update.ManagerID); err != nil {
				return err
			}
			managerID := *update.ManagerID
			user.ManagerID = &managerID
		}
		if update.IsManagerApprover != nil {
			user.IsManagerApprover = *update.IsManagerApprover
		}
		if user.IsManagerApprover && !user.HasManager() {
			return fmt.Errorf("%w: is_manager_approver requires a manager", entity.ErrValidation)
		}

		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update user", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("User updated", "user_id", updated.ID, "actor_id", update.ActorID, "role", updated.Role)
	return updated, nil
}

// checkManager verifies that managerID may become user's manager: same
// company, and the manager chain above it must not lead back to user
func (s *adminServiceImpl) checkManager(ctx context.Context, user *entity.User, managerID int64) error {
	if managerID == user.ID {
		return fmt.Errorf("%w: a user cannot manage themselves", entity.ErrValidation)
	}
	manager, err := s.users.GetByID(ctx, managerID)
	if err != nil {
		return fmt.Errorf("get manager %d: %w", managerID, err)
	}
	if manager.CompanyID != user.CompanyID {
		return fmt.Errorf("%w: manager belongs to another company", entity.ErrValidation)
	}

	seen := map[int64]bool{manager.ID: true}
	for cur := manager; cur.HasManager(); {
		next := *cur.ManagerID
		if next == user.ID {
			return fmt.Errorf("%w: manager link would create a cycle", entity.ErrValidation)
		}
		if seen[next] {
			break
		}
		seen[next] = true
		if cur, err = s.users.GetByID(ctx, next); err != nil {
			return fmt.Errorf("get manager %d: %w", next, err)
		}
	}
	return nil
}

func (s *adminServiceImpl) CreateWorkflow(ctx context.Context, wf *entity.WorkflowDefinition) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	wf.SortSteps()
	wf.CreatedAt = time.Now().UTC()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.companies.GetByID(txCtx, wf.CompanyID); err != nil {
			return fmt.Errorf("get company %d: %w", wf.CompanyID, err)
		}
		for _, step := range wf.Steps {
			if step.ApproverSpecificID == nil {
				continue
			}
			approver, err := s.users.GetByID(txCtx, *step.ApproverSpecificID)
			if err != nil {
				return fmt.Errorf("get approver for step %d: %w", step.Sequence, err)
			}
			if approver.CompanyID != wf.CompanyID {
				return fmt.Errorf("%w: step %d approver belongs to another company", entity.ErrValidation, step.Sequence)
			}
		}

		if err := s.workflows.Create(txCtx, wf); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		if err := s.workflows.Activate(txCtx, wf.CompanyID, wf.ID); err != nil {
			return fmt.Errorf("activate workflow: %w", err)
		}
		wf.IsActive = true
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create workflow", "error", err, "company_id", wf.CompanyID)
		return err
	}

	s.logger.Info("Workflow activated", "workflow_id", wf.ID, "company_id", wf.CompanyID, "steps", len(wf.Steps))
	return nil
}

func (s *adminServiceImpl) GetActiveWorkflow(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error) {
	return s.workflows.GetActive(ctx, companyID)
}

func (s *adminServiceImpl) CreateRule(ctx context.Context, rule *entity.ConditionalRule) error {
	rule.Name = strings.TrimSpace(rule.Name)
	if err := rule.Validate(); err != nil {
		return err
	}
	if _, err := s.companies.GetByID(ctx, rule.CompanyID); err != nil {
		return fmt.Errorf("get company %d: %w", rule.CompanyID, err)
	}
	rule.CreatedAt = time.Now().UTC()

	if err := s.rules.Create(ctx, rule); err != nil {
		s.logger.Error("Failed to create rule", "error", err, "company_id", rule.CompanyID)
		return fmt.Errorf("create rule: %w", err)
	}
	s.logger.Info("Rule created", "rule_id", rule.ID, "type", rule.Type, "active", rule.IsActive)
	return nil
}

func (s *adminServiceImpl) ListRules(ctx context.Context, companyID int64) ([]*entity.ConditionalRule, error) {
	return s.rules.ListByCompany(ctx, companyID, false)
}

func (s *adminServiceImpl) SetRuleActive(ctx context.Context, id int64, active bool) (*entity.ConditionalRule, error) {
	if err := s.rules.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("set rule active: %w", err)
	}
	s.logger.Info("Rule toggled", "rule_id", id, "active", active)
	return s.rules.GetByID(ctx, id)
}
