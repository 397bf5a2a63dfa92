package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/sqlite"
)

const ruleColumns = `id, company_id, name, type, percentage_required, approver_role,
	threshold_amount, target_workflow_step, is_active, created_at`

// RuleRepository implements port.RuleRepository
type RuleRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new conditional rule repository
func NewRuleRepository(db *sqlite.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new conditional rule
func (r *RuleRepository) Create(ctx context.Context, rule *entity.ConditionalRule) error {
	query := `
		INSERT INTO conditional_rules (
			company_id, name, type, percentage_required, approver_role,
			threshold_amount, target_workflow_step, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var threshold decimal.NullDecimal
	if rule.ThresholdAmount != nil {
		threshold = decimal.NewNullDecimal(*rule.ThresholdAmount)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rule.CompanyID,
		rule.Name,
		string(rule.Type),
		toNullInt(rule.PercentageRequired),
		toNullRole(rule.ApproverRole),
		threshold,
		toNullInt(rule.TargetWorkflowStep),
		rule.IsActive,
		rule.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.Int64("company_id", rule.CompanyID), zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rule.ID = id
	return nil
}

// GetByID retrieves a rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*entity.ConditionalRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM conditional_rules WHERE id = ?`

	rule, err := scanRule(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get rule", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListByCompany returns the company's rules ordered by ID
func (r *RuleRepository) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ConditionalRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM conditional_rules WHERE company_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list rules", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := make([]*entity.ConditionalRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// SetActive toggles a rule
func (r *RuleRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE conditional_rules SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		r.logger.Error("Failed to update rule", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", id, port.ErrNotFound)
	}
	return nil
}

func scanRule(row rowScanner) (*entity.ConditionalRule, error) {
	var rule entity.ConditionalRule
	var ruleType string
	var percentage, targetStep sql.NullInt64
	var role sql.NullString
	var threshold decimal.NullDecimal

	if err := row.Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.Name,
		&ruleType,
		&percentage,
		&role,
		&threshold,
		&targetStep,
		&rule.IsActive,
		&rule.CreatedAt,
	); err != nil {
		return nil, err
	}

	rule.Type = entity.RuleType(ruleType)
	rule.PercentageRequired = fromNullInt(percentage)
	rule.ApproverRole = fromNullRole(role)
	rule.TargetWorkflowStep = fromNullInt(targetStep)
	if threshold.Valid {
		amount := threshold.Decimal
		rule.ThresholdAmount = &amount
	}
	return &rule, nil
}
