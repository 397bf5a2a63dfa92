package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/sqlite"
)

const expenseColumns = `id, company_id, submitter_id, workflow_id, description, category, expense_date,
	submitted_amount, submitted_currency, converted_amount, conversion_rate,
	status, current_approval_step, submitted_at, completed_at, created_at, updated_at`

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqlite.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			company_id, submitter_id, workflow_id, description, category, expense_date,
			submitted_amount, submitted_currency, converted_amount, conversion_rate,
			status, current_approval_step, submitted_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.CompanyID,
		expense.SubmitterID,
		toNullInt64(expense.WorkflowID),
		expense.Description,
		expense.Category,
		expense.ExpenseDate,
		expense.SubmittedAmount,
		expense.SubmittedCurrency,
		expense.ConvertedAmount,
		expense.ConversionRate,
		string(expense.Status),
		expense.CurrentApprovalStep,
		toNullTime(expense.SubmittedAt),
		toNullTime(expense.CompletedAt),
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Int64("submitter_id", expense.SubmitterID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// Update writes the workflow binding, status, step pointer and timestamps.
// Amounts are immutable after creation.
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET workflow_id = ?, status = ?, current_approval_step = ?,
			submitted_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		toNullInt64(expense.WorkflowID),
		string(expense.Status),
		expense.CurrentApprovalStep,
		toNullTime(expense.SubmittedAt),
		toNullTime(expense.CompletedAt),
		expense.UpdatedAt,
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %d: %w", expense.ID, port.ErrNotFound)
	}
	return nil
}

// List returns the expenses matching the filter ordered by ID
func (r *ExpenseRepository) List(ctx context.Context, filter port.ExpenseFilter) ([]*entity.Expense, error) {
	var conditions []string
	var args []interface{}

	if filter.CompanyID != 0 {
		conditions = append(conditions, "company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if len(filter.SubmitterIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.SubmitterIDs)), ",")
		conditions = append(conditions, "submitter_id IN ("+placeholders+")")
		for _, id := range filter.SubmitterIDs {
			args = append(args, id)
		}
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.UpdatedBefore.IsZero() {
		conditions = append(conditions, "julianday(updated_at) < julianday(?)")
		args = append(args, filter.UpdatedBefore)
	}
	if !filter.SubmittedAfter.IsZero() {
		conditions = append(conditions, "submitted_at IS NOT NULL AND julianday(submitted_at) >= julianday(?)")
		args = append(args, filter.SubmittedAfter)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*entity.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var expense entity.Expense
	var status string
	var workflowID sql.NullInt64
	var submittedAt, completedAt sql.NullTime

	if err := row.Scan(
		&expense.ID,
		&expense.CompanyID,
		&expense.SubmitterID,
		&workflowID,
		&expense.Description,
		&expense.Category,
		&expense.ExpenseDate,
		&expense.SubmittedAmount,
		&expense.SubmittedCurrency,
		&expense.ConvertedAmount,
		&expense.ConversionRate,
		&status,
		&expense.CurrentApprovalStep,
		&submittedAt,
		&completedAt,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	); err != nil {
		return nil, err
	}

	expense.Status = entity.ExpenseStatus(status)
	expense.WorkflowID = fromNullInt64(workflowID)
	expense.SubmittedAt = fromNullTime(submittedAt)
	expense.CompletedAt = fromNullTime(completedAt)
	return &expense, nil
}
