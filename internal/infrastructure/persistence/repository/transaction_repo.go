package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/domain/workflow"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/sqlite"
)

// TransactionRepository implements port.TransactionRepository
type TransactionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new approval transaction repository
func NewTransactionRepository(db *sqlite.DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a decision. The (expense_id, step_sequence) unique index
// turns a second decision for the same step into workflow.ErrDuplicateDecision.
func (r *TransactionRepository) Create(ctx context.Context, tx *entity.ApprovalTransaction) error {
	query := `
		INSERT INTO approval_transactions (
			expense_id, approver_id, approver_role, step_sequence,
			status, comments, is_override, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		tx.ExpenseID,
		tx.ApproverID,
		string(tx.ApproverRole),
		tx.StepSequence,
		string(tx.Status),
		tx.Comments,
		tx.IsOverride,
		tx.Timestamp,
	)
	if sqlite.IsUniqueViolation(err) {
		return fmt.Errorf("%w: expense %d step %d", workflow.ErrDuplicateDecision, tx.ExpenseID, tx.StepSequence)
	}
	if err != nil {
		r.logger.Error("Failed to create approval transaction",
			zap.Int64("expense_id", tx.ExpenseID),
			zap.Int("step", tx.StepSequence),
			zap.Error(err))
		return fmt.Errorf("failed to create approval transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	tx.ID = id
	return nil
}

// ListByExpense returns the expense's transactions ordered by step
func (r *TransactionRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.ApprovalTransaction, error) {
	query := `
		SELECT id, expense_id, approver_id, approver_role, step_sequence,
			status, comments, is_override, timestamp
		FROM approval_transactions
		WHERE expense_id = ?
		ORDER BY step_sequence
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list approval transactions", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*entity.ApprovalTransaction, 0)
	for rows.Next() {
		var tx entity.ApprovalTransaction
		var role, status string

		if err := rows.Scan(
			&tx.ID,
			&tx.ExpenseID,
			&tx.ApproverID,
			&role,
			&tx.StepSequence,
			&status,
			&tx.Comments,
			&tx.IsOverride,
			&tx.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval transaction: %w", err)
		}
		tx.ApproverRole = entity.Role(role)
		tx.Status = entity.DecisionStatus(status)
		txs = append(txs, &tx)
	}

	return txs, rows.Err()
}
