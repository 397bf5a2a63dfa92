package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *sqlite.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO approval_audit_log (
			expense_id, actor_id, previous_status, new_status,
			previous_step, new_step, action_type, action_data, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entry.ExpenseID,
		entry.ActorID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.PreviousStep,
		entry.NewStep,
		entry.ActionType,
		entry.ActionData,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create audit entry", zap.Int64("expense_id", entry.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByExpense returns the expense's audit entries, oldest first
func (r *AuditRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, expense_id, actor_id, previous_status, new_status,
			previous_step, new_step, action_type, action_data, timestamp
		FROM approval_audit_log
		WHERE expense_id = ?
		ORDER BY timestamp, id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list audit entries", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*entity.AuditEntry, 0)
	for rows.Next() {
		var entry entity.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ExpenseID,
			&entry.ActorID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.PreviousStep,
			&entry.NewStep,
			&entry.ActionType,
			&entry.ActionData,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
