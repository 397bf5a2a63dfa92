package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/sqlite"
)

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sqlite.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the definition and its steps atomically
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.WorkflowDefinition) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		result, err := exec.ExecContext(txCtx,
			`INSERT INTO workflow_definitions (company_id, name, is_active, created_at) VALUES (?, ?, ?, ?)`,
			wf.CompanyID,
			wf.Name,
			wf.IsActive,
			wf.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create workflow", zap.Int64("company_id", wf.CompanyID), zap.Error(err))
			return fmt.Errorf("failed to create workflow: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		wf.ID = id

		for i := range wf.Steps {
			step := &wf.Steps[i]
			step.WorkflowID = id

			result, err := exec.ExecContext(txCtx,
				`INSERT INTO workflow_steps (workflow_id, sequence, approver_role, approver_specific_id) VALUES (?, ?, ?, ?)`,
				id,
				step.Sequence,
				toNullRole(step.ApproverRole),
				toNullInt64(step.ApproverSpecificID),
			)
			if err != nil {
				r.logger.Error("Failed to create workflow step",
					zap.Int64("workflow_id", id),
					zap.Int("sequence", step.Sequence),
					zap.Error(err))
				return fmt.Errorf("failed to create workflow step %d: %w", step.Sequence, err)
			}

			stepID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
			step.ID = stepID
		}

		return nil
	})
}

// GetByID loads a definition with its steps sorted by sequence
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	query := `SELECT id, company_id, name, is_active, created_at FROM workflow_definitions WHERE id = ?`

	var wf entity.WorkflowDefinition
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&wf.ID,
		&wf.CompanyID,
		&wf.Name,
		&wf.IsActive,
		&wf.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get workflow", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	steps, err := r.loadSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	wf.Steps = steps

	return &wf, nil
}

// GetActive loads the company's active definition
func (r *WorkflowRepository) GetActive(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error) {
	query := `
		SELECT id FROM workflow_definitions
		WHERE company_id = ? AND is_active = 1
		ORDER BY id DESC
		LIMIT 1
	`

	var id int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, companyID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active workflow for company %d: %w", companyID, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get active workflow", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get active workflow: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Activate marks id active and every other definition of the company inactive
func (r *WorkflowRepository) Activate(ctx context.Context, companyID, id int64) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		var found int64
		err := exec.QueryRowContext(txCtx,
			`SELECT id FROM workflow_definitions WHERE id = ? AND company_id = ?`, id, companyID,
		).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("workflow %d in company %d: %w", id, companyID, port.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get workflow: %w", err)
		}

		if _, err := exec.ExecContext(txCtx,
			`UPDATE workflow_definitions SET is_active = (id = ?) WHERE company_id = ?`, id, companyID,
		); err != nil {
			r.logger.Error("Failed to activate workflow", zap.Int64("id", id), zap.Error(err))
			return fmt.Errorf("failed to activate workflow: %w", err)
		}

		return nil
	})
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, workflowID int64) ([]entity.WorkflowStep, error) {
	query := `
		SELECT id, workflow_id, sequence, approver_role, approver_specific_id
		FROM workflow_steps
		WHERE workflow_id = ?
		ORDER BY sequence
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to load workflow steps", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to load workflow steps: %w", err)
	}
	defer rows.Close()

	steps := make([]entity.WorkflowStep, 0)
	for rows.Next() {
		var step entity.WorkflowStep
		var role sql.NullString
		var specificID sql.NullInt64

		if err := rows.Scan(&step.ID, &step.WorkflowID, &step.Sequence, &role, &specificID); err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}
		step.ApproverRole = fromNullRole(role)
		step.ApproverSpecificID = fromNullInt64(specificID)
		steps = append(steps, step)
	}

	return steps, rows.Err()
}
