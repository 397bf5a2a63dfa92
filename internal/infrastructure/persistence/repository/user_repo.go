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

const userColumns = `id, company_id, full_name, email, role, manager_id, is_manager_approver, created_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user; a taken email fails with port.ErrAlreadyExists
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			company_id, full_name, email, role, manager_id, is_manager_approver, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		user.CompanyID,
		user.FullName,
		user.Email,
		string(user.Role),
		toNullInt64(user.ManagerID),
		user.IsManagerApprover,
		user.CreatedAt,
	)
	if sqlite.IsUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", user.Email, port.ErrAlreadyExists)
	}
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// Update saves full_name, role, manager_id and is_manager_approver
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users
		SET full_name = ?, role = ?, manager_id = ?, is_manager_approver = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		user.FullName,
		string(user.Role),
		toNullInt64(user.ManagerID),
		user.IsManagerApprover,
		user.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update user", zap.Int64("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", user.ID, port.ErrNotFound)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.getOne(ctx, query, id, fmt.Sprintf("user %d", id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.getOne(ctx, query, email, "user "+email)
}

// ListByCompany returns the company roster ordered by ID
func (r *UserRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = ? ORDER BY id`
	return r.list(ctx, query, companyID)
}

// ListReports returns the users whose manager is managerID
func (r *UserRepository) ListReports(ctx context.Context, managerID int64) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE manager_id = ? ORDER BY id`
	return r.list(ctx, query, managerID)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}, what string) (*entity.User, error) {
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user", what), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) list(ctx context.Context, query string, arg interface{}) ([]*entity.User, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var role string
	var managerID sql.NullInt64

	if err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.FullName,
		&user.Email,
		&role,
		&managerID,
		&user.IsManagerApprover,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}

	user.Role = entity.Role(role)
	user.ManagerID = fromNullInt64(managerID)
	return &user, nil
}
