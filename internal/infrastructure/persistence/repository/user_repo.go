package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
)

const userColumns = `id, username, first_name, last_name, email, user_type,
	under_supervision_id, lark_open_id, is_active`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a user and sets its ID
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			username, first_name, last_name, email, user_type,
			under_supervision_id, lark_open_id, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.UserType,
		nullInt64(user.UnderSupervisionID),
		user.LarkOpenID,
		user.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user, returning nil when it does not exist
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListSupervisedBy returns the active direct reports of a manager
func (r *UserRepository) ListSupervisedBy(ctx context.Context, managerID int64) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE under_supervision_id = ? AND is_active = 1
		ORDER BY first_name, last_name, username`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, managerID)
	if err != nil {
		r.logger.Error("Failed to list supervised users", zap.Int64("manager_id", managerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list supervised users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
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
	var u entity.User
	var supervisor sql.NullInt64
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.UserType,
		&supervisor,
		&u.LarkOpenID,
		&u.IsActive,
	)
	if err != nil {
		return nil, err
	}
	u.UnderSupervisionID = int64Ptr(supervisor)
	return &u, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
