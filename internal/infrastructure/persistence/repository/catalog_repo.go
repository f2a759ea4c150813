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

// QualityRepository implements port.QualityRepository
type QualityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQualityRepository creates a new quality type repository
func NewQualityRepository(db *sql.DB, logger *zap.Logger) port.QualityRepository {
	return &QualityRepository{db: db, logger: logger}
}

func (r *QualityRepository) GetByID(ctx context.Context, id int64) (*entity.QualityType, error) {
	var q entity.QualityType
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, percentage, description FROM quality_types WHERE id = ?`, id,
	).Scan(&q.ID, &q.Name, &q.Percentage, &q.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get quality type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get quality type: %w", err)
	}
	return &q, nil
}

// List returns quality types from highest to lowest percentage
func (r *QualityRepository) List(ctx context.Context) ([]*entity.QualityType, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, percentage, description FROM quality_types ORDER BY percentage DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality types: %w", err)
	}
	defer rows.Close()

	var out []*entity.QualityType
	for rows.Next() {
		var q entity.QualityType
		if err := rows.Scan(&q.ID, &q.Name, &q.Percentage, &q.Description); err != nil {
			return nil, fmt.Errorf("failed to scan quality type: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

// UpsertByName inserts the quality type or updates the row with the same name
func (r *QualityRepository) UpsertByName(ctx context.Context, q *entity.QualityType) error {
	query := `
		INSERT INTO quality_types (name, percentage, description) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			percentage = excluded.percentage,
			description = excluded.description
	`
	exec := sqlite.ExecutorFrom(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, q.Name, q.Percentage, q.Description); err != nil {
		r.logger.Error("Failed to upsert quality type", zap.String("name", q.Name), zap.Error(err))
		return fmt.Errorf("failed to upsert quality type: %w", err)
	}
	return exec.QueryRowContext(ctx, `SELECT id FROM quality_types WHERE name = ?`, q.Name).Scan(&q.ID)
}

// PriorityRepository implements port.PriorityRepository
type PriorityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPriorityRepository creates a new priority type repository
func NewPriorityRepository(db *sql.DB, logger *zap.Logger) port.PriorityRepository {
	return &PriorityRepository{db: db, logger: logger}
}

func (r *PriorityRepository) GetByID(ctx context.Context, id int64) (*entity.PriorityType, error) {
	var p entity.PriorityType
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, multiplier, description FROM priority_types WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Multiplier, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get priority type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get priority type: %w", err)
	}
	return &p, nil
}

// List returns priority types from lowest to highest multiplier
func (r *PriorityRepository) List(ctx context.Context) ([]*entity.PriorityType, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, multiplier, description FROM priority_types ORDER BY multiplier, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list priority types: %w", err)
	}
	defer rows.Close()

	var out []*entity.PriorityType
	for rows.Next() {
		var p entity.PriorityType
		if err := rows.Scan(&p.ID, &p.Name, &p.Multiplier, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan priority type: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpsertByName inserts the priority type or updates the row with the same name
func (r *PriorityRepository) UpsertByName(ctx context.Context, p *entity.PriorityType) error {
	query := `
		INSERT INTO priority_types (name, multiplier, description) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			multiplier = excluded.multiplier,
			description = excluded.description
	`
	exec := sqlite.ExecutorFrom(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, p.Name, p.Multiplier, p.Description); err != nil {
		r.logger.Error("Failed to upsert priority type", zap.String("name", p.Name), zap.Error(err))
		return fmt.Errorf("failed to upsert priority type: %w", err)
	}
	return exec.QueryRowContext(ctx, `SELECT id FROM priority_types WHERE name = ?`, p.Name).Scan(&p.ID)
}

var (
	_ port.QualityRepository  = (*QualityRepository)(nil)
	_ port.PriorityRepository = (*PriorityRepository)(nil)
)
