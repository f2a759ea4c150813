package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
)

const kpiColumns = `id, name, description, weight, created_by_id, is_active, created_at, updated_at`

// KPIRepository implements port.KPIRepository
type KPIRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewKPIRepository creates a new KPI repository
func NewKPIRepository(db *sql.DB, logger *zap.Logger) port.KPIRepository {
	return &KPIRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a KPI and sets its ID
func (r *KPIRepository) Create(ctx context.Context, kpi *entity.KPI) error {
	now := time.Now().UTC()
	if kpi.CreatedAt.IsZero() {
		kpi.CreatedAt = now
	}
	if kpi.UpdatedAt.IsZero() {
		kpi.UpdatedAt = now
	}

	query := `
		INSERT INTO kpis (name, description, weight, created_by_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		kpi.Name,
		kpi.Description,
		kpi.Weight,
		kpi.CreatedByID,
		kpi.IsActive,
		kpi.CreatedAt.UTC(),
		kpi.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create kpi",
			zap.String("name", kpi.Name),
			zap.Int64("created_by_id", kpi.CreatedByID),
			zap.Error(err))
		return fmt.Errorf("failed to create kpi: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	kpi.ID = id
	return nil
}

// GetByID retrieves a KPI, returning nil when it does not exist
func (r *KPIRepository) GetByID(ctx context.Context, id int64) (*entity.KPI, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis WHERE id = ?`

	kpi, err := scanKPI(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get kpi", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get kpi: %w", err)
	}
	return kpi, nil
}

// Update writes the editable KPI fields
func (r *KPIRepository) Update(ctx context.Context, kpi *entity.KPI) error {
	if kpi.UpdatedAt.IsZero() {
		kpi.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE kpis
		SET name = ?, description = ?, weight = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		kpi.Name,
		kpi.Description,
		kpi.Weight,
		kpi.IsActive,
		kpi.UpdatedAt.UTC(),
		kpi.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update kpi", zap.Int64("id", kpi.ID), zap.Error(err))
		return fmt.Errorf("failed to update kpi: %w", err)
	}
	return requireAffected(result, entity.ErrKPINotFound)
}

// ListActiveByManager returns the manager's active KPIs ordered by name
func (r *KPIRepository) ListActiveByManager(ctx context.Context, managerID int64) ([]entity.KPI, error) {
	query := `SELECT ` + kpiColumns + `
		FROM kpis
		WHERE created_by_id = ? AND is_active = 1
		ORDER BY name, id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, managerID)
	if err != nil {
		r.logger.Error("Failed to list kpis", zap.Int64("manager_id", managerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list kpis: %w", err)
	}
	defer rows.Close()

	var kpis []entity.KPI
	for rows.Next() {
		kpi, err := scanKPI(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kpi: %w", err)
		}
		kpis = append(kpis, *kpi)
	}
	return kpis, rows.Err()
}

// SumActiveWeight totals the manager's active KPI weights, skipping excludeID when non-zero
func (r *KPIRepository) SumActiveWeight(ctx context.Context, managerID, excludeID int64) (float64, error) {
	query := `
		SELECT COALESCE(SUM(weight), 0)
		FROM kpis
		WHERE created_by_id = ? AND is_active = 1 AND id != ?
	`
	var total float64
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, managerID, excludeID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum kpi weights", zap.Int64("manager_id", managerID), zap.Error(err))
		return 0, fmt.Errorf("failed to sum kpi weights: %w", err)
	}
	return total, nil
}

func scanKPI(row rowScanner) (*entity.KPI, error) {
	var k entity.KPI
	err := row.Scan(
		&k.ID,
		&k.Name,
		&k.Description,
		&k.Weight,
		&k.CreatedByID,
		&k.IsActive,
		&k.CreatedAt,
		&k.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

var _ port.KPIRepository = (*KPIRepository)(nil)
