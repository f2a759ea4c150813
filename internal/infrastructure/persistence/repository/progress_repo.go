package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
)

const progressColumns = `id, employee_id, manager_id, period_start, period_end,
	total_progress_score, breakdown, calculated_at`

// ProgressRepository implements port.ProgressRepository.
// The KPI breakdown is stored as a JSON document.
type ProgressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProgressRepository creates a new employee progress repository
func NewProgressRepository(db *sql.DB, logger *zap.Logger) port.ProgressRepository {
	return &ProgressRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the cached progress for the key, or nil when it has not been computed
func (r *ProgressRepository) Get(ctx context.Context, employeeID, managerID int64, period entity.Period) (*entity.EmployeeProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM employee_progress
		WHERE employee_id = ? AND manager_id = ? AND period_start = ? AND period_end = ?`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		employeeID, managerID, civilUTC(period.Start), civilUTC(period.End))
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get progress",
			zap.Int64("employee_id", employeeID),
			zap.Int64("manager_id", managerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// Upsert stores the progress under its employee, manager and period key and sets its ID
func (r *ProgressRepository) Upsert(ctx context.Context, p *entity.EmployeeProgress) error {
	breakdown := p.Breakdown
	if breakdown == nil {
		breakdown = map[string]entity.KPIBreakdown{}
	}
	doc, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}

	query := `
		INSERT INTO employee_progress (
			employee_id, manager_id, period_start, period_end,
			total_progress_score, breakdown, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, manager_id, period_start, period_end) DO UPDATE SET
			total_progress_score = excluded.total_progress_score,
			breakdown = excluded.breakdown,
			calculated_at = excluded.calculated_at
	`
	exec := sqlite.ExecutorFrom(ctx, r.db)
	start, end := civilUTC(p.PeriodStart), civilUTC(p.PeriodEnd)
	_, err = exec.ExecContext(ctx, query,
		p.EmployeeID,
		p.ManagerID,
		start,
		end,
		nullFloat64(p.TotalProgressScore),
		string(doc),
		p.CalculatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert progress",
			zap.Int64("employee_id", p.EmployeeID),
			zap.Int64("manager_id", p.ManagerID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert progress: %w", err)
	}

	return exec.QueryRowContext(ctx,
		`SELECT id FROM employee_progress WHERE employee_id = ? AND manager_id = ? AND period_start = ? AND period_end = ?`,
		p.EmployeeID, p.ManagerID, start, end,
	).Scan(&p.ID)
}

// ListByManager returns every cached progress of the manager for the period
func (r *ProgressRepository) ListByManager(ctx context.Context, managerID int64, period entity.Period) ([]*entity.EmployeeProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM employee_progress
		WHERE manager_id = ? AND period_start = ? AND period_end = ?
		ORDER BY employee_id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query,
		managerID, civilUTC(period.Start), civilUTC(period.End))
	if err != nil {
		r.logger.Error("Failed to list progress", zap.Int64("manager_id", managerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var out []*entity.EmployeeProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProgress(row rowScanner) (*entity.EmployeeProgress, error) {
	var p entity.EmployeeProgress
	var total sql.NullFloat64
	var doc string
	err := row.Scan(
		&p.ID,
		&p.EmployeeID,
		&p.ManagerID,
		&p.PeriodStart,
		&p.PeriodEnd,
		&total,
		&doc,
		&p.CalculatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.TotalProgressScore = float64Ptr(total)
	p.Breakdown = map[string]entity.KPIBreakdown{}
	if doc != "" {
		if err := json.Unmarshal([]byte(doc), &p.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
	}
	return &p, nil
}

var _ port.ProgressRepository = (*ProgressRepository)(nil)
