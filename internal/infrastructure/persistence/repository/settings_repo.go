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

// settingsRowID is the primary key of the only evaluation_settings row
const settingsRowID = 1

// SettingsRepository implements port.SettingsRepository
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new evaluation settings repository
func NewSettingsRepository(db *sql.DB, logger *zap.Logger) port.SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the stored settings, or nil when none have been saved
func (r *SettingsRepository) Get(ctx context.Context) (*entity.EvaluationSettings, error) {
	query := `
		SELECT formula_name, use_quality_score, use_priority_multiplier,
			use_time_bonus_penalty, use_manager_closure_penalty,
			early_completion_bonus_per_day, max_early_completion_bonus,
			late_completion_penalty_per_day, max_late_completion_penalty,
			manager_closure_penalty, updated_at
		FROM evaluation_settings
		WHERE id = ?
	`

	var s entity.EvaluationSettings
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, settingsRowID).Scan(
		&s.FormulaName,
		&s.UseQualityScore,
		&s.UsePriorityMultiplier,
		&s.UseTimeBonusPenalty,
		&s.UseManagerClosurePenalty,
		&s.EarlyCompletionBonusPerDay,
		&s.MaxEarlyCompletionBonus,
		&s.LateCompletionPenaltyPerDay,
		&s.MaxLateCompletionPenalty,
		&s.ManagerClosurePenalty,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get evaluation settings", zap.Error(err))
		return nil, fmt.Errorf("failed to get evaluation settings: %w", err)
	}
	return &s, nil
}

// Save upserts the single settings row
func (r *SettingsRepository) Save(ctx context.Context, s *entity.EvaluationSettings) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO evaluation_settings (
			id, formula_name, use_quality_score, use_priority_multiplier,
			use_time_bonus_penalty, use_manager_closure_penalty,
			early_completion_bonus_per_day, max_early_completion_bonus,
			late_completion_penalty_per_day, max_late_completion_penalty,
			manager_closure_penalty, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			formula_name = excluded.formula_name,
			use_quality_score = excluded.use_quality_score,
			use_priority_multiplier = excluded.use_priority_multiplier,
			use_time_bonus_penalty = excluded.use_time_bonus_penalty,
			use_manager_closure_penalty = excluded.use_manager_closure_penalty,
			early_completion_bonus_per_day = excluded.early_completion_bonus_per_day,
			max_early_completion_bonus = excluded.max_early_completion_bonus,
			late_completion_penalty_per_day = excluded.late_completion_penalty_per_day,
			max_late_completion_penalty = excluded.max_late_completion_penalty,
			manager_closure_penalty = excluded.manager_closure_penalty,
			updated_at = excluded.updated_at
	`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		settingsRowID,
		s.FormulaName,
		s.UseQualityScore,
		s.UsePriorityMultiplier,
		s.UseTimeBonusPenalty,
		s.UseManagerClosurePenalty,
		s.EarlyCompletionBonusPerDay,
		s.MaxEarlyCompletionBonus,
		s.LateCompletionPenaltyPerDay,
		s.MaxLateCompletionPenalty,
		s.ManagerClosurePenalty,
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to save evaluation settings", zap.Error(err))
		return fmt.Errorf("failed to save evaluation settings: %w", err)
	}
	return nil
}

var _ port.SettingsRepository = (*SettingsRepository)(nil)
