package service

import (
	"context"
	"fmt"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// SettingsService reads and updates the evaluation formula settings
type SettingsService interface {
	// Get returns the stored settings, or the defaults when none are stored
	Get(ctx context.Context) (entity.EvaluationSettings, error)
	Update(ctx context.Context, settings entity.EvaluationSettings) (entity.EvaluationSettings, error)
	// EnsureDefaults stores the defaults when no settings row exists yet
	EnsureDefaults(ctx context.Context) (entity.EvaluationSettings, error)
}

type settingsServiceImpl struct {
	repo   port.SettingsRepository
	clock  port.Clock
	logger Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo port.SettingsRepository, clock port.Clock, logger Logger) SettingsService {
	return &settingsServiceImpl{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

func (s *settingsServiceImpl) Get(ctx context.Context) (entity.EvaluationSettings, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return entity.EvaluationSettings{}, fmt.Errorf("failed to load evaluation settings: %w", err)
	}
	if stored == nil {
		return entity.DefaultEvaluationSettings(), nil
	}
	return *stored, nil
}

func (s *settingsServiceImpl) Update(ctx context.Context, settings entity.EvaluationSettings) (entity.EvaluationSettings, error) {
	if err := settings.Validate(); err != nil {
		return entity.EvaluationSettings{}, err
	}
	if settings.FormulaName == "" {
		settings.FormulaName = entity.DefaultEvaluationSettings().FormulaName
	}
	settings.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, &settings); err != nil {
		return entity.EvaluationSettings{}, fmt.Errorf("failed to save evaluation settings: %w", err)
	}

	s.logger.Info("Evaluation settings updated",
		"formula_name", settings.FormulaName,
		"use_quality_score", settings.UseQualityScore,
		"use_priority_multiplier", settings.UsePriorityMultiplier,
		"use_time_bonus_penalty", settings.UseTimeBonusPenalty,
		"use_manager_closure_penalty", settings.UseManagerClosurePenalty,
	)
	return settings, nil
}

func (s *settingsServiceImpl) EnsureDefaults(ctx context.Context) (entity.EvaluationSettings, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return entity.EvaluationSettings{}, fmt.Errorf("failed to load evaluation settings: %w", err)
	}
	if stored != nil {
		return *stored, nil
	}

	defaults := entity.DefaultEvaluationSettings()
	defaults.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, &defaults); err != nil {
		return entity.EvaluationSettings{}, fmt.Errorf("failed to save default evaluation settings: %w", err)
	}
	s.logger.Info("Default evaluation settings created")
	return defaults, nil
}
