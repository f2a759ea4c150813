package service

import (
	"context"
	"fmt"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// SeedConfig lists the lookup tiers created by Seed
type SeedConfig struct {
	Priorities []entity.PriorityType
	Qualities  []entity.QualityType
}

// DefaultSeedConfig returns the standard priority multipliers and quality percentages
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Priorities: []entity.PriorityType{
			{Name: "Low", Multiplier: 1.0, Description: "Low priority task"},
			{Name: "Medium", Multiplier: 1.05, Description: "Medium priority task"},
			{Name: "High", Multiplier: 1.2, Description: "High priority task"},
		},
		Qualities: []entity.QualityType{
			{Name: "Poor", Percentage: 40, Description: "Work falls well short of expectations"},
			{Name: "Average", Percentage: 60, Description: "Work meets basic expectations"},
			{Name: "Good", Percentage: 80, Description: "Work meets expectations"},
			{Name: "Exceed", Percentage: 90, Description: "Work exceeds expectations"},
			{Name: "Exceptional", Percentage: 100, Description: "Outstanding work"},
		},
	}
}

// SeedSummary reports what Seed wrote
type SeedSummary struct {
	Priorities int                       `json:"priorities"`
	Qualities  int                       `json:"qualities"`
	Settings   entity.EvaluationSettings `json:"settings"`
}

// SetupService seeds evaluation lookup data
type SetupService interface {
	// Seed upserts priorities and qualities by name and ensures a settings row exists
	Seed(ctx context.Context) (*SeedSummary, error)
}

type setupServiceImpl struct {
	priorities port.PriorityRepository
	qualities  port.QualityRepository
	settings   SettingsService
	txManager  port.TransactionManager
	config     SeedConfig
	logger     Logger
}

// NewSetupService creates a new SetupService
func NewSetupService(
	priorities port.PriorityRepository,
	qualities port.QualityRepository,
	settings SettingsService,
	txManager port.TransactionManager,
	config SeedConfig,
	logger Logger,
) SetupService {
	return &setupServiceImpl{
		priorities: priorities,
		qualities:  qualities,
		settings:   settings,
		txManager:  txManager,
		config:     config,
		logger:     logger,
	}
}

func (s *setupServiceImpl) Seed(ctx context.Context) (*SeedSummary, error) {
	summary := &SeedSummary{}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		for i := range s.config.Priorities {
			p := s.config.Priorities[i]
			if err := s.priorities.UpsertByName(ctx, &p); err != nil {
				return fmt.Errorf("failed to seed priority %s: %w", p.Name, err)
			}
			s.logger.Info("Priority seeded", "name", p.Name, "multiplier", p.Multiplier)
			summary.Priorities++
		}
		for i := range s.config.Qualities {
			q := s.config.Qualities[i]
			if err := s.qualities.UpsertByName(ctx, &q); err != nil {
				return fmt.Errorf("failed to seed quality %s: %w", q.Name, err)
			}
			s.logger.Info("Quality seeded", "name", q.Name, "percentage", q.Percentage)
			summary.Qualities++
		}

		settings, err := s.settings.EnsureDefaults(ctx)
		if err != nil {
			return err
		}
		summary.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Evaluation system set up",
		"priorities", summary.Priorities,
		"qualities", summary.Qualities,
		"formula", summary.Settings.FormulaName,
	)
	return summary, nil
}
