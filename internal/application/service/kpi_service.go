package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/progress"
)

// KPIRequest is the editable part of a KPI. A nil IsActive keeps the current value
// on update and defaults to active on create.
type KPIRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	IsActive    *bool   `json:"is_active"`
}

// KPIService manages a manager's weighted KPIs
type KPIService interface {
	Create(ctx context.Context, managerID int64, req KPIRequest) (*entity.KPI, error)
	Update(ctx context.Context, managerID, kpiID int64, req KPIRequest) (*entity.KPI, error)
	ListActive(ctx context.Context, managerID int64) ([]entity.KPI, error)
	// AvailableWeight returns how much weight the manager can still assign to active KPIs
	AvailableWeight(ctx context.Context, managerID int64) (float64, error)
}

type kpiServiceImpl struct {
	kpis      port.KPIRepository
	users     port.UserRepository
	txManager port.TransactionManager
	clock     port.Clock
	logger    Logger
}

// NewKPIService creates a new KPIService
func NewKPIService(
	kpis port.KPIRepository,
	users port.UserRepository,
	txManager port.TransactionManager,
	clock port.Clock,
	logger Logger,
) KPIService {
	return &kpiServiceImpl{
		kpis:      kpis,
		users:     users,
		txManager: txManager,
		clock:     clock,
		logger:    logger,
	}
}

func (s *kpiServiceImpl) Create(ctx context.Context, managerID int64, req KPIRequest) (*entity.KPI, error) {
	if err := validateKPIRequest(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	kpi := &entity.KPI{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Weight:      req.Weight,
		CreatedByID: managerID,
		IsActive:    req.IsActive == nil || *req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireManager(ctx, managerID); err != nil {
			return err
		}
		if kpi.IsActive {
			if err := s.checkWeight(ctx, managerID, 0, kpi.Weight); err != nil {
				return err
			}
		}
		if err := s.kpis.Create(ctx, kpi); err != nil {
			return fmt.Errorf("failed to create kpi: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("KPI created", "kpi_id", kpi.ID, "manager_id", managerID, "weight", kpi.Weight)
	return kpi, nil
}

func (s *kpiServiceImpl) Update(ctx context.Context, managerID, kpiID int64, req KPIRequest) (*entity.KPI, error) {
	if err := validateKPIRequest(req); err != nil {
		return nil, err
	}

	var kpi *entity.KPI
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		kpi, err = s.kpis.GetByID(ctx, kpiID)
		if err != nil {
			return fmt.Errorf("failed to load kpi: %w", err)
		}
		if kpi == nil {
			return entity.ErrKPINotFound
		}
		if kpi.CreatedByID != managerID {
			return entity.ErrNotPermitted
		}

		kpi.Name = strings.TrimSpace(req.Name)
		kpi.Description = strings.TrimSpace(req.Description)
		kpi.Weight = req.Weight
		if req.IsActive != nil {
			kpi.IsActive = *req.IsActive
		}
		kpi.UpdatedAt = s.clock.Now()

		if kpi.IsActive {
			if err := s.checkWeight(ctx, managerID, kpi.ID, kpi.Weight); err != nil {
				return err
			}
		}
		if err := s.kpis.Update(ctx, kpi); err != nil {
			return fmt.Errorf("failed to update kpi: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("KPI updated", "kpi_id", kpi.ID, "manager_id", managerID, "weight", kpi.Weight, "active", kpi.IsActive)
	return kpi, nil
}

func (s *kpiServiceImpl) ListActive(ctx context.Context, managerID int64) ([]entity.KPI, error) {
	return s.kpis.ListActiveByManager(ctx, managerID)
}

func (s *kpiServiceImpl) AvailableWeight(ctx context.Context, managerID int64) (float64, error) {
	total, err := s.kpis.SumActiveWeight(ctx, managerID, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to sum kpi weights: %w", err)
	}
	available := entity.MaxKPIWeightTotal - total
	if available < 0 {
		available = 0
	}
	return progress.Round2(available), nil
}

// checkWeight rejects weight when the manager's other active KPIs leave no room for it
func (s *kpiServiceImpl) checkWeight(ctx context.Context, managerID, excludeID int64, weight float64) error {
	others, err := s.kpis.SumActiveWeight(ctx, managerID, excludeID)
	if err != nil {
		return fmt.Errorf("failed to sum kpi weights: %w", err)
	}
	if progress.Round2(others+weight) > entity.MaxKPIWeightTotal {
		return fmt.Errorf("%w: %.2f already assigned, %.2f requested", entity.ErrKPIWeightExceeded, others, weight)
	}
	return nil
}

func (s *kpiServiceImpl) requireManager(ctx context.Context, managerID int64) error {
	manager, err := s.users.GetByID(ctx, managerID)
	if err != nil {
		return fmt.Errorf("failed to load manager: %w", err)
	}
	if manager == nil {
		return entity.ErrUserNotFound
	}
	if !manager.IsManager() {
		return entity.ErrNotPermitted
	}
	return nil
}

func validateKPIRequest(req KPIRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", entity.ErrInvalidKPI)
	}
	if req.Weight < 0 || req.Weight > entity.MaxKPIWeightTotal {
		return fmt.Errorf("%w: weight must be between 0 and 100", entity.ErrInvalidKPI)
	}
	return nil
}
