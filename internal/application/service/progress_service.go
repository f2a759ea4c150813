package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/event"
	"github.com/opticorai/taskeval/internal/domain/progress"
)

// ProgressService computes and caches KPI-weighted employee progress
type ProgressService interface {
	// GetOrCalculate returns the cached progress for the period, computing it when
	// missing or when force is set. A zero managerID means the employee's supervisor.
	GetOrCalculate(ctx context.Context, employeeID, managerID int64, start, end *time.Time, force bool) (*entity.EmployeeProgress, error)
	// ListForManager returns progress for every employee supervised by the manager
	ListForManager(ctx context.Context, managerID int64, start, end *time.Time) ([]port.ProgressRow, error)
	// RecalculateAll force-recomputes progress for every supervised employee
	RecalculateAll(ctx context.Context, managerID int64, start, end *time.Time) ([]port.ProgressRow, error)
	// ResolvePeriod applies the default period and validates bounds
	ResolvePeriod(start, end *time.Time) (entity.Period, error)
	// AuthorizeView allows the employee and their supervising manager to read the
	// employee's progress. Only the supervisor may force a recalculation.
	AuthorizeView(ctx context.Context, actorID, employeeID int64, force bool) error
}

type progressServiceImpl struct {
	tasks      port.TaskRepository
	users      port.UserRepository
	kpis       port.KPIRepository
	progresses port.ProgressRepository
	clock      port.Clock
	publisher  EventPublisher
	logger     Logger
}

// NewProgressService creates a new ProgressService
func NewProgressService(
	tasks port.TaskRepository,
	users port.UserRepository,
	kpis port.KPIRepository,
	progresses port.ProgressRepository,
	clock port.Clock,
	publisher EventPublisher,
	logger Logger,
) ProgressService {
	return &progressServiceImpl{
		tasks:      tasks,
		users:      users,
		kpis:       kpis,
		progresses: progresses,
		clock:      clock,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *progressServiceImpl) ResolvePeriod(start, end *time.Time) (entity.Period, error) {
	return progress.NormalizePeriod(start, end, s.clock.Today())
}

func (s *progressServiceImpl) GetOrCalculate(ctx context.Context, employeeID, managerID int64, start, end *time.Time, force bool) (*entity.EmployeeProgress, error) {
	period, err := s.ResolvePeriod(start, end)
	if err != nil {
		return nil, err
	}

	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if employee == nil {
		return nil, entity.ErrUserNotFound
	}
	if managerID == 0 {
		if employee.UnderSupervisionID == nil {
			return nil, fmt.Errorf("%w: employee %d has no supervisor", entity.ErrNotPermitted, employeeID)
		}
		managerID = *employee.UnderSupervisionID
	}

	return s.getOrCalculate(ctx, employeeID, managerID, period, force)
}

func (s *progressServiceImpl) AuthorizeView(ctx context.Context, actorID, employeeID int64, force bool) error {
	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("failed to load employee: %w", err)
	}
	if employee == nil {
		return entity.ErrUserNotFound
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if actor == nil {
		return entity.ErrNotPermitted
	}

	switch {
	case actor.IsManager() && actor.Supervises(employee):
		return nil
	case actor.ID == employee.ID && !force:
		return nil
	default:
		return entity.ErrNotPermitted
	}
}

func (s *progressServiceImpl) ListForManager(ctx context.Context, managerID int64, start, end *time.Time) ([]port.ProgressRow, error) {
	return s.forSupervised(ctx, managerID, start, end, false)
}

func (s *progressServiceImpl) RecalculateAll(ctx context.Context, managerID int64, start, end *time.Time) ([]port.ProgressRow, error) {
	rows, err := s.forSupervised(ctx, managerID, start, end, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Progress recalculated", "manager_id", managerID, "employees", len(rows))
	return rows, nil
}

func (s *progressServiceImpl) forSupervised(ctx context.Context, managerID int64, start, end *time.Time, force bool) ([]port.ProgressRow, error) {
	period, err := s.ResolvePeriod(start, end)
	if err != nil {
		return nil, err
	}

	employees, err := s.users.ListSupervisedBy(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list supervised employees: %w", err)
	}

	rows := make([]port.ProgressRow, 0, len(employees))
	for _, employee := range employees {
		p, err := s.getOrCalculate(ctx, employee.ID, managerID, period, force)
		if err != nil {
			return nil, fmt.Errorf("employee %d: %w", employee.ID, err)
		}
		rows = append(rows, port.ProgressRow{Employee: employee, Progress: p})
	}
	return rows, nil
}

func (s *progressServiceImpl) getOrCalculate(ctx context.Context, employeeID, managerID int64, period entity.Period, force bool) (*entity.EmployeeProgress, error) {
	if !force {
		cached, err := s.progresses.Get(ctx, employeeID, managerID, period)
		if err != nil {
			return nil, fmt.Errorf("failed to load cached progress: %w", err)
		}
		if cached != nil {
			return cached, nil
		}
	}
	return s.calculate(ctx, employeeID, managerID, period)
}

func (s *progressServiceImpl) calculate(ctx context.Context, employeeID, managerID int64, period entity.Period) (*entity.EmployeeProgress, error) {
	kpis, err := s.kpis.ListActiveByManager(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list kpis: %w", err)
	}

	from, to := s.instantRange(period)
	tasks, err := s.tasks.ListEvaluatedForProgress(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluated tasks: %w", err)
	}

	scored := make([]progress.ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		scored = append(scored, progress.ScoredTask{
			TaskID:         t.ID,
			IssueAction:    t.IssueAction,
			KPIID:          t.KPIID,
			FinalScore:     t.FinalScore,
			CompletionDate: t.CompletionDate,
		})
	}

	p := &entity.EmployeeProgress{
		EmployeeID:   employeeID,
		ManagerID:    managerID,
		PeriodStart:  period.Start,
		PeriodEnd:    period.End,
		Breakdown:    map[string]entity.KPIBreakdown{},
		CalculatedAt: s.clock.Now(),
	}
	if result := progress.ComputeWeightedProgress(scored, kpis); result != nil {
		total := result.TotalProgressScore
		p.TotalProgressScore = &total
		p.Breakdown = result.Breakdown
	}

	if err := s.progresses.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store progress: %w", err)
	}

	payload := map[string]interface{}{
		event.KeyEmployeeID: employeeID,
		event.KeyManagerID:  managerID,
	}
	if p.TotalProgressScore != nil {
		payload[event.KeyTotalScore] = *p.TotalProgressScore
	}
	publishAll(ctx, s.publisher, s.logger, []*event.Event{
		event.NewEvent(event.TypeProgressCalculated, 0, managerID, payload),
	})

	s.logger.Info("Progress calculated",
		"employee_id", employeeID,
		"manager_id", managerID,
		"period_start", period.Start.Format(time.DateOnly),
		"period_end", period.End.Format(time.DateOnly),
		"tasks", len(scored),
	)
	return p, nil
}

// instantRange maps inclusive civil dates to [start midnight, day after end midnight) in the business timezone
func (s *progressServiceImpl) instantRange(p entity.Period) (time.Time, time.Time) {
	loc := s.clock.Location()
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return from, to
}
