package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/evaluation"
	"github.com/opticorai/taskeval/internal/domain/event"
	"github.com/opticorai/taskeval/internal/domain/workflow"
)

// EvaluationService applies the scoring formula to tasks and drives the evaluation lifecycle
type EvaluationService interface {
	// Preview runs the formula against ad-hoc inputs without touching storage
	Preview(ctx context.Context, req PreviewRequest) (*evaluation.Result, error)
	EvaluateTask(ctx context.Context, taskID, evaluatorID int64, req EvaluateRequest) (*entity.Task, error)
	CloseIncompleteTask(ctx context.Context, taskID, managerID int64, req EvaluateRequest) (*entity.Task, error)
	UpdateCompletion(ctx context.Context, taskID, actorID int64, percentage float64) (*entity.Task, error)
	SubmitWork(ctx context.Context, taskID, employeeID int64, submission string) (*entity.Task, error)
	ChangeQuality(ctx context.Context, taskID, actorID, qualityID int64) (*entity.Task, error)
}

// PreviewRequest carries ad-hoc formula inputs. Settings falls back to the stored settings.
type PreviewRequest struct {
	QualityPercentage    *float64                   `json:"quality_percentage"`
	PriorityMultiplier   *float64                   `json:"priority_multiplier"`
	TargetDate           *time.Time                 `json:"target_date"`
	CompletionDate       *time.Time                 `json:"completion_date"`
	PercentageCompletion float64                    `json:"percentage_completion"`
	ManagerClosure       bool                       `json:"manager_closure"`
	Settings             *entity.EvaluationSettings `json:"settings,omitempty"`
}

// EvaluateRequest is the manager's evaluation form. CloseDate defaults to today.
type EvaluateRequest struct {
	QualityID *int64     `json:"quality_id"`
	CloseDate *time.Time `json:"close_date"`
	Comments  string     `json:"comments"`
}

// CanEvaluate reports whether evaluator may score tasks of responsible: only
// the manager the employee reports to directly.
func CanEvaluate(evaluator, responsible *entity.User) bool {
	if evaluator == nil || responsible == nil {
		return false
	}
	return evaluator.IsManager() && evaluator.Supervises(responsible)
}

// EvaluationServiceDeps groups the collaborators of the evaluation service.
// Audit receives one structured entry per applied evaluation; it defaults to Logger.
type EvaluationServiceDeps struct {
	Tasks      port.TaskRepository
	Users      port.UserRepository
	Qualities  port.QualityRepository
	Priorities port.PriorityRepository
	Settings   SettingsService
	TxManager  port.TransactionManager
	Clock      port.Clock
	Publisher  EventPublisher
	Engine     *evaluation.Engine
	Logger     Logger
	Audit      Logger
}

type evaluationServiceImpl struct {
	tasks      port.TaskRepository
	users      port.UserRepository
	qualities  port.QualityRepository
	priorities port.PriorityRepository
	settings   SettingsService
	txManager  port.TransactionManager
	clock      port.Clock
	publisher  EventPublisher
	engine     *evaluation.Engine
	logger     Logger
	audit      Logger
}

// NewEvaluationService creates a new EvaluationService
func NewEvaluationService(deps EvaluationServiceDeps) EvaluationService {
	engine := deps.Engine
	if engine == nil {
		engine = evaluation.NewEngine()
	}
	audit := deps.Audit
	if audit == nil {
		audit = deps.Logger
	}
	return &evaluationServiceImpl{
		tasks:      deps.Tasks,
		users:      deps.Users,
		qualities:  deps.Qualities,
		priorities: deps.Priorities,
		settings:   deps.Settings,
		txManager:  deps.TxManager,
		clock:      deps.Clock,
		publisher:  deps.Publisher,
		engine:     engine,
		logger:     deps.Logger,
		audit:      audit,
	}
}

func (s *evaluationServiceImpl) Preview(ctx context.Context, req PreviewRequest) (*evaluation.Result, error) {
	var settings entity.EvaluationSettings
	if req.Settings != nil {
		if err := req.Settings.Validate(); err != nil {
			return nil, err
		}
		settings = *req.Settings
	} else {
		stored, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		settings = stored
	}

	in := evaluation.Input{
		QualityPercentage:    req.QualityPercentage,
		PriorityMultiplier:   req.PriorityMultiplier,
		TargetDate:           req.TargetDate,
		CompletionDate:       req.CompletionDate,
		PercentageCompletion: req.PercentageCompletion,
	}
	result := s.engine.Compute(in, settings, req.ManagerClosure)
	if result == nil {
		return nil, entity.ErrQualityRequired
	}
	return result, nil
}

func (s *evaluationServiceImpl) EvaluateTask(ctx context.Context, taskID, evaluatorID int64, req EvaluateRequest) (*entity.Task, error) {
	var (
		task   *entity.Task
		events []*event.Event
	)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.loadTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, task, evaluatorID); err != nil {
			return err
		}
		if task.IsEvaluated() {
			return entity.ErrAlreadyEvaluated
		}
		if err := workflow.TaskLifecycle(task).Fire(ctx, workflow.TriggerEvaluate); err != nil {
			return err
		}

		if req.QualityID != nil {
			task.QualityID = req.QualityID
		}
		oldStatus := task.Status
		task.PercentageCompletion = entity.FullCompletion
		task.Status = entity.TaskStatusClosed
		s.setClosure(task, req.CloseDate)
		task.EvaluationComments = req.Comments

		result, err := s.apply(ctx, task, &evaluatorID, false)
		if err != nil {
			return err
		}
		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		events = append(events, event.NewEvent(event.TypeTaskEvaluated, task.ID, evaluatorID, map[string]interface{}{
			event.KeyFinalScore:    result.FinalScore,
			event.KeyResponsibleID: task.ResponsibleID,
			event.KeyIssueAction:   task.IssueAction,
		}))
		if oldStatus != task.Status {
			events = append(events, statusChangedEvent(task, evaluatorID, oldStatus))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task evaluated",
		"task_id", task.ID,
		"evaluator_id", evaluatorID,
		"final_score", *task.FinalScore,
	)
	publishAll(ctx, s.publisher, s.logger, events)
	return task, nil
}

func (s *evaluationServiceImpl) CloseIncompleteTask(ctx context.Context, taskID, managerID int64, req EvaluateRequest) (*entity.Task, error) {
	var (
		task   *entity.Task
		events []*event.Event
	)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.loadTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, task, managerID); err != nil {
			return err
		}
		if task.IsComplete() {
			return entity.ErrAlreadyComplete
		}
		if task.IsEvaluated() {
			return entity.ErrAlreadyEvaluated
		}
		if err := workflow.TaskLifecycle(task).Fire(ctx, workflow.TriggerCloseIncomplete); err != nil {
			return err
		}

		if req.QualityID != nil {
			task.QualityID = req.QualityID
		}
		oldStatus := task.Status
		task.Status = entity.TaskStatusClosed
		s.setClosure(task, req.CloseDate)
		task.EvaluationComments = req.Comments

		result, err := s.apply(ctx, task, &managerID, true)
		if err != nil {
			return err
		}
		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		events = append(events, event.NewEvent(event.TypeTaskClosedByManager, task.ID, managerID, map[string]interface{}{
			event.KeyFinalScore:     result.FinalScore,
			event.KeyResponsibleID:  task.ResponsibleID,
			event.KeyIssueAction:    task.IssueAction,
			event.KeyManagerClosure: result.ManagerClosurePenaltyApplied,
		}))
		if oldStatus != task.Status {
			events = append(events, statusChangedEvent(task, managerID, oldStatus))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Incomplete task closed by manager",
		"task_id", task.ID,
		"manager_id", managerID,
		"completion", task.PercentageCompletion,
		"final_score", *task.FinalScore,
		"penalty_applied", task.ManagerClosurePenaltyApplied,
	)
	publishAll(ctx, s.publisher, s.logger, events)
	return task, nil
}

func (s *evaluationServiceImpl) UpdateCompletion(ctx context.Context, taskID, actorID int64, percentage float64) (*entity.Task, error) {
	if percentage < 0 || percentage > entity.FullCompletion {
		return nil, entity.ErrInvalidCompletion
	}

	var (
		task   *entity.Task
		events []*event.Event
	)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.loadTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.ResponsibleID != actorID {
			if err := s.authorize(ctx, task, actorID); err != nil {
				return err
			}
		}
		if task.IsEvaluated() {
			return entity.ErrAlreadyEvaluated
		}

		oldStatus := task.Status
		task.PercentageCompletion = percentage
		if task.IsComplete() && task.CompletionDate == nil {
			now := s.clock.Now()
			task.CompletionDate = &now
		}
		task.Status = evaluation.ComputeStatus(task.PercentageCompletion, task.TargetDate, s.clock.Today())

		evt, err := s.autoEvaluate(ctx, task)
		if err != nil {
			return err
		}
		if evt != nil {
			events = append(events, evt)
		}

		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if oldStatus != task.Status {
			events = append(events, statusChangedEvent(task, actorID, oldStatus))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task completion updated",
		"task_id", task.ID,
		"actor_id", actorID,
		"completion", task.PercentageCompletion,
		"status", task.Status,
	)
	publishAll(ctx, s.publisher, s.logger, events)
	return task, nil
}

func (s *evaluationServiceImpl) SubmitWork(ctx context.Context, taskID, employeeID int64, submission string) (*entity.Task, error) {
	var task *entity.Task

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.loadTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.ResponsibleID != employeeID {
			return entity.ErrNotPermitted
		}
		if err := workflow.TaskLifecycle(task).Fire(ctx, workflow.TriggerSubmit); err != nil {
			return err
		}

		now := s.clock.Now()
		task.EmployeeSubmission = submission
		task.EmployeeSubmittedAt = &now

		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Work submitted", "task_id", task.ID, "employee_id", employeeID)
	publishAll(ctx, s.publisher, s.logger, []*event.Event{
		event.NewEvent(event.TypeTaskSubmitted, task.ID, employeeID, map[string]interface{}{
			event.KeyResponsibleID: task.ResponsibleID,
			event.KeyIssueAction:   task.IssueAction,
		}),
	})
	return task, nil
}

func (s *evaluationServiceImpl) ChangeQuality(ctx context.Context, taskID, actorID, qualityID int64) (*entity.Task, error) {
	var (
		task   *entity.Task
		events []*event.Event
	)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.loadTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, task, actorID); err != nil {
			return err
		}
		quality, err := s.qualities.GetByID(ctx, qualityID)
		if err != nil {
			return fmt.Errorf("failed to load quality type: %w", err)
		}
		if quality == nil {
			return entity.ErrQualityNotFound
		}
		if task.QualityID != nil && *task.QualityID == qualityID {
			return nil
		}
		task.QualityID = &qualityID

		switch {
		case task.IsComplete() && task.IsEvaluated():
			if err := workflow.TaskLifecycle(task).Fire(ctx, workflow.TriggerReevaluate); err != nil {
				return err
			}
			result, err := s.apply(ctx, task, &actorID, false)
			if err != nil {
				return err
			}
			events = append(events, event.NewEvent(event.TypeTaskReevaluated, task.ID, actorID, map[string]interface{}{
				event.KeyFinalScore:    result.FinalScore,
				event.KeyResponsibleID: task.ResponsibleID,
				event.KeyIssueAction:   task.IssueAction,
			}))
		default:
			evt, err := s.autoEvaluate(ctx, task)
			if err != nil {
				return err
			}
			if evt != nil {
				events = append(events, evt)
			}
		}

		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task quality changed", "task_id", task.ID, "quality_id", qualityID)
	publishAll(ctx, s.publisher, s.logger, events)
	return task, nil
}

// autoEvaluate scores a task that reached full completion with a quality
// rating while still pending. It returns nil when nothing applies.
func (s *evaluationServiceImpl) autoEvaluate(ctx context.Context, task *entity.Task) (*event.Event, error) {
	if !task.IsComplete() || task.QualityID == nil || task.IsEvaluated() {
		return nil, nil
	}
	if err := workflow.TaskLifecycle(task).Fire(ctx, workflow.TriggerEvaluate); err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, task, nil, false)
	if err != nil {
		return nil, err
	}
	return event.NewEvent(event.TypeTaskEvaluated, task.ID, 0, map[string]interface{}{
		event.KeyFinalScore:    result.FinalScore,
		event.KeyResponsibleID: task.ResponsibleID,
		event.KeyIssueAction:   task.IssueAction,
	}), nil
}

// apply runs the engine and writes the derived fields onto task. The caller persists it.
func (s *evaluationServiceImpl) apply(ctx context.Context, task *entity.Task, evaluatorID *int64, managerClosure bool) (*evaluation.Result, error) {
	if task.QualityID == nil {
		return nil, entity.ErrQualityRequired
	}
	quality, err := s.qualities.GetByID(ctx, *task.QualityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quality type: %w", err)
	}
	if quality == nil {
		return nil, entity.ErrQualityNotFound
	}

	var priority *entity.PriorityType
	if task.PriorityID != nil {
		priority, err = s.priorities.GetByID(ctx, *task.PriorityID)
		if err != nil {
			return nil, fmt.Errorf("failed to load priority type: %w", err)
		}
		if priority == nil {
			return nil, entity.ErrPriorityNotFound
		}
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	in := evaluation.InputFromTask(task, quality, priority, s.clock.Location())
	result := s.engine.Compute(in, settings, managerClosure)
	if result == nil {
		return nil, entity.ErrQualityRequired
	}

	score, multiplier, adjustment, final := result.QualityScore, result.PriorityMultiplier, result.TimeBonusPenalty, result.FinalScore
	task.QualityScoreCalculated = &score
	task.PriorityMultiplier = &multiplier
	task.TimeBonusPenalty = &adjustment
	task.FinalScore = &final
	task.ManagerClosurePenaltyApplied = result.ManagerClosurePenaltyApplied
	task.EvaluationStatus = entity.EvaluationStatusEvaluated
	now := s.clock.Now()
	task.EvaluatedDate = &now
	task.EvaluatedByID = evaluatorID

	evaluator := int64(0)
	if evaluatorID != nil {
		evaluator = *evaluatorID
	}
	s.audit.Info("task_evaluated",
		"task_id", task.ID,
		"responsible_id", task.ResponsibleID,
		"evaluator_id", evaluator,
		"quality_id", *task.QualityID,
		"quality_score", result.QualityScore,
		"priority_multiplier", result.PriorityMultiplier,
		"time_bonus_penalty", result.TimeBonusPenalty,
		"manager_closure", managerClosure,
		"manager_closure_penalty_applied", result.ManagerClosurePenaltyApplied,
		"final_score", result.FinalScore,
		"applied_terms", result.AppliedTerms,
		"formula", settings.FormulaName,
	)
	return result, nil
}

// setClosure stamps the close date (default today) and sets the completion
// instant to noon of that day in the business timezone.
func (s *evaluationServiceImpl) setClosure(task *entity.Task, closeDate *time.Time) {
	day := evaluation.CivilDate(s.clock.Today())
	if closeDate != nil {
		day = evaluation.CivilDate(*closeDate)
	}
	task.CloseDate = &day

	loc := s.clock.Location()
	if loc == nil {
		loc = time.UTC
	}
	completion := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
	task.CompletionDate = &completion
}

func (s *evaluationServiceImpl) loadTask(ctx context.Context, id int64) (*entity.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}
	return task, nil
}

func (s *evaluationServiceImpl) loadUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, entity.ErrUserNotFound
	}
	return user, nil
}

// authorize requires actorID to be the direct manager of the task's responsible employee
func (s *evaluationServiceImpl) authorize(ctx context.Context, task *entity.Task, actorID int64) error {
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return err
	}
	responsible, err := s.loadUser(ctx, task.ResponsibleID)
	if err != nil {
		return err
	}
	if !CanEvaluate(actor, responsible) {
		return entity.ErrNotPermitted
	}
	return nil
}

func statusChangedEvent(task *entity.Task, actorID int64, oldStatus string) *event.Event {
	return event.NewEvent(event.TypeTaskStatusChanged, task.ID, actorID, map[string]interface{}{
		event.KeyOldStatus:     oldStatus,
		event.KeyNewStatus:     task.Status,
		event.KeyResponsibleID: task.ResponsibleID,
		event.KeyIssueAction:   task.IssueAction,
	})
}
