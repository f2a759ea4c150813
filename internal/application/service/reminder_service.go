package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/evaluation"
)

// ReminderPolicy sets how far ahead and behind reminders look
type ReminderPolicy struct {
	DaysBeforeDue       int
	DaysAfterSubmission int
}

// DefaultReminderPolicy reminds five days before the target date and five days after submission
func DefaultReminderPolicy() ReminderPolicy {
	return ReminderPolicy{DaysBeforeDue: 5, DaysAfterSubmission: 5}
}

// ReminderSummary counts reminders sent by one SendDue run
type ReminderSummary struct {
	DueSoon            int `json:"due_soon"`
	AwaitingEvaluation int `json:"awaiting_evaluation"`
	Scheduled          int `json:"scheduled"`
}

// Total returns the number of reminders sent
func (s ReminderSummary) Total() int {
	return s.DueSoon + s.AwaitingEvaluation + s.Scheduled
}

// ReminderService sends due-date, pending-evaluation and scheduled reminders
type ReminderService interface {
	SendDue(ctx context.Context) (ReminderSummary, error)
	Schedule(ctx context.Context, taskID, recipientID int64, day time.Time, message string, createdByID int64) (*entity.TaskReminder, error)
}

type reminderServiceImpl struct {
	tasks     port.TaskRepository
	users     port.UserRepository
	reminders port.ReminderRepository
	notifier  NotificationService
	clock     port.Clock
	policy    ReminderPolicy
	logger    Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	tasks port.TaskRepository,
	users port.UserRepository,
	reminders port.ReminderRepository,
	notifier NotificationService,
	clock port.Clock,
	policy ReminderPolicy,
	logger Logger,
) ReminderService {
	return &reminderServiceImpl{
		tasks:     tasks,
		users:     users,
		reminders: reminders,
		notifier:  notifier,
		clock:     clock,
		policy:    policy,
		logger:    logger,
	}
}

func (s *reminderServiceImpl) SendDue(ctx context.Context) (ReminderSummary, error) {
	var summary ReminderSummary
	today := evaluation.CivilDate(s.clock.Today())

	n, err := s.sendDueSoon(ctx, today)
	if err != nil {
		return summary, err
	}
	summary.DueSoon = n

	n, err = s.sendAwaitingEvaluation(ctx, today)
	if err != nil {
		return summary, err
	}
	summary.AwaitingEvaluation = n

	n, err = s.sendScheduled(ctx, today)
	if err != nil {
		return summary, err
	}
	summary.Scheduled = n

	s.logger.Info("Reminders sent",
		"due_soon", summary.DueSoon,
		"awaiting_evaluation", summary.AwaitingEvaluation,
		"scheduled", summary.Scheduled,
	)
	return summary, nil
}

// sendDueSoon notifies employees whose incomplete task is due in DaysBeforeDue days
func (s *reminderServiceImpl) sendDueSoon(ctx context.Context, today time.Time) (int, error) {
	target := today.AddDate(0, 0, s.policy.DaysBeforeDue)
	tasks, err := s.tasks.List(ctx, entity.TaskFilter{Incomplete: true, TargetDate: &target})
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks due soon: %w", err)
	}

	sent := 0
	for _, task := range tasks {
		msg := dueSoonMessage(task.IssueAction, target, s.policy.DaysBeforeDue)
		if _, err := s.notifier.Notify(ctx, task.ResponsibleID, nil, msg, TaskLink(task.ID)); err != nil {
			s.logger.Error("Failed to send due date reminder", "task_id", task.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// sendAwaitingEvaluation notifies the supervisor of work submitted exactly
// DaysAfterSubmission days ago that is still waiting for evaluation
func (s *reminderServiceImpl) sendAwaitingEvaluation(ctx context.Context, today time.Time) (int, error) {
	submittedOn := today.AddDate(0, 0, -s.policy.DaysAfterSubmission)
	loc := s.clock.Location()
	if loc == nil {
		loc = time.UTC
	}
	before := time.Date(submittedOn.Year(), submittedOn.Month(), submittedOn.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	tasks, err := s.tasks.List(ctx, entity.TaskFilter{
		EvaluationStatus: entity.EvaluationStatusPending,
		SubmittedBefore:  &before,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks awaiting evaluation: %w", err)
	}

	sent := 0
	for _, task := range tasks {
		if task.EmployeeSubmittedAt == nil {
			continue
		}
		if !evaluation.CivilDate(task.EmployeeSubmittedAt.In(loc)).Equal(submittedOn) {
			continue
		}

		employee, err := s.users.GetByID(ctx, task.ResponsibleID)
		if err != nil {
			return sent, fmt.Errorf("failed to load employee: %w", err)
		}
		if employee == nil || employee.UnderSupervisionID == nil {
			continue
		}

		msg := awaitingEvaluationMessage(task.IssueAction, employee.FullName())
		if _, err := s.notifier.Notify(ctx, *employee.UnderSupervisionID, &employee.ID, msg, TaskLink(task.ID)); err != nil {
			s.logger.Error("Failed to send evaluation reminder", "task_id", task.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// sendScheduled delivers one-off reminders due today or earlier and marks them sent
func (s *reminderServiceImpl) sendScheduled(ctx context.Context, today time.Time) (int, error) {
	due, err := s.reminders.ListDue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled reminders: %w", err)
	}

	sent := 0
	for _, r := range due {
		msg := strings.TrimSpace(r.Message)
		if msg == "" {
			task, err := s.tasks.GetByID(ctx, r.TaskID)
			if err != nil {
				return sent, fmt.Errorf("failed to load task: %w", err)
			}
			issue := ""
			if task != nil {
				issue = task.IssueAction
			}
			msg = scheduledReminderMessage(issue, r.ScheduledFor)
		}

		if _, err := s.notifier.Notify(ctx, r.RecipientID, r.CreatedByID, msg, TaskLink(r.TaskID)); err != nil {
			s.logger.Error("Failed to send scheduled reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		if err := s.reminders.MarkSent(ctx, r.ID, s.clock.Now()); err != nil {
			return sent, fmt.Errorf("failed to mark reminder %d sent: %w", r.ID, err)
		}
		sent++
	}
	return sent, nil
}

func (s *reminderServiceImpl) Schedule(ctx context.Context, taskID, recipientID int64, day time.Time, message string, createdByID int64) (*entity.TaskReminder, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}
	if recipient == nil {
		return nil, entity.ErrUserNotFound
	}

	reminder := &entity.TaskReminder{
		TaskID:       taskID,
		RecipientID:  recipientID,
		ScheduledFor: evaluation.CivilDate(day),
		Message:      strings.TrimSpace(message),
		CreatedByID:  &createdByID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.reminders.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.logger.Info("Reminder scheduled",
		"reminder_id", reminder.ID,
		"task_id", taskID,
		"recipient_id", recipientID,
		"scheduled_for", reminder.ScheduledFor.Format(time.DateOnly),
	)
	return reminder, nil
}
