package service

import (
	"context"
	"fmt"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/evaluation"
)

// StatusSummary counts status transitions made by one UpdateAll run
type StatusSummary struct {
	Closed       int `json:"closed"`
	Due          int `json:"due"`
	Open         int `json:"open"`
	TotalUpdated int `json:"total_updated"`
}

// TaskStatusService keeps stored task statuses in line with completion and target dates
type TaskStatusService interface {
	UpdateAll(ctx context.Context) (StatusSummary, error)
}

type taskStatusServiceImpl struct {
	tasks    port.TaskRepository
	notifier NotificationService
	metrics  port.EvaluationMetrics
	clock    port.Clock
	logger   Logger
}

// NewTaskStatusService creates a new TaskStatusService. metrics may be nil.
func NewTaskStatusService(
	tasks port.TaskRepository,
	notifier NotificationService,
	metrics port.EvaluationMetrics,
	clock port.Clock,
	logger Logger,
) TaskStatusService {
	return &taskStatusServiceImpl{
		tasks:    tasks,
		notifier: notifier,
		metrics:  metrics,
		clock:    clock,
		logger:   logger,
	}
}

// UpdateAll recomputes the status of every open or due task. Closed tasks are
// left alone so that a manager-closed task never reopens.
func (s *taskStatusServiceImpl) UpdateAll(ctx context.Context) (StatusSummary, error) {
	var summary StatusSummary
	today := s.clock.Today()

	for _, status := range []string{entity.TaskStatusOpen, entity.TaskStatusDue} {
		tasks, err := s.tasks.List(ctx, entity.TaskFilter{Status: status})
		if err != nil {
			return summary, fmt.Errorf("failed to list %s tasks: %w", status, err)
		}

		for _, task := range tasks {
			next := evaluation.ComputeStatus(task.PercentageCompletion, task.TargetDate, today)
			if next == task.Status {
				continue
			}
			if err := s.tasks.UpdateStatus(ctx, task.ID, next); err != nil {
				return summary, fmt.Errorf("failed to update status of task %d: %w", task.ID, err)
			}

			switch next {
			case entity.TaskStatusClosed:
				summary.Closed++
			case entity.TaskStatusDue:
				summary.Due++
			case entity.TaskStatusOpen:
				summary.Open++
			}
			summary.TotalUpdated++

			if _, err := s.notifier.Notify(ctx, task.ResponsibleID, nil, bulkStatusMessage(task.IssueAction, next), TaskLink(task.ID)); err != nil {
				s.logger.Error("Failed to notify status change", "task_id", task.ID, "error", err)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.SetStatusUpdates(summary.TotalUpdated)
	}
	s.logger.Info("Task statuses updated",
		"closed", summary.Closed,
		"due", summary.Due,
		"open", summary.Open,
		"total_updated", summary.TotalUpdated,
	)
	return summary, nil
}
