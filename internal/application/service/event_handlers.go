package service

import (
	"context"
	"fmt"

	"github.com/opticorai/taskeval/internal/application/dispatcher"
	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/event"
)

// Evaluation kinds reported to metrics
const (
	EvaluationKindStandard       = "standard"
	EvaluationKindManagerClosure = "manager_closure"
	EvaluationKindReevaluation   = "reevaluation"
)

// EventHandlers turns lifecycle events into notifications and metrics
type EventHandlers struct {
	notifier NotificationService
	users    port.UserRepository
	metrics  port.EvaluationMetrics
	logger   Logger
}

// NewEventHandlers creates handlers. metrics may be nil.
func NewEventHandlers(notifier NotificationService, users port.UserRepository, metrics port.EvaluationMetrics, logger Logger) *EventHandlers {
	return &EventHandlers{
		notifier: notifier,
		users:    users,
		metrics:  metrics,
		logger:   logger,
	}
}

// Register subscribes every handler to d
func (h *EventHandlers) Register(d dispatcher.Dispatcher) {
	d.SubscribeWithDescription(event.TypeTaskEvaluated, "notify-evaluated",
		"tells the employee their final score", h.onEvaluated)
	d.SubscribeWithDescription(event.TypeTaskClosedByManager, "notify-closed-by-manager",
		"tells the employee their incomplete task was closed", h.onClosedByManager)
	d.SubscribeWithDescription(event.TypeTaskReevaluated, "notify-reevaluated",
		"tells the employee their score changed", h.onReevaluated)
	d.SubscribeWithDescription(event.TypeTaskStatusChanged, "notify-status-changed",
		"tells the employee their task status changed", h.onStatusChanged)
	d.SubscribeWithDescription(event.TypeTaskSubmitted, "notify-submitted",
		"tells the supervisor that work was submitted", h.onSubmitted)
	d.SubscribeAll("metrics", h.observe)
}

func (h *EventHandlers) onEvaluated(ctx context.Context, evt *event.Event) error {
	msg := evaluatedMessage(evt.GetPayloadString(event.KeyIssueAction), evt.GetPayloadFloat(event.KeyFinalScore))
	return h.notifyResponsible(ctx, evt, msg)
}

func (h *EventHandlers) onClosedByManager(ctx context.Context, evt *event.Event) error {
	msg := closedByManagerMessage(
		evt.GetPayloadString(event.KeyIssueAction),
		evt.GetPayloadFloat(event.KeyFinalScore),
		evt.GetPayloadBool(event.KeyManagerClosure),
	)
	return h.notifyResponsible(ctx, evt, msg)
}

func (h *EventHandlers) onReevaluated(ctx context.Context, evt *event.Event) error {
	msg := reevaluatedMessage(evt.GetPayloadString(event.KeyIssueAction), evt.GetPayloadFloat(event.KeyFinalScore))
	return h.notifyResponsible(ctx, evt, msg)
}

func (h *EventHandlers) onStatusChanged(ctx context.Context, evt *event.Event) error {
	msg := statusChangedMessage(evt.GetPayloadString(event.KeyIssueAction), evt.GetPayloadString(event.KeyNewStatus))
	if msg == "" {
		return nil
	}
	recipient := evt.GetPayloadInt(event.KeyResponsibleID)
	_, err := h.notifier.Notify(ctx, recipient, nil, msg, TaskLink(evt.TaskID))
	return err
}

func (h *EventHandlers) onSubmitted(ctx context.Context, evt *event.Event) error {
	employee, err := h.users.GetByID(ctx, evt.GetPayloadInt(event.KeyResponsibleID))
	if err != nil {
		return fmt.Errorf("failed to load employee: %w", err)
	}
	if employee == nil || employee.UnderSupervisionID == nil {
		return nil
	}
	msg := submittedMessage(employee.FullName(), evt.GetPayloadString(event.KeyIssueAction))
	_, err = h.notifier.Notify(ctx, *employee.UnderSupervisionID, &employee.ID, msg, TaskLink(evt.TaskID))
	return err
}

func (h *EventHandlers) observe(_ context.Context, evt *event.Event) error {
	if h.metrics == nil {
		return nil
	}
	switch evt.Type {
	case event.TypeTaskEvaluated:
		h.metrics.ObserveEvaluation(EvaluationKindStandard, evt.GetPayloadFloat(event.KeyFinalScore))
	case event.TypeTaskClosedByManager:
		h.metrics.ObserveEvaluation(EvaluationKindManagerClosure, evt.GetPayloadFloat(event.KeyFinalScore))
	case event.TypeTaskReevaluated:
		h.metrics.ObserveEvaluation(EvaluationKindReevaluation, evt.GetPayloadFloat(event.KeyFinalScore))
	case event.TypeProgressCalculated:
		if _, ok := evt.Payload[event.KeyTotalScore]; ok {
			h.metrics.ObserveProgress(evt.GetPayloadFloat(event.KeyTotalScore))
		}
	}
	return nil
}

// notifyResponsible sends msg to the task's responsible employee with the actor as sender
func (h *EventHandlers) notifyResponsible(ctx context.Context, evt *event.Event, msg string) error {
	recipient := evt.GetPayloadInt(event.KeyResponsibleID)
	var sender *int64
	if evt.ActorID != 0 {
		actor := evt.ActorID
		sender = &actor
	}
	_, err := h.notifier.Notify(ctx, recipient, sender, msg, TaskLink(evt.TaskID))
	return err
}
