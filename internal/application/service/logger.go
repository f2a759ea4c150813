package service

import (
	"context"

	"github.com/opticorai/taskeval/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher delivers lifecycle events once the producing transaction has committed
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// publishAll dispatches events in order. Handler failures are logged and never
// undo the committed change.
func publishAll(ctx context.Context, publisher EventPublisher, logger Logger, events []*event.Event) {
	if publisher == nil {
		return
	}
	for _, evt := range events {
		if err := publisher.Dispatch(ctx, evt); err != nil {
			logger.Error("Event handlers failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"task_id", evt.TaskID,
				"error", err,
			)
		}
	}
}
