package dispatcher

import (
	"context"

	"github.com/opticorai/taskeval/internal/domain/event"
)

// Handler reacts to a task lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Description string
	Handler     Handler
}

// Stats counts dispatcher activity since start
type Stats struct {
	Dispatched     int64 `json:"dispatched"`
	HandlerCalls   int64 `json:"handler_calls"`
	HandlerErrors  int64 `json:"handler_errors"`
	RecoveredPanic int64 `json:"recovered_panics"`
}
