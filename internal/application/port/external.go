package port

import (
	"context"
	"io"
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// Clock resolves "now" and civil "today" in the business timezone
type Clock interface {
	Now() time.Time
	Today() time.Time
	Location() *time.Location
}

// Mailer delivers plain-text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// InstantMessenger delivers a text message to a chat user
type InstantMessenger interface {
	SendText(ctx context.Context, openID, text string) error
}

// DocumentInspector reads metadata from uploaded documents
type DocumentInspector interface {
	// PageCount returns the number of pages of a PDF document
	PageCount(content []byte) (int, error)
}

// ProgressRow is one employee's progress line in an export
type ProgressRow struct {
	Employee *entity.User
	Progress *entity.EmployeeProgress
}

// ProgressReport is the data rendered by a ReportWriter
type ProgressReport struct {
	Manager     *entity.User
	Period      entity.Period
	GeneratedAt time.Time
	Rows        []ProgressRow
}

// ReportWriter renders progress reports into a file format
type ReportWriter interface {
	Format() string
	ContentType() string
	Write(w io.Writer, report *ProgressReport) error
}

// EvaluationMetrics records evaluation and progress outcomes
type EvaluationMetrics interface {
	ObserveEvaluation(kind string, finalScore float64)
	ObserveProgress(score float64)
	ObserveNotification(channel string, err error)
	SetStatusUpdates(n int)
}
