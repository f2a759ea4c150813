package port

import (
	"context"
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// TransactionManager runs fn inside a transaction carried by the context
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TaskRepository defines persistence operations for Task
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error)
	// ListEvaluatedForProgress returns closed, evaluated tasks of the employee that have a
	// final score and a completion instant in [from, to).
	ListEvaluatedForProgress(ctx context.Context, employeeID int64, from, to time.Time) ([]*entity.Task, error)
	Update(ctx context.Context, task *entity.Task) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	// UpdateFileUpload changes only the stored attachment path
	UpdateFileUpload(ctx context.Context, id int64, path string) error
}

// UserRepository defines read operations for users
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	ListSupervisedBy(ctx context.Context, managerID int64) ([]*entity.User, error)
}

// QualityRepository defines persistence operations for QualityType
type QualityRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.QualityType, error)
	List(ctx context.Context) ([]*entity.QualityType, error)
	UpsertByName(ctx context.Context, q *entity.QualityType) error
}

// PriorityRepository defines persistence operations for PriorityType
type PriorityRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.PriorityType, error)
	List(ctx context.Context) ([]*entity.PriorityType, error)
	UpsertByName(ctx context.Context, p *entity.PriorityType) error
}

// KPIRepository defines persistence operations for KPI
type KPIRepository interface {
	Create(ctx context.Context, kpi *entity.KPI) error
	GetByID(ctx context.Context, id int64) (*entity.KPI, error)
	Update(ctx context.Context, kpi *entity.KPI) error
	ListActiveByManager(ctx context.Context, managerID int64) ([]entity.KPI, error)
	// SumActiveWeight totals active KPI weights of the manager, skipping excludeID when non-zero
	SumActiveWeight(ctx context.Context, managerID, excludeID int64) (float64, error)
}

// SettingsRepository stores the single evaluation settings row
type SettingsRepository interface {
	// Get returns nil, nil when nothing has been stored yet
	Get(ctx context.Context) (*entity.EvaluationSettings, error)
	Save(ctx context.Context, settings *entity.EvaluationSettings) error
}

// ProgressRepository caches computed progress keyed by employee, manager and period
type ProgressRepository interface {
	Get(ctx context.Context, employeeID, managerID int64, period entity.Period) (*entity.EmployeeProgress, error)
	Upsert(ctx context.Context, progress *entity.EmployeeProgress) error
	ListByManager(ctx context.Context, managerID int64, period entity.Period) ([]*entity.EmployeeProgress, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]*entity.Notification, error)
	// MarkRead fails with ErrNotificationNotFound unless the notification belongs to recipientID
	MarkRead(ctx context.Context, id, recipientID int64) error
}

// ReminderRepository defines persistence operations for TaskReminder
type ReminderRepository interface {
	Create(ctx context.Context, r *entity.TaskReminder) error
	ListDue(ctx context.Context, day time.Time) ([]*entity.TaskReminder, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
}
