package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
)

// ReminderRepository implements port.ReminderRepository
type ReminderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReminderRepository creates a new task reminder repository
func NewReminderRepository(db *sql.DB, logger *zap.Logger) port.ReminderRepository {
	return &ReminderRepository{
		db:     db,
		logger: logger,
	}
}

// Create schedules a reminder and sets its ID
func (r *ReminderRepository) Create(ctx context.Context, rem *entity.TaskReminder) error {
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}
	rem.ScheduledFor = civilUTC(rem.ScheduledFor)

	query := `
		INSERT INTO task_reminders (task_id, recipient_id, scheduled_for, message, created_by_id, created_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		rem.TaskID,
		rem.RecipientID,
		rem.ScheduledFor,
		rem.Message,
		nullInt64(rem.CreatedByID),
		rem.CreatedAt.UTC(),
		instantValue(rem.SentAt),
	)
	if err != nil {
		r.logger.Error("Failed to create reminder",
			zap.Int64("task_id", rem.TaskID),
			zap.Error(err))
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rem.ID = id
	return nil
}

// ListDue returns unsent reminders scheduled on or before day
func (r *ReminderRepository) ListDue(ctx context.Context, day time.Time) ([]*entity.TaskReminder, error) {
	query := `
		SELECT id, task_id, recipient_id, scheduled_for, message, created_by_id, created_at, sent_at
		FROM task_reminders
		WHERE sent_at IS NULL AND scheduled_for <= ?
		ORDER BY scheduled_for, id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, civilUTC(day))
	if err != nil {
		r.logger.Error("Failed to list due reminders", zap.Error(err))
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	var out []*entity.TaskReminder
	for rows.Next() {
		var rem entity.TaskReminder
		var createdBy sql.NullInt64
		var sentAt sql.NullTime
		err := rows.Scan(
			&rem.ID,
			&rem.TaskID,
			&rem.RecipientID,
			&rem.ScheduledFor,
			&rem.Message,
			&createdBy,
			&rem.CreatedAt,
			&sentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		rem.CreatedByID = int64Ptr(createdBy)
		rem.SentAt = timePtr(sentAt)
		out = append(out, &rem)
	}
	return out, rows.Err()
}

// MarkSent records the delivery time of a reminder
func (r *ReminderRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE task_reminders SET sent_at = ? WHERE id = ?`, sentAt.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to mark reminder sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return requireAffected(result, fmt.Errorf("reminder %d not found", id))
}

var _ port.ReminderRepository = (*ReminderRepository)(nil)
