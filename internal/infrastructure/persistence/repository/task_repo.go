package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
)

var taskColumns = []string{
	"id", "issue_action", "responsible_id", "created_by_id",
	"priority_id", "kpi_id", "quality_id",
	"start_date", "target_date", "close_date",
	"status", "percentage_completion", "comments", "file_upload",
	"employee_submission", "employee_submitted_at",
	"evaluation_status", "evaluation_comments", "evaluated_by_id", "evaluated_date",
	"completion_date", "final_score", "quality_score_calculated",
	"priority_multiplier", "time_bonus_penalty", "manager_closure_penalty_applied",
	"created_at", "updated_at",
}

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a task and sets its ID
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = entity.TaskStatusOpen
	}
	if task.EvaluationStatus == "" {
		task.EvaluationStatus = entity.EvaluationStatusPending
	}

	query, args, err := sq.Insert("tasks").
		Columns(taskColumns[1:]...).
		Values(append(r.values(task), task.CreatedAt.UTC(), task.UpdatedAt)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task insert: %w", err)
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to create task",
			zap.Int64("responsible_id", task.ResponsibleID),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	return nil
}

// GetByID retrieves a task, returning nil when it does not exist
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	query, args, err := sq.Select(taskColumns...).From("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	task, err := scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List returns tasks matching every non-zero field of filter, ordered by ID
func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error) {
	q := sq.Select(taskColumns...).From("tasks").OrderBy("id")

	if filter.ResponsibleID != 0 {
		q = q.Where(sq.Eq{"responsible_id": filter.ResponsibleID})
	}
	if filter.CreatedByID != 0 {
		q = q.Where(sq.Eq{"created_by_id": filter.CreatedByID})
	}
	if filter.KPIID != 0 {
		q = q.Where(sq.Eq{"kpi_id": filter.KPIID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.EvaluationStatus != "" {
		q = q.Where(sq.Eq{"evaluation_status": filter.EvaluationStatus})
	}
	if filter.Incomplete {
		q = q.Where(sq.Lt{"percentage_completion": entity.FullCompletion})
	}
	if filter.TargetDate != nil {
		q = q.Where(sq.Eq{"target_date": civilUTC(*filter.TargetDate)})
	}
	if filter.SubmittedBefore != nil {
		q = q.Where(sq.Lt{"employee_submitted_at": filter.SubmittedBefore.UTC()})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	return r.query(ctx, q)
}

// ListEvaluatedForProgress returns the closed, scored tasks of the employee
// completed within [from, to)
func (r *TaskRepository) ListEvaluatedForProgress(ctx context.Context, employeeID int64, from, to time.Time) ([]*entity.Task, error) {
	q := sq.Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{
			"responsible_id":    employeeID,
			"status":            entity.TaskStatusClosed,
			"evaluation_status": entity.EvaluationStatusEvaluated,
		}).
		Where(sq.NotEq{"final_score": nil}).
		Where(sq.GtOrEq{"completion_date": from.UTC()}).
		Where(sq.Lt{"completion_date": to.UTC()}).
		OrderBy("completion_date", "id")

	return r.query(ctx, q)
}

// Update writes every mutable column of the task
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	task.UpdatedAt = time.Now().UTC()

	q := sq.Update("tasks").Where(sq.Eq{"id": task.ID})
	values := r.values(task)
	for i, col := range taskColumns[1 : len(taskColumns)-2] {
		q = q.Set(col, values[i])
	}
	q = q.Set("updated_at", task.UpdatedAt)

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task update: %w", err)
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Int64("id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(result, entity.ErrTaskNotFound)
}

// UpdateStatus changes only the status column
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update task status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireAffected(result, entity.ErrTaskNotFound)
}

// UpdateFileUpload changes only the file_upload column, leaving evaluation fields untouched
func (r *TaskRepository) UpdateFileUpload(ctx context.Context, id int64, path string) error {
	query := `UPDATE tasks SET file_upload = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, path, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update task attachment",
			zap.Int64("id", id),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to update file upload: %w", err)
	}
	return requireAffected(result, entity.ErrTaskNotFound)
}

// values returns the mutable columns in taskColumns order, without id and timestamps
func (r *TaskRepository) values(t *entity.Task) []interface{} {
	return []interface{}{
		t.IssueAction, t.ResponsibleID, t.CreatedByID,
		nullInt64(t.PriorityID), nullInt64(t.KPIID), nullInt64(t.QualityID),
		dateValue(t.StartDate), dateValue(t.TargetDate), dateValue(t.CloseDate),
		t.Status, t.PercentageCompletion, t.Comments, t.FileUpload,
		t.EmployeeSubmission, instantValue(t.EmployeeSubmittedAt),
		t.EvaluationStatus, t.EvaluationComments, nullInt64(t.EvaluatedByID), instantValue(t.EvaluatedDate),
		instantValue(t.CompletionDate), nullFloat64(t.FinalScore), nullFloat64(t.QualityScoreCalculated),
		nullFloat64(t.PriorityMultiplier), nullFloat64(t.TimeBonusPenalty), t.ManagerClosurePenaltyApplied,
	}
}

func (r *TaskRepository) query(ctx context.Context, q sq.SelectBuilder) ([]*entity.Task, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var t entity.Task
	var priorityID, kpiID, qualityID, evaluatedByID sql.NullInt64
	var startDate, targetDate, closeDate, submittedAt, evaluatedDate, completionDate sql.NullTime
	var finalScore, qualityScore, multiplier, timeTerm sql.NullFloat64

	err := row.Scan(
		&t.ID, &t.IssueAction, &t.ResponsibleID, &t.CreatedByID,
		&priorityID, &kpiID, &qualityID,
		&startDate, &targetDate, &closeDate,
		&t.Status, &t.PercentageCompletion, &t.Comments, &t.FileUpload,
		&t.EmployeeSubmission, &submittedAt,
		&t.EvaluationStatus, &t.EvaluationComments, &evaluatedByID, &evaluatedDate,
		&completionDate, &finalScore, &qualityScore,
		&multiplier, &timeTerm, &t.ManagerClosurePenaltyApplied,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.PriorityID = int64Ptr(priorityID)
	t.KPIID = int64Ptr(kpiID)
	t.QualityID = int64Ptr(qualityID)
	t.EvaluatedByID = int64Ptr(evaluatedByID)
	t.StartDate = timePtr(startDate)
	t.TargetDate = timePtr(targetDate)
	t.CloseDate = timePtr(closeDate)
	t.EmployeeSubmittedAt = timePtr(submittedAt)
	t.EvaluatedDate = timePtr(evaluatedDate)
	t.CompletionDate = timePtr(completionDate)
	t.FinalScore = float64Ptr(finalScore)
	t.QualityScoreCalculated = float64Ptr(qualityScore)
	t.PriorityMultiplier = float64Ptr(multiplier)
	t.TimeBonusPenalty = float64Ptr(timeTerm)
	return &t, nil
}

// requireAffected maps an UPDATE that matched no row to notFound
func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ port.TaskRepository = (*TaskRepository)(nil)
