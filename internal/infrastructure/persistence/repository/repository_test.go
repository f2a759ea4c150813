package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
	"github.com/opticorai/taskeval/migrations"
	"github.com/opticorai/taskeval/pkg/database"
)

var plus8 = time.FixedZone("UTC+8", 8*60*60)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "taskeval.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, zap.NewNop()).Run(context.Background(), migrations.FS)
	require.NoError(t, err)
	return db.DB
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ptr[T any](v T) *T { return &v }

// seedUsers creates a manager and an employee reporting to them
func seedUsers(t *testing.T, db *sql.DB) (manager, employee *entity.User) {
	t.Helper()
	users := NewUserRepository(db, zap.NewNop())
	ctx := context.Background()

	manager = &entity.User{Username: "morgan", FirstName: "Morgan", UserType: entity.RoleManager, IsActive: true}
	require.NoError(t, users.Create(ctx, manager))
	employee = &entity.User{
		Username:           "sam",
		FirstName:          "Sam",
		LastName:           "Ortiz",
		Email:              "sam@example.com",
		UserType:           entity.RoleEmployee,
		UnderSupervisionID: &manager.ID,
		LarkOpenID:         "ou_sam",
		IsActive:           true,
	}
	require.NoError(t, users.Create(ctx, employee))
	return manager, employee
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewUserRepository(db, zap.NewNop())
	ctx := context.Background()

	inactive := &entity.User{Username: "gone", UserType: entity.RoleEmployee, UnderSupervisionID: &manager.ID}
	require.NoError(t, repo.Create(ctx, inactive))

	got, err := repo.GetByID(ctx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, employee, got)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	reports, err := repo.ListSupervisedBy(ctx, manager.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, employee.ID, reports[0].ID)
}

func TestTaskRepository_CreateGetUpdate(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewTaskRepository(db, zap.NewNop())
	ctx := context.Background()

	task := &entity.Task{
		IssueAction:   "Prepare the onboarding checklist",
		ResponsibleID: employee.ID,
		CreatedByID:   manager.ID,
		TargetDate:    day(2024, 6, 15),
	}
	require.NoError(t, repo.Create(ctx, task))
	require.NotZero(t, task.ID)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusOpen, got.Status)
	assert.Equal(t, entity.EvaluationStatusPending, got.EvaluationStatus)
	assert.True(t, got.TargetDate.Equal(*day(2024, 6, 15)))
	assert.Nil(t, got.FinalScore)
	assert.Nil(t, got.KPIID)

	completed := time.Date(2024, 6, 12, 12, 0, 0, 0, plus8)
	got.PercentageCompletion = 100
	got.Status = entity.TaskStatusClosed
	got.EvaluationStatus = entity.EvaluationStatusEvaluated
	got.CompletionDate = &completed
	got.FinalScore = ptr(99.0)
	got.TimeBonusPenalty = ptr(3.0)
	got.ManagerClosurePenaltyApplied = true
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 99.0, *again.FinalScore)
	assert.Equal(t, 3.0, *again.TimeBonusPenalty)
	assert.True(t, again.CompletionDate.Equal(completed))
	assert.True(t, again.ManagerClosurePenaltyApplied)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 999, entity.TaskStatusDue), entity.ErrTaskNotFound)
	require.NoError(t, repo.UpdateStatus(ctx, task.ID, entity.TaskStatusDue))
	again, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusDue, again.Status)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTaskRepository_UpdateFileUploadKeepsEvaluation(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewTaskRepository(db, zap.NewNop())
	ctx := context.Background()

	task := &entity.Task{IssueAction: "Ship the release notes", ResponsibleID: employee.ID, CreatedByID: manager.ID}
	require.NoError(t, repo.Create(ctx, task))

	// A stale copy taken before the evaluation lands
	stale, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)

	evaluated, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	evaluated.EvaluationStatus = entity.EvaluationStatusEvaluated
	evaluated.FinalScore = ptr(88.0)
	require.NoError(t, repo.Update(ctx, evaluated))

	require.NoError(t, repo.UpdateFileUpload(ctx, stale.ID, "tasks/1/report.pdf"))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "tasks/1/report.pdf", got.FileUpload)
	assert.Equal(t, entity.EvaluationStatusEvaluated, got.EvaluationStatus)
	require.NotNil(t, got.FinalScore)
	assert.Equal(t, 88.0, *got.FinalScore)

	assert.ErrorIs(t, repo.UpdateFileUpload(ctx, 999, "x.pdf"), entity.ErrTaskNotFound)
}

func TestTaskRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewTaskRepository(db, zap.NewNop())
	ctx := context.Background()

	submitted := time.Date(2024, 6, 5, 18, 0, 0, 0, plus8)
	tasks := []*entity.Task{
		{IssueAction: "due soon", TargetDate: day(2024, 6, 15), PercentageCompletion: 40},
		{IssueAction: "done", TargetDate: day(2024, 6, 15), PercentageCompletion: 100, Status: entity.TaskStatusClosed},
		{IssueAction: "later", TargetDate: day(2024, 6, 30)},
		{IssueAction: "submitted", EmployeeSubmittedAt: &submitted, Status: entity.TaskStatusDue},
	}
	for _, task := range tasks {
		task.ResponsibleID = employee.ID
		task.CreatedByID = manager.ID
		require.NoError(t, repo.Create(ctx, task))
	}

	tests := []struct {
		name   string
		filter entity.TaskFilter
		want   []string
	}{
		{"all", entity.TaskFilter{}, []string{"due soon", "done", "later", "submitted"}},
		{"incomplete on target date", entity.TaskFilter{Incomplete: true, TargetDate: day(2024, 6, 15)}, []string{"due soon"}},
		{"status", entity.TaskFilter{Status: entity.TaskStatusDue}, []string{"submitted"}},
		{"submitted before", entity.TaskFilter{SubmittedBefore: ptr(time.Date(2024, 6, 6, 0, 0, 0, 0, plus8))}, []string{"submitted"}},
		{"submitted after cutoff", entity.TaskFilter{SubmittedBefore: ptr(time.Date(2024, 6, 5, 0, 0, 0, 0, plus8))}, nil},
		{"limit", entity.TaskFilter{Limit: 2}, []string{"due soon", "done"}},
		{"other employee", entity.TaskFilter{ResponsibleID: manager.ID}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, task := range got {
				names = append(names, task.IssueAction)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTaskRepository_ListEvaluatedForProgress(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewTaskRepository(db, zap.NewNop())
	ctx := context.Background()

	evaluated := func(name string, completed time.Time, score *float64) {
		task := &entity.Task{
			IssueAction:          name,
			ResponsibleID:        employee.ID,
			CreatedByID:          manager.ID,
			Status:               entity.TaskStatusClosed,
			PercentageCompletion: 100,
			EvaluationStatus:     entity.EvaluationStatusEvaluated,
			CompletionDate:       &completed,
			FinalScore:           score,
		}
		require.NoError(t, repo.Create(ctx, task))
	}
	evaluated("first day", time.Date(2024, 6, 1, 0, 30, 0, 0, plus8), ptr(80.0))
	evaluated("last day", time.Date(2024, 6, 30, 23, 0, 0, 0, plus8), ptr(90.0))
	evaluated("next month", time.Date(2024, 7, 1, 0, 0, 0, 0, plus8), ptr(70.0))
	evaluated("unscored", time.Date(2024, 6, 10, 12, 0, 0, 0, plus8), nil)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, plus8)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, plus8)
	got, err := repo.ListEvaluatedForProgress(ctx, employee.ID, from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first day", got[0].IssueAction)
	assert.Equal(t, "last day", got[1].IssueAction)
}

func TestCatalogRepositories_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	qualities := NewQualityRepository(db, zap.NewNop())
	priorities := NewPriorityRepository(db, zap.NewNop())

	good := &entity.QualityType{Name: "Good", Percentage: 80}
	require.NoError(t, qualities.UpsertByName(ctx, good))
	firstID := good.ID
	require.NoError(t, qualities.UpsertByName(ctx, &entity.QualityType{Name: "Good", Percentage: 85}))
	require.NoError(t, qualities.UpsertByName(ctx, &entity.QualityType{Name: "Poor", Percentage: 40}))

	got, err := qualities.GetByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.Percentage)

	list, err := qualities.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Good", list[0].Name)

	high := &entity.PriorityType{Name: "High", Multiplier: 1.2}
	require.NoError(t, priorities.UpsertByName(ctx, high))
	require.NoError(t, priorities.UpsertByName(ctx, &entity.PriorityType{Name: "Low", Multiplier: 1.0}))
	p, err := priorities.GetByID(ctx, high.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.2, p.Multiplier)

	plist, err := priorities.List(ctx)
	require.NoError(t, err)
	require.Len(t, plist, 2)
	assert.Equal(t, "Low", plist[0].Name)

	none, err := priorities.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestKPIRepository(t *testing.T) {
	db := newTestDB(t)
	manager, _ := seedUsers(t, db)
	repo := NewKPIRepository(db, zap.NewNop())
	ctx := context.Background()

	delivery := &entity.KPI{Name: "Delivery", Weight: 60, CreatedByID: manager.ID, IsActive: true}
	quality := &entity.KPI{Name: "Quality", Weight: 30, CreatedByID: manager.ID, IsActive: true}
	retired := &entity.KPI{Name: "Retired", Weight: 50, CreatedByID: manager.ID}
	for _, k := range []*entity.KPI{delivery, quality, retired} {
		require.NoError(t, repo.Create(ctx, k))
	}

	total, err := repo.SumActiveWeight(ctx, manager.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 90.0, total)

	total, err = repo.SumActiveWeight(ctx, manager.ID, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)

	active, err := repo.ListActiveByManager(ctx, manager.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Delivery", active[0].Name)

	quality.IsActive = false
	require.NoError(t, repo.Update(ctx, quality))
	got, err := repo.GetByID(ctx, quality.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, repo.Update(ctx, &entity.KPI{ID: 999, Name: "x"}), entity.ErrKPINotFound)
}

func TestSettingsRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettingsRepository(db, zap.NewNop())
	ctx := context.Background()

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	settings := entity.DefaultEvaluationSettings()
	require.NoError(t, repo.Save(ctx, &settings))

	settings.UseTimeBonusPenalty = false
	settings.ManagerClosurePenalty = 15
	require.NoError(t, repo.Save(ctx, &settings))

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.UseTimeBonusPenalty)
	assert.True(t, got.UseQualityScore)
	assert.Equal(t, 15.0, got.ManagerClosurePenalty)
	assert.Equal(t, settings.FormulaName, got.FormulaName)

	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM evaluation_settings").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestProgressRepository(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewProgressRepository(db, zap.NewNop())
	ctx := context.Background()
	period := entity.Period{Start: *day(2024, 6, 1), End: *day(2024, 6, 30)}

	got, err := repo.Get(ctx, employee.ID, manager.ID, period)
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &entity.EmployeeProgress{
		EmployeeID:   employee.ID,
		ManagerID:    manager.ID,
		PeriodStart:  period.Start,
		PeriodEnd:    period.End,
		CalculatedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, p))
	firstID := p.ID

	got, err = repo.Get(ctx, employee.ID, manager.ID, period)
	require.NoError(t, err)
	assert.Nil(t, got.TotalProgressScore)
	assert.NotNil(t, got.Breakdown)

	p.TotalProgressScore = ptr(85.0)
	p.Breakdown = map[string]entity.KPIBreakdown{
		"Delivery": {KPIID: 1, Weight: 60, TaskCount: 2, AverageScore: 90, WeightedScore: 54},
	}
	require.NoError(t, repo.Upsert(ctx, p))
	assert.Equal(t, firstID, p.ID)

	list, err := repo.ListByManager(ctx, manager.ID, period)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 85.0, *list[0].TotalProgressScore)
	assert.Equal(t, 2, list[0].Breakdown["Delivery"].TaskCount)

	other, err := repo.ListByManager(ctx, manager.ID, entity.Period{Start: *day(2024, 5, 1), End: *day(2024, 5, 31)})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestNotificationRepository(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	repo := NewNotificationRepository(db, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	for i, msg := range []string{"first", "second", "third"} {
		n := &entity.Notification{RecipientID: employee.ID, SenderID: &manager.ID, Message: msg, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, n))
	}

	got, err := repo.ListByRecipient(ctx, employee.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Message)
	assert.Equal(t, manager.ID, *got[0].SenderID)

	all, err := repo.ListByRecipient(ctx, employee.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.ErrorIs(t, repo.MarkRead(ctx, got[0].ID, manager.ID), entity.ErrNotificationNotFound, "only the recipient may mark it")
	require.NoError(t, repo.MarkRead(ctx, got[0].ID, employee.ID))
	got, err = repo.ListByRecipient(ctx, employee.ID, 1)
	require.NoError(t, err)
	assert.True(t, got[0].Read)

	assert.ErrorIs(t, repo.MarkRead(ctx, 999, employee.ID), entity.ErrNotificationNotFound)
}

func TestReminderRepository(t *testing.T) {
	db := newTestDB(t)
	manager, employee := seedUsers(t, db)
	tasks := NewTaskRepository(db, zap.NewNop())
	repo := NewReminderRepository(db, zap.NewNop())
	ctx := context.Background()

	task := &entity.Task{IssueAction: "follow up", ResponsibleID: employee.ID, CreatedByID: manager.ID}
	require.NoError(t, tasks.Create(ctx, task))

	for _, d := range []*time.Time{day(2024, 6, 9), day(2024, 6, 10), day(2024, 6, 11)} {
		rem := &entity.TaskReminder{TaskID: task.ID, RecipientID: employee.ID, ScheduledFor: *d, CreatedByID: &manager.ID}
		require.NoError(t, repo.Create(ctx, rem))
	}

	due, err := repo.ListDue(ctx, *day(2024, 6, 10))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, manager.ID, *due[0].CreatedByID)
	assert.Nil(t, due[0].SentAt)

	require.NoError(t, repo.MarkSent(ctx, due[0].ID, time.Now()))
	due, err = repo.ListDue(ctx, *day(2024, 6, 10))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	assert.Error(t, repo.MarkSent(ctx, 999, time.Now()))
}

func TestRepositories_JoinTransaction(t *testing.T) {
	db := newTestDB(t)
	manager, _ := seedUsers(t, db)
	tx := sqlite.NewDB(db, zap.NewNop())
	repo := NewKPIRepository(db, zap.NewNop())
	ctx := context.Background()

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, &entity.KPI{Name: "Delivery", Weight: 60, CreatedByID: manager.ID, IsActive: true}); err != nil {
			return err
		}
		return entity.ErrKPIWeightExceeded
	})
	assert.ErrorIs(t, err, entity.ErrKPIWeightExceeded)

	total, err := repo.SumActiveWeight(ctx, manager.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total, "insert rolled back with the transaction")
}
