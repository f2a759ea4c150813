package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/repository"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
	"github.com/opticorai/taskeval/migrations"
	"github.com/opticorai/taskeval/pkg/database"
)

func TestAttachmentService_Upload(t *testing.T) {
	tasks := newMockTaskRepo(&entity.Task{ID: 8, ResponsibleID: employeeID, CreatedByID: managerID, FileUpload: "tasks/8/old.txt"})
	storage := &mockStorage{files: map[string][]byte{"tasks/8/old.txt": []byte("old")}}
	svc := NewAttachmentService(tasks, testUsers(), &mockTxManager{}, storage, &mockInspector{pages: 3}, AttachmentConfig{MaxSizeBytes: 1024}, &mockLogger{})

	att, err := svc.Upload(context.Background(), 8, employeeID, "Report Final.PDF", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^tasks/8/[0-9a-f-]{36}\.pdf$`), att.Path)
	assert.Equal(t, 3, att.PageCount)
	assert.Equal(t, int64(13), att.SizeBytes)
	assert.True(t, storage.Exists(context.Background(), att.Path))
	assert.Equal(t, []string{"tasks/8/old.txt"}, storage.deleted)
	assert.Equal(t, att.Path, tasks.tasks[8].FileUpload)
	assert.Empty(t, tasks.updated)
}

func TestAttachmentService_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		actorID   int64
		status    string
		filename  string
		content   string
		inspector *mockInspector
		wantErr   error
	}{
		{name: "extension not allowed", actorID: employeeID, filename: "run.exe", content: "MZ", wantErr: entity.ErrUnsupportedFile},
		{name: "too large", actorID: employeeID, filename: "notes.txt", content: strings.Repeat("a", 17), wantErr: entity.ErrFileTooLarge},
		{name: "unreadable pdf", actorID: employeeID, filename: "scan.pdf", content: "junk", inspector: &mockInspector{err: errors.New("no objects")}, wantErr: entity.ErrUnsupportedFile},
		{name: "unrelated user", actorID: outsiderID, filename: "notes.txt", content: "hi", wantErr: entity.ErrNotPermitted},
		{name: "employee on closed task", actorID: employeeID, status: entity.TaskStatusClosed, filename: "notes.txt", content: "hi", wantErr: entity.ErrNotPermitted},
		{name: "admin", actorID: adminID, filename: "notes.txt", content: "hi", wantErr: entity.ErrNotPermitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.status
			if status == "" {
				status = entity.TaskStatusOpen
			}
			tasks := newMockTaskRepo(&entity.Task{ID: 8, ResponsibleID: employeeID, CreatedByID: managerID, Status: status})
			storage := &mockStorage{}
			inspector := tt.inspector
			if inspector == nil {
				inspector = &mockInspector{pages: 1}
			}
			svc := NewAttachmentService(tasks, testUsers(), &mockTxManager{}, storage, inspector, AttachmentConfig{MaxSizeBytes: 16}, &mockLogger{})

			_, err := svc.Upload(context.Background(), 8, tt.actorID, tt.filename, strings.NewReader(tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, storage.files)
			assert.Empty(t, tasks.fileWrites)
		})
	}
}

func TestAttachmentService_SupervisorWhoDidNotCreateTask(t *testing.T) {
	tasks := newMockTaskRepo(&entity.Task{ID: 9, ResponsibleID: employeeID, CreatedByID: adminID, Status: entity.TaskStatusClosed})
	storage := &mockStorage{}
	svc := NewAttachmentService(tasks, testUsers(), &mockTxManager{}, storage, nil, AttachmentConfig{MaxSizeBytes: 64}, &mockLogger{})

	att, err := svc.Upload(context.Background(), 9, managerID, "review.txt", strings.NewReader("signed off"))
	require.NoError(t, err)
	assert.Equal(t, att.Path, tasks.fileWrites[9])
}

func TestCanUpload(t *testing.T) {
	users := testUsers()
	manager := users.users[managerID]
	employee := users.users[employeeID]
	outsider := users.users[outsiderID]
	admin := users.users[adminID]
	open := &entity.Task{ResponsibleID: employeeID, Status: entity.TaskStatusOpen}
	closed := &entity.Task{ResponsibleID: employeeID, Status: entity.TaskStatusClosed}
	managersOwn := &entity.Task{ResponsibleID: managerID, Status: entity.TaskStatusClosed}

	assert.True(t, CanUpload(employee, employee, open))
	assert.False(t, CanUpload(employee, employee, closed))
	assert.True(t, CanUpload(manager, employee, closed))
	assert.True(t, CanUpload(manager, manager, managersOwn))
	assert.False(t, CanUpload(outsider, employee, open))
	assert.False(t, CanUpload(admin, employee, open))
	assert.False(t, CanUpload(nil, employee, open))
}

// readHook runs fn before the first read of the wrapped reader
type readHook struct {
	io.Reader
	fn func()
}

func (r *readHook) Read(p []byte) (int, error) {
	if r.fn != nil {
		r.fn()
		r.fn = nil
	}
	return r.Reader.Read(p)
}

func TestAttachmentService_UploadKeepsConcurrentEvaluation(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "taskeval.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.NewMigrator(db, zap.NewNop()).Run(ctx, migrations.FS)
	require.NoError(t, err)

	users := repository.NewUserRepository(db.DB, zap.NewNop())
	tasks := repository.NewTaskRepository(db.DB, zap.NewNop())

	manager := &entity.User{Username: "maya", UserType: entity.RoleManager, IsActive: true}
	require.NoError(t, users.Create(ctx, manager))
	employee := &entity.User{Username: "sam", UserType: entity.RoleEmployee, UnderSupervisionID: &manager.ID, IsActive: true}
	require.NoError(t, users.Create(ctx, employee))
	task := &entity.Task{IssueAction: "Write the audit summary", ResponsibleID: employee.ID, CreatedByID: manager.ID}
	require.NoError(t, tasks.Create(ctx, task))

	body := &readHook{Reader: strings.NewReader("summary"), fn: func() {
		current, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		score := 88.0
		current.EvaluationStatus = entity.EvaluationStatusEvaluated
		current.FinalScore = &score
		require.NoError(t, tasks.Update(ctx, current))
	}}

	svc := NewAttachmentService(tasks, users, sqlite.NewDB(db.DB, zap.NewNop()), &mockStorage{}, nil, AttachmentConfig{MaxSizeBytes: 1024}, &mockLogger{})
	att, err := svc.Upload(ctx, task.ID, employee.ID, "summary.txt", body)
	require.NoError(t, err)

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, att.Path, got.FileUpload)
	assert.Equal(t, entity.EvaluationStatusEvaluated, got.EvaluationStatus)
	require.NotNil(t, got.FinalScore)
	assert.Equal(t, 88.0, *got.FinalScore)
}
