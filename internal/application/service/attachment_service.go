package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// AttachmentConfig limits uploads
type AttachmentConfig struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

// Attachment describes a stored upload
type Attachment struct {
	TaskID      int64  `json:"task_id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	PageCount   int    `json:"page_count,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// AttachmentService stores files uploaded against tasks
type AttachmentService interface {
	Upload(ctx context.Context, taskID, actorID int64, filename string, content io.Reader) (*Attachment, error)
}

// CanUpload reports whether actor may attach a file to task. Managers may upload to
// their own tasks and to those of their direct reports; employees only to their own
// tasks while they are not closed. Admins never upload.
func CanUpload(actor, responsible *entity.User, task *entity.Task) bool {
	if actor == nil || responsible == nil || task == nil {
		return false
	}
	switch {
	case actor.IsManager():
		return actor.ID == responsible.ID || actor.Supervises(responsible)
	case actor.IsEmployee():
		return actor.ID == responsible.ID && task.Status != entity.TaskStatusClosed
	default:
		return false
	}
}

type attachmentServiceImpl struct {
	tasks     port.TaskRepository
	users     port.UserRepository
	txManager port.TransactionManager
	storage   port.FileStorage
	inspector port.DocumentInspector
	config    AttachmentConfig
	logger    Logger
}

// NewAttachmentService creates a new AttachmentService. inspector may be nil to skip PDF checks.
func NewAttachmentService(
	tasks port.TaskRepository,
	users port.UserRepository,
	txManager port.TransactionManager,
	storage port.FileStorage,
	inspector port.DocumentInspector,
	config AttachmentConfig,
	logger Logger,
) AttachmentService {
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = entity.AllowedUploadExtensions
	}
	return &attachmentServiceImpl{
		tasks:     tasks,
		users:     users,
		txManager: txManager,
		storage:   storage,
		inspector: inspector,
		config:    config,
		logger:    logger,
	}
}

func (s *attachmentServiceImpl) Upload(ctx context.Context, taskID, actorID int64, filename string, content io.Reader) (*Attachment, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(s.config.AllowedExtensions, ext) {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedFile, ext)
	}

	if _, err := s.authorizedTask(ctx, taskID, actorID); err != nil {
		return nil, err
	}

	data, err := s.readLimited(content)
	if err != nil {
		return nil, err
	}

	att := &Attachment{
		TaskID:    taskID,
		Filename:  filepath.Base(filename),
		SizeBytes: int64(len(data)),
		Path:      path.Join("tasks", fmt.Sprint(taskID), uuid.NewString()+ext),
	}

	if ext == ".pdf" && s.inspector != nil {
		pages, err := s.inspector.PageCount(data)
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable pdf: %v", entity.ErrUnsupportedFile, err)
		}
		att.PageCount = pages
		att.ContentType = "application/pdf"
	}

	if err := s.storage.Save(ctx, att.Path, data); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	// Reload under the transaction; only file_upload is written
	var previous string
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		task, err := s.authorizedTask(ctx, taskID, actorID)
		if err != nil {
			return err
		}
		previous = task.FileUpload
		return s.tasks.UpdateFileUpload(ctx, taskID, att.Path)
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, att.Path); delErr != nil {
			s.logger.Error("Failed to remove orphaned attachment", "task_id", taskID, "path", att.Path, "error", delErr)
		}
		return nil, fmt.Errorf("failed to attach upload: %w", err)
	}
	if previous != "" && previous != att.Path {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.logger.Error("Failed to delete replaced attachment", "task_id", taskID, "path", previous, "error", err)
		}
	}

	s.logger.Info("Attachment uploaded",
		"task_id", taskID,
		"path", att.Path,
		"size_bytes", att.SizeBytes,
		"pages", att.PageCount,
	)
	return att, nil
}

// authorizedTask loads the task and checks that actorID may upload to it
func (s *attachmentServiceImpl) authorizedTask(ctx context.Context, taskID, actorID int64) (*entity.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	responsible := actor
	if actor != nil && actor.ID != task.ResponsibleID {
		if responsible, err = s.users.GetByID(ctx, task.ResponsibleID); err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
	}
	if !CanUpload(actor, responsible, task) {
		return nil, entity.ErrNotPermitted
	}
	return task, nil
}

func (s *attachmentServiceImpl) readLimited(content io.Reader) ([]byte, error) {
	if s.config.MaxSizeBytes <= 0 {
		return io.ReadAll(content)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(content, s.config.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if n > s.config.MaxSizeBytes {
		return nil, entity.ErrFileTooLarge
	}
	return buf.Bytes(), nil
}
