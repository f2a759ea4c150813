package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// ExportResult describes a written report
type ExportResult struct {
	Filename    string
	ContentType string
	Rows        int
}

// ReportService exports team progress reports
type ReportService interface {
	ExportProgress(ctx context.Context, managerID int64, start, end *time.Time, format string, w io.Writer) (*ExportResult, error)
	Formats() []string
}

type reportServiceImpl struct {
	progress ProgressService
	users    port.UserRepository
	writers  map[string]port.ReportWriter
	clock    port.Clock
	logger   Logger
}

// NewReportService creates a new ReportService with one writer per format
func NewReportService(progress ProgressService, users port.UserRepository, clock port.Clock, logger Logger, writers ...port.ReportWriter) ReportService {
	byFormat := make(map[string]port.ReportWriter, len(writers))
	for _, w := range writers {
		byFormat[w.Format()] = w
	}
	return &reportServiceImpl{
		progress: progress,
		users:    users,
		writers:  byFormat,
		clock:    clock,
		logger:   logger,
	}
}

func (s *reportServiceImpl) Formats() []string {
	formats := make([]string, 0, len(s.writers))
	for _, f := range []string{entity.ExportFormatXLSX, entity.ExportFormatPDF} {
		if _, ok := s.writers[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}

func (s *reportServiceImpl) ExportProgress(ctx context.Context, managerID int64, start, end *time.Time, format string, w io.Writer) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	writer, ok := s.writers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedFormat, format)
	}

	manager, err := s.users.GetByID(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load manager: %w", err)
	}
	if manager == nil {
		return nil, entity.ErrUserNotFound
	}

	period, err := s.progress.ResolvePeriod(start, end)
	if err != nil {
		return nil, err
	}
	rows, err := s.progress.ListForManager(ctx, managerID, &period.Start, &period.End)
	if err != nil {
		return nil, err
	}

	report := &port.ProgressReport{
		Manager:     manager,
		Period:      period,
		GeneratedAt: s.clock.Now(),
		Rows:        rows,
	}
	if err := writer.Write(w, report); err != nil {
		return nil, fmt.Errorf("failed to write %s report: %w", format, err)
	}

	result := &ExportResult{
		Filename: fmt.Sprintf("progress_report_%d_%s_%s.%s",
			managerID, period.Start.Format("20060102"), period.End.Format("20060102"), format),
		ContentType: writer.ContentType(),
		Rows:        len(rows),
	}
	s.logger.Info("Progress report exported",
		"manager_id", managerID,
		"format", format,
		"rows", result.Rows,
	)
	return result, nil
}
