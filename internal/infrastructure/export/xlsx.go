package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

const (
	summarySheet = "Summary"
	tasksSheet   = "Tasks"
)

var (
	summaryHeader = []interface{}{
		"Employee", "Username", "Period Start", "Period End", "Total Score",
		"KPI", "KPI Weight", "Tasks", "Average Score", "Weighted Score",
	}
	tasksHeader = []interface{}{"Employee", "KPI", "Task ID", "Issue / Action", "Final Score"}
)

// XLSXWriter renders the progress report as an Excel workbook with a summary
// sheet and, optionally, a sheet listing every scored task
type XLSXWriter struct {
	includeTasks bool
	logger       *zap.Logger
}

// NewXLSXWriter creates an Excel report writer
func NewXLSXWriter(includeTasks bool, logger *zap.Logger) *XLSXWriter {
	return &XLSXWriter{includeTasks: includeTasks, logger: logger}
}

func (x *XLSXWriter) Format() string { return entity.ExportFormatXLSX }

func (x *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write renders report into w
func (x *XLSXWriter) Write(w io.Writer, report *port.ProgressReport) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			x.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := x.writeSummary(f, report, bold); err != nil {
		return err
	}
	if x.includeTasks {
		if err := x.writeTasks(f, report, bold); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (x *XLSXWriter) writeSummary(f *excelize.File, report *port.ProgressReport, headerStyle int) error {
	title := fmt.Sprintf("Progress report for %s, %s", report.Manager.FullName(), periodText(report.Period))
	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	if err := setRow(f, summarySheet, 3, summaryHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A3", "J3", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	rowNum := 4
	for _, row := range report.Rows {
		employee := []interface{}{
			employeeName(row),
			row.Employee.Username,
			report.Period.Start.Format(dateLayout),
			report.Period.End.Format(dateLayout),
			totalText(row.Progress),
		}

		lines := sortedBreakdown(row.Progress)
		if len(lines) == 0 {
			if err := setRow(f, summarySheet, rowNum, employee); err != nil {
				return err
			}
			rowNum++
			continue
		}

		for i, line := range lines {
			cells := make([]interface{}, 5, len(summaryHeader))
			if i == 0 {
				copy(cells, employee)
			}
			b := line.Breakdown
			cells = append(cells, line.Name, b.Weight, b.TaskCount, b.AverageScore, b.WeightedScore)
			if err := setRow(f, summarySheet, rowNum, cells); err != nil {
				return err
			}
			rowNum++
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	return f.SetColWidth(summarySheet, "B", "J", 14)
}

func (x *XLSXWriter) writeTasks(f *excelize.File, report *port.ProgressReport, headerStyle int) error {
	if _, err := f.NewSheet(tasksSheet); err != nil {
		return fmt.Errorf("failed to create tasks sheet: %w", err)
	}
	if err := setRow(f, tasksSheet, 1, tasksHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(tasksSheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	rowNum := 2
	for _, row := range report.Rows {
		for _, line := range sortedBreakdown(row.Progress) {
			for _, task := range line.Breakdown.Tasks {
				cells := []interface{}{employeeName(row), line.Name, task.TaskID, task.IssueAction, task.FinalScore}
				if err := setRow(f, tasksSheet, rowNum, cells); err != nil {
					return err
				}
				rowNum++
			}
		}
	}
	return f.SetColWidth(tasksSheet, "D", "D", 48)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

var _ port.ReportWriter = (*XLSXWriter)(nil)
