// Package export renders team progress reports as Excel workbooks and PDF documents.
package export

import (
	"fmt"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// kpiLine is one KPI row of an employee's breakdown
type kpiLine struct {
	Name      string
	Breakdown entity.KPIBreakdown
}

// sortedBreakdown returns the breakdown ordered by KPI name
func sortedBreakdown(p *entity.EmployeeProgress) []kpiLine {
	if p == nil {
		return nil
	}
	names := p.KPINames()
	lines := make([]kpiLine, 0, len(names))
	for _, name := range names {
		lines = append(lines, kpiLine{Name: name, Breakdown: p.Breakdown[name]})
	}
	return lines
}

func employeeName(row port.ProgressRow) string {
	if row.Employee == nil {
		return ""
	}
	return row.Employee.FullName()
}

// totalText formats a progress total; no KPIs yields "N/A"
func totalText(p *entity.EmployeeProgress) string {
	if p == nil || p.TotalProgressScore == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *p.TotalProgressScore)
}

func periodText(period entity.Period) string {
	return period.Start.Format(dateLayout) + " to " + period.End.Format(dateLayout)
}
