package entity

import (
	"sort"
	"time"
)

// Period is an inclusive range of civil dates
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TaskScore is a task's contribution listed in a KPI breakdown
type TaskScore struct {
	TaskID         int64      `json:"task_id"`
	IssueAction    string     `json:"issue_action"`
	FinalScore     float64    `json:"final_score"`
	CompletionDate *time.Time `json:"completion_date"`
}

// KPIBreakdown is the per-KPI detail of a progress report
type KPIBreakdown struct {
	KPIID         int64       `json:"kpi_id"`
	Weight        float64     `json:"weight"`
	TaskCount     int         `json:"task_count"`
	AverageScore  float64     `json:"average_score"`
	WeightedScore float64     `json:"weighted_score"`
	Tasks         []TaskScore `json:"tasks"`
}

// EmployeeProgress is the cached KPI-weighted rollup of an employee's task scores for one period
type EmployeeProgress struct {
	ID                 int64                   `json:"id"`
	EmployeeID         int64                   `json:"employee_id"`
	ManagerID          int64                   `json:"manager_id"`
	PeriodStart        time.Time               `json:"period_start"`
	PeriodEnd          time.Time               `json:"period_end"`
	TotalProgressScore *float64                `json:"total_progress_score"`
	Breakdown          map[string]KPIBreakdown `json:"breakdown"`
	CalculatedAt       time.Time               `json:"calculated_at"`
}

// KPINames returns the breakdown keys sorted by name
func (p *EmployeeProgress) KPINames() []string {
	names := make([]string, 0, len(p.Breakdown))
	for name := range p.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
