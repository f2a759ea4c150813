package entity

import "time"

// Task is a unit of assigned work that is scored once complete or force-closed by a manager.
//
// Date-only fields (StartDate, TargetDate, CloseDate) hold midnight UTC of the civil date.
// CompletionDate is an instant; callers convert it to the business timezone before comparing days.
type Task struct {
	ID                   int64      `json:"id"`
	IssueAction          string     `json:"issue_action"`
	ResponsibleID        int64      `json:"responsible_id"`
	CreatedByID          int64      `json:"created_by_id"`
	PriorityID           *int64     `json:"priority_id,omitempty"`
	KPIID                *int64     `json:"kpi_id,omitempty"`
	QualityID            *int64     `json:"quality_id,omitempty"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	TargetDate           *time.Time `json:"target_date,omitempty"`
	CloseDate            *time.Time `json:"close_date,omitempty"`
	Status               string     `json:"status"`
	PercentageCompletion float64    `json:"percentage_completion"`
	Comments             string     `json:"comments,omitempty"`
	FileUpload           string     `json:"file_upload,omitempty"`
	EmployeeSubmission   string     `json:"employee_submission,omitempty"`
	EmployeeSubmittedAt  *time.Time `json:"employee_submitted_at,omitempty"`

	// Evaluation
	EvaluationStatus             string     `json:"evaluation_status"`
	EvaluationComments           string     `json:"evaluation_comments,omitempty"`
	EvaluatedByID                *int64     `json:"evaluated_by_id,omitempty"`
	EvaluatedDate                *time.Time `json:"evaluated_date,omitempty"`
	CompletionDate               *time.Time `json:"completion_date,omitempty"`
	FinalScore                   *float64   `json:"final_score,omitempty"`
	QualityScoreCalculated       *float64   `json:"quality_score_calculated,omitempty"`
	PriorityMultiplier           *float64   `json:"priority_multiplier,omitempty"`
	TimeBonusPenalty             *float64   `json:"time_bonus_penalty,omitempty"`
	ManagerClosurePenaltyApplied bool       `json:"manager_closure_penalty_applied"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsComplete reports whether the task has reached full completion
func (t *Task) IsComplete() bool {
	return t.PercentageCompletion >= FullCompletion
}

// IsEvaluated reports whether evaluation fields have been applied
func (t *Task) IsEvaluated() bool {
	return t.EvaluationStatus == EvaluationStatusEvaluated
}

// TaskFilter narrows task queries; zero values are ignored
type TaskFilter struct {
	ResponsibleID    int64
	CreatedByID      int64
	KPIID            int64
	Status           string
	EvaluationStatus string
	Incomplete       bool
	TargetDate       *time.Time
	SubmittedBefore  *time.Time
	Limit            int
}
