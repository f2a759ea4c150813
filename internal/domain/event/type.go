package event

// Type identifies a task lifecycle event
type Type string

const (
	TypeTaskEvaluated       Type = "task.evaluated"
	TypeTaskClosedByManager Type = "task.closed_by_manager"
	TypeTaskReevaluated     Type = "task.reevaluated"
	TypeTaskStatusChanged   Type = "task.status_changed"
	TypeTaskSubmitted       Type = "task.submitted"
	TypeProgressCalculated  Type = "progress.calculated"
)

// Payload keys shared by publishers and handlers
const (
	KeyFinalScore     = "final_score"
	KeyOldStatus      = "old_status"
	KeyNewStatus      = "new_status"
	KeyResponsibleID  = "responsible_id"
	KeyManagerID      = "manager_id"
	KeyEmployeeID     = "employee_id"
	KeyIssueAction    = "issue_action"
	KeyTotalScore     = "total_progress_score"
	KeyManagerClosure = "manager_closure"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskEvaluated,
		TypeTaskClosedByManager,
		TypeTaskReevaluated,
		TypeTaskStatusChanged,
		TypeTaskSubmitted,
		TypeProgressCalculated:
		return true
	default:
		return false
	}
}
