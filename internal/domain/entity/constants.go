package entity

// Task status values
const (
	TaskStatusOpen   = "open"
	TaskStatusDue    = "due"
	TaskStatusClosed = "closed"
)

// Evaluation status values
const (
	EvaluationStatusPending   = "pending"
	EvaluationStatusEvaluated = "evaluated"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// MaxKPIWeightTotal is the ceiling for the sum of active KPI weights owned by one manager.
const MaxKPIWeightTotal = 100.0

// FullCompletion is the percentage at which a task counts as complete.
const FullCompletion = 100.0

// Export formats for progress reports
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatPDF  = "pdf"
)

// AllowedUploadExtensions lists the file extensions accepted for task attachments.
var AllowedUploadExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt",
	".jpg", ".jpeg", ".png", ".gif", ".zip",
}
