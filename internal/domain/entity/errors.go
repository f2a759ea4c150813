package entity

import "errors"

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrKPINotFound          = errors.New("kpi not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrQualityNotFound      = errors.New("quality type not found")
	ErrPriorityNotFound     = errors.New("priority type not found")
	ErrQualityRequired      = errors.New("evaluation requires a quality rating")
	ErrAlreadyEvaluated     = errors.New("task has already been evaluated")
	ErrAlreadyComplete      = errors.New("task is already completed")
	ErrNotPermitted         = errors.New("user is not permitted to perform this action")
	ErrKPIWeightExceeded    = errors.New("total kpi weight would exceed 100")
	ErrInvalidSettings      = errors.New("invalid evaluation settings")
	ErrInvalidKPI           = errors.New("invalid kpi")
	ErrInvalidPeriod        = errors.New("period start is after period end")
	ErrInvalidCompletion    = errors.New("completion percentage must be between 0 and 100")
	ErrUnsupportedFile      = errors.New("file type is not allowed")
	ErrFileTooLarge         = errors.New("file exceeds maximum upload size")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
)
