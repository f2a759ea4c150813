package evaluation

import (
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// CivilDate truncates t to midnight UTC of its calendar day in t's own location
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a's civil date to b's civil date
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}

// ComputeStatus derives the task status: closed once complete, due once the
// target date has passed, open otherwise
func ComputeStatus(percentageCompletion float64, targetDate *time.Time, today time.Time) string {
	if percentageCompletion >= entity.FullCompletion {
		return entity.TaskStatusClosed
	}
	if targetDate != nil && CivilDate(*targetDate).Before(CivilDate(today)) {
		return entity.TaskStatusDue
	}
	return entity.TaskStatusOpen
}
