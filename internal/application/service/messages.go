package service

import (
	"fmt"
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

const snippetLength = 40

// snippet shortens an issue/action for notification text
func snippet(s string) string {
	r := []rune(s)
	if len(r) > snippetLength {
		r = r[:snippetLength]
	}
	return string(r)
}

// TaskLink is the site-relative link to a task page
func TaskLink(taskID int64) string {
	return fmt.Sprintf("/projects/task/%d/", taskID)
}

func evaluatedMessage(issueAction string, finalScore float64) string {
	return fmt.Sprintf("Your task '%s...' has been evaluated. Final Score: %.1f%%", snippet(issueAction), finalScore)
}

func closedByManagerMessage(issueAction string, finalScore float64, penaltyApplied bool) string {
	notice := ""
	if penaltyApplied {
		notice = " (Manager closure penalty applied)"
	}
	return fmt.Sprintf("Your task '%s...' has been closed by your manager. Final Score: %.1f%%%s", snippet(issueAction), finalScore, notice)
}

func reevaluatedMessage(issueAction string, finalScore float64) string {
	return fmt.Sprintf("Your task '%s...' has been re-evaluated. Final Score: %.1f%%", snippet(issueAction), finalScore)
}

var statusPhrases = map[string]string{
	entity.TaskStatusOpen:   "is now open",
	entity.TaskStatusDue:    "is now due",
	entity.TaskStatusClosed: "has been completed",
}

// statusChangedMessage returns "" for statuses without a phrase
func statusChangedMessage(issueAction, status string) string {
	phrase, ok := statusPhrases[status]
	if !ok {
		return ""
	}
	return fmt.Sprintf("Your task '%s...' %s.", snippet(issueAction), phrase)
}

var bulkStatusPhrases = map[string]string{
	entity.TaskStatusClosed: "has been completed automatically (100% completion)",
	entity.TaskStatusDue:    "is now due (past target date)",
	entity.TaskStatusOpen:   "is now open (not yet due by target date)",
}

func bulkStatusMessage(issueAction, status string) string {
	return fmt.Sprintf("Your task '%s...' %s.", snippet(issueAction), bulkStatusPhrases[status])
}

func submittedMessage(employeeName, issueAction string) string {
	return fmt.Sprintf("%s submitted a text update for task '%s...'", employeeName, snippet(issueAction))
}

func dueSoonMessage(issueAction string, target time.Time, days int) string {
	return fmt.Sprintf("Reminder: Your task '%s...' is due on %s (in %d days).", snippet(issueAction), target.Format("2006-01-02"), days)
}

func awaitingEvaluationMessage(issueAction, employeeName string) string {
	return fmt.Sprintf("Reminder: Task '%s...' submitted by %s is awaiting your evaluation/approval.", snippet(issueAction), employeeName)
}

func scheduledReminderMessage(issueAction string, day time.Time) string {
	return fmt.Sprintf("Reminder: Task '%s...' scheduled for %s.", snippet(issueAction), day.Format("2006-01-02"))
}
