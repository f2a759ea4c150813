package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// PreviewBody is the request of POST /api/v1/evaluation/preview. Dates are YYYY-MM-DD.
type PreviewBody struct {
	QualityPercentage    *float64                   `json:"quality_percentage"`
	PriorityMultiplier   *float64                   `json:"priority_multiplier"`
	TargetDate           string                     `json:"target_date"`
	CompletionDate       string                     `json:"completion_date"`
	PercentageCompletion float64                    `json:"percentage_completion"`
	ManagerClosure       bool                       `json:"manager_closure"`
	Settings             *entity.EvaluationSettings `json:"settings"`
}

// EvaluateBody is the manager's evaluation form. An empty body evaluates as of today.
type EvaluateBody struct {
	QualityID *int64 `json:"quality_id"`
	CloseDate string `json:"close_date"`
	Comments  string `json:"comments"`
}

// CompletionBody carries the employee's progress update
type CompletionBody struct {
	PercentageCompletion *float64 `json:"percentage_completion" binding:"required"`
}

// SubmitBody carries the employee's work submission
type SubmitBody struct {
	Submission string `json:"submission" binding:"required"`
}

// QualityBody changes the quality rating of a task
type QualityBody struct {
	QualityID int64 `json:"quality_id" binding:"required"`
}

// ReminderBody schedules a one-off reminder
type ReminderBody struct {
	RecipientID int64  `json:"recipient_id" binding:"required"`
	Date        string `json:"date" binding:"required"`
	Message     string `json:"message"`
}

// PreviewEvaluation handles POST /api/v1/evaluation/preview
func (h *Handlers) PreviewEvaluation(c *gin.Context) {
	var body PreviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	target, err := parseDate("target_date", body.TargetDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	completion, err := parseDate("completion_date", body.CompletionDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.services.Evaluation.Preview(c.Request.Context(), service.PreviewRequest{
		QualityPercentage:    body.QualityPercentage,
		PriorityMultiplier:   body.PriorityMultiplier,
		TargetDate:           target,
		CompletionDate:       completion,
		PercentageCompletion: body.PercentageCompletion,
		ManagerClosure:       body.ManagerClosure,
		Settings:             body.Settings,
	})
	if err != nil {
		h.fail(c, err, "failed to preview evaluation")
		return
	}
	ok(c, result)
}

// GetSettings handles GET /api/v1/settings/evaluation
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.services.Settings.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to load evaluation settings")
		return
	}
	ok(c, settings)
}

// UpdateSettings handles PUT /api/v1/settings/evaluation
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var body entity.EvaluationSettings
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	settings, err := h.services.Settings.Update(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err, "failed to update evaluation settings")
		return
	}
	ok(c, settings)
}

// EvaluateTask handles POST /api/v1/tasks/:id/evaluate
func (h *Handlers) EvaluateTask(c *gin.Context) {
	h.evaluate(c, h.services.Evaluation.EvaluateTask, "failed to evaluate task")
}

// CloseIncompleteTask handles POST /api/v1/tasks/:id/close-incomplete
func (h *Handlers) CloseIncompleteTask(c *gin.Context) {
	h.evaluate(c, h.services.Evaluation.CloseIncompleteTask, "failed to close task")
}

type evaluateFunc func(ctx context.Context, taskID, actorID int64, req service.EvaluateRequest) (*entity.Task, error)

func (h *Handlers) evaluate(c *gin.Context, fn evaluateFunc, msg string) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var body EvaluateBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	closeDate, err := parseDate("close_date", body.CloseDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	task, err := fn(c.Request.Context(), taskID, actor, service.EvaluateRequest{
		QualityID: body.QualityID,
		CloseDate: closeDate,
		Comments:  body.Comments,
	})
	if err != nil {
		h.fail(c, err, msg)
		return
	}
	ok(c, task)
}

// UpdateCompletion handles PUT /api/v1/tasks/:id/completion
func (h *Handlers) UpdateCompletion(c *gin.Context) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var body CompletionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Evaluation.UpdateCompletion(c.Request.Context(), taskID, actor, *body.PercentageCompletion)
	if err != nil {
		h.fail(c, err, "failed to update completion")
		return
	}
	ok(c, task)
}

// SubmitWork handles POST /api/v1/tasks/:id/submit
func (h *Handlers) SubmitWork(c *gin.Context) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var body SubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Evaluation.SubmitWork(c.Request.Context(), taskID, actor, strings.TrimSpace(body.Submission))
	if err != nil {
		h.fail(c, err, "failed to submit work")
		return
	}
	ok(c, task)
}

// ChangeQuality handles PUT /api/v1/tasks/:id/quality
func (h *Handlers) ChangeQuality(c *gin.Context) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var body QualityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.services.Evaluation.ChangeQuality(c.Request.Context(), taskID, actor, body.QualityID)
	if err != nil {
		h.fail(c, err, "failed to change quality")
		return
	}
	ok(c, task)
}

// UploadAttachment handles POST /api/v1/tasks/:id/attachments (multipart field "file")
func (h *Handlers) UploadAttachment(c *gin.Context) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing multipart file field \"file\"")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("failed to open upload: %w", err), "failed to read upload")
		return
	}
	defer file.Close()

	att, err := h.services.Attachments.Upload(c.Request.Context(), taskID, actor, header.Filename, file)
	if err != nil {
		h.fail(c, err, "failed to store attachment")
		return
	}
	created(c, att)
}

// ScheduleReminder handles POST /api/v1/tasks/:id/reminders
func (h *Handlers) ScheduleReminder(c *gin.Context) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var body ReminderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	day, err := parseDate("date", body.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	reminder, err := h.services.Reminders.Schedule(c.Request.Context(), taskID, body.RecipientID, *day, body.Message, actor)
	if err != nil {
		h.fail(c, err, "failed to schedule reminder")
		return
	}
	created(c, reminder)
}
