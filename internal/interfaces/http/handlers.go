package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/workflow"
)

// dateLayout is the wire format of civil dates in queries and bodies
const dateLayout = "2006-01-02"

var errMissingUser = errors.New("missing or invalid " + HeaderUserID + " header")

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Version is reported by the health check
var Version = "dev"

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
		},
	})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail maps a service error to a status code. Client errors expose the error
// text; anything else is logged and reported with the generic msg.
func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			"request_id", c.GetString("request_id"),
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(status, Response{Success: false, Error: msg})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrTaskNotFound),
		errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, entity.ErrKPINotFound),
		errors.Is(err, entity.ErrNotificationNotFound),
		errors.Is(err, entity.ErrQualityNotFound),
		errors.Is(err, entity.ErrPriorityNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrAlreadyEvaluated),
		errors.Is(err, entity.ErrAlreadyComplete),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, entity.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, entity.ErrKPIWeightExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrQualityRequired),
		errors.Is(err, entity.ErrInvalidSettings),
		errors.Is(err, entity.ErrInvalidKPI),
		errors.Is(err, entity.ErrInvalidPeriod),
		errors.Is(err, entity.ErrInvalidCompletion),
		errors.Is(err, entity.ErrUnsupportedFile),
		errors.Is(err, entity.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actorID reads the acting user from the X-User-ID header
func actorID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingUser
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt64 returns 0 when the parameter is absent
func queryInt64(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// parseDate parses an optional YYYY-MM-DD value into midnight UTC
func parseDate(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}

// queryPeriod reads the optional start and end query parameters
func queryPeriod(c *gin.Context) (start, end *time.Time, err error) {
	if start, err = parseDate("start", c.Query("start")); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate("end", c.Query("end")); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// requireActor writes the error response itself when the header is unusable
func (h *Handlers) requireActor(c *gin.Context) (int64, bool) {
	id, err := actorID(c)
	if err != nil {
		h.fail(c, err, "")
		return 0, false
	}
	return id, true
}

// NotificationsResponse wraps a user's notification list
type NotificationsResponse struct {
	Notifications []*entity.Notification `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	items, err := h.services.Notifications.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.fail(c, err, "failed to list notifications")
		return
	}
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	ok(c, NotificationsResponse{Notifications: items, UnreadCount: unread})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.services.Notifications.MarkRead(c.Request.Context(), userID, id); err != nil {
		h.fail(c, err, "failed to mark notification read")
		return
	}
	ok(c, gin.H{"id": id, "read": true})
}

// UpdateStatuses handles POST /api/v1/admin/statuses/update
func (h *Handlers) UpdateStatuses(c *gin.Context) {
	summary, err := h.services.Statuses.UpdateAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to update task statuses")
		return
	}
	ok(c, summary)
}

// SendReminders handles POST /api/v1/admin/reminders/send
func (h *Handlers) SendReminders(c *gin.Context) {
	summary, err := h.services.Reminders.SendDue(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to send reminders")
		return
	}
	ok(c, gin.H{
		"due_soon":            summary.DueSoon,
		"awaiting_evaluation": summary.AwaitingEvaluation,
		"scheduled":           summary.Scheduled,
		"total":               summary.Total(),
	})
}
