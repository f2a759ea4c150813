package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// GetProgress handles GET /api/v1/progress/:employee_id for the employee or their manager.
// Query: manager_id (default: the employee's supervisor), start, end, force.
func (h *Handlers) GetProgress(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid force %q", raw))
			return
		}
		force = parsed
	}
	h.progress(c, force)
}

// RecalculateProgress handles POST /api/v1/progress/:employee_id/recalculate
func (h *Handlers) RecalculateProgress(c *gin.Context) {
	h.progress(c, true)
}

func (h *Handlers) progress(c *gin.Context, force bool) {
	actor, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	employeeID, err := pathID(c, "employee_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.services.Progress.AuthorizeView(c.Request.Context(), actor, employeeID, force); err != nil {
		h.fail(c, err, "failed to authorize progress access")
		return
	}
	managerID, err := queryInt64(c, "manager_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	start, end, err := queryPeriod(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	progress, err := h.services.Progress.GetOrCalculate(c.Request.Context(), employeeID, managerID, start, end, force)
	if err != nil {
		h.fail(c, err, "failed to calculate progress")
		return
	}
	ok(c, progress)
}

// ExportProgress handles GET /api/v1/progress/export.
// Query: manager_id (default: the acting user), start, end, format (xlsx or pdf).
func (h *Handlers) ExportProgress(c *gin.Context) {
	managerID, err := queryInt64(c, "manager_id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if managerID == 0 {
		var okActor bool
		if managerID, okActor = h.requireActor(c); !okActor {
			return
		}
	}
	start, end, err := queryPeriod(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	format := c.DefaultQuery("format", entity.ExportFormatXLSX)

	// Render into memory first so failures can still be reported as JSON
	var buf bytes.Buffer
	result, err := h.services.Reports.ExportProgress(c.Request.Context(), managerID, start, end, format, &buf)
	if err != nil {
		h.fail(c, err, "failed to export progress")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, buf.Bytes())
}

// ListKPIs handles GET /api/v1/kpis for the acting manager
func (h *Handlers) ListKPIs(c *gin.Context) {
	managerID, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	kpis, err := h.services.KPIs.ListActive(c.Request.Context(), managerID)
	if err != nil {
		h.fail(c, err, "failed to list kpis")
		return
	}
	if kpis == nil {
		kpis = []entity.KPI{}
	}
	ok(c, kpis)
}

// CreateKPI handles POST /api/v1/kpis
func (h *Handlers) CreateKPI(c *gin.Context) {
	managerID, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	var body service.KPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	kpi, err := h.services.KPIs.Create(c.Request.Context(), managerID, body)
	if err != nil {
		h.fail(c, err, "failed to create kpi")
		return
	}
	created(c, kpi)
}

// UpdateKPI handles PUT /api/v1/kpis/:id
func (h *Handlers) UpdateKPI(c *gin.Context) {
	managerID, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	kpiID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var body service.KPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	kpi, err := h.services.KPIs.Update(c.Request.Context(), managerID, kpiID, body)
	if err != nil {
		h.fail(c, err, "failed to update kpi")
		return
	}
	ok(c, kpi)
}

// AvailableWeight handles GET /api/v1/kpis/available-weight
func (h *Handlers) AvailableWeight(c *gin.Context) {
	managerID, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	available, err := h.services.KPIs.AvailableWeight(c.Request.Context(), managerID)
	if err != nil {
		h.fail(c, err, "failed to compute available weight")
		return
	}
	ok(c, gin.H{"manager_id": managerID, "available_weight": available})
}
