package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/http/v1/dto"
)

// MovementHandler handles HTTP requests for ledger movements.
type MovementHandler struct {
	*BaseHandler
	ledger *excise.Ledger
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, ledger *excise.Ledger) *MovementHandler {
	return &MovementHandler{BaseHandler: base, ledger: ledger}
}

// Create handles POST /excise/movements.
func (h *MovementHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenantID, err := tenant.GetTenant(ctx)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	m, err := req.ToEntity(tenantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.ledger.Create(ctx, m); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromMovement(m))
}

// Get handles GET /excise/movements/:id.
func (h *MovementHandler) Get(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	m, err := h.ledger.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(m))
}

// Update handles PATCH /excise/movements/:id.
func (h *MovementHandler) Update(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	update, err := req.ToUpdate()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.ledger.Update(c.Request.Context(), movementID, update)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(m))
}

// Delete handles DELETE /excise/movements/:id.
func (h *MovementHandler) Delete(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /excise/movements.
func (h *MovementHandler) List(c *gin.Context) {
	filter := excise.DefaultMovementFilter()
	filter.Limit = h.ParseIntQuery(c, "limit", filter.Limit)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", filter.OrderBy)

	if period := c.Query("period"); period != "" {
		filter.Period = &period
	}
	if status := c.Query("status"); status != "" {
		s := excise.MovementStatus(status)
		filter.Status = &s
	}
	if mType := c.Query("type"); mType != "" {
		t := excise.MovementType(mType)
		filter.Type = &t
	}
	if batchID := c.Query("batchId"); batchID != "" {
		if parsed, err := id.Parse(batchID); err == nil {
			filter.BatchID = &parsed
		}
	}
	if issueID := c.Query("stockIssueId"); issueID != "" {
		if parsed, err := id.Parse(issueID); err == nil {
			filter.StockIssueID = &parsed
		}
	}
	if warehouseID := c.Query("warehouseId"); warehouseID != "" {
		if parsed, err := id.Parse(warehouseID); err == nil {
			filter.WarehouseID = &parsed
		}
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromMovements(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
