package handlers

import (
	"github.com/gin-gonic/gin"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/http/v1/dto"
)

// RateHandler handles HTTP requests for excise rates.
type RateHandler struct {
	*BaseHandler
	rates excise.RateRepository
}

// NewRateHandler creates a new rate handler.
func NewRateHandler(base *BaseHandler, rates excise.RateRepository) *RateHandler {
	return &RateHandler{BaseHandler: base, rates: rates}
}

// Create handles POST /excise/rates.
func (h *RateHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateRateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenantID, err := tenant.GetTenant(ctx)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	rate, err := req.ToEntity(tenantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := rate.Validate(ctx); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.rates.Create(ctx, rate); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, rate.ID.String())
}

// List handles GET /excise/rates.
func (h *RateHandler) List(c *gin.Context) {
	var category *excise.BreweryCategory
	if raw := c.Query("category"); raw != "" {
		cat := excise.BreweryCategory(raw)
		category = &cat
	}

	rates, err := h.rates.List(c.Request.Context(), category)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRates(rates))
}

// Deactivate handles DELETE /excise/rates/:id. Rates are never hard deleted;
// history stays for past-period recalculation.
func (h *RateHandler) Deactivate(c *gin.Context) {
	rateID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.rates.Deactivate(c.Request.Context(), rateID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "rate deactivated")
}
