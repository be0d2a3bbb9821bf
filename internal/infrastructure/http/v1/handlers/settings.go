package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/http/v1/dto"
)

// SettingsHandler handles HTTP requests for tenant excise settings.
type SettingsHandler struct {
	*BaseHandler
	settings excise.SettingsRepository
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(base *BaseHandler, settings excise.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{BaseHandler: base, settings: settings}
}

// Get handles GET /excise/settings. Returns defaults when the tenant has no
// stored configuration.
func (h *SettingsHandler) Get(c *gin.Context) {
	current, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSettings(current))
}

// Update handles PUT /excise/settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	current, err := h.settings.Get(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(&current); err != nil {
		h.Error(c, err)
		return
	}
	if err := current.Validate(ctx); err != nil {
		h.Error(c, err)
		return
	}

	current.UpdatedAt = time.Now().UTC()
	if err := h.settings.Save(ctx, current); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSettings(current))
}
