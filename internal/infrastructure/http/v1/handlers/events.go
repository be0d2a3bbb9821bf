package handlers

import (
	"github.com/gin-gonic/gin"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/http/v1/dto"
)

// EventsHandler receives stock-document lifecycle notifications and drives
// movement derivation. The inventory service calls these endpoints after a
// document changes state.
type EventsHandler struct {
	*BaseHandler
	deriver *excise.Deriver
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(base *BaseHandler, deriver *excise.Deriver) *EventsHandler {
	return &EventsHandler{BaseHandler: base, deriver: deriver}
}

// StockIssueConfirmed handles POST /excise/events/stock-issue/:id/confirmed.
// Derivation is idempotent: a repeated notification returns the empty set.
func (h *EventsHandler) StockIssueConfirmed(c *gin.Context) {
	issueID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	movements, err := h.deriver.DeriveFromStockIssue(c.Request.Context(), issueID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"movements": fromMovementValues(movements)})
}

// StockIssueCancelled handles POST /excise/events/stock-issue/:id/cancelled.
// Issues reversing adjustments instead of touching the original movements.
func (h *EventsHandler) StockIssueCancelled(c *gin.Context) {
	issueID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	movements, err := h.deriver.ReverseForStockIssue(c.Request.Context(), issueID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"movements": fromMovementValues(movements)})
}

// BatchPackagingLoss handles POST /excise/events/batch/:id/packaging-loss.
func (h *EventsHandler) BatchPackagingLoss(c *gin.Context) {
	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	m, err := h.deriver.DeriveLossFromPackaging(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if m == nil {
		h.OK(c, gin.H{"movement": nil})
		return
	}

	h.OK(c, gin.H{"movement": dto.FromMovement(m)})
}

// Reconcile handles POST /excise/reconcile. Sweeps confirmed issues that
// never produced movements, typically after missed notifications.
func (h *EventsHandler) Reconcile(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 100)

	derived, err := h.deriver.Reconcile(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"derived": derived})
}

func fromMovementValues(movements []excise.Movement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		out = append(out, dto.FromMovement(&movements[i]))
	}
	return out
}
