package handlers

import (
	"github.com/gin-gonic/gin"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/domain/excise"
)

// PrevalidateHandler exposes excise readiness checks. Operators call these
// before confirming stock documents to learn whether derivation would run
// and what configuration is still missing.
type PrevalidateHandler struct {
	*BaseHandler
	checker *excise.Checker
}

// NewPrevalidateHandler creates a new prevalidation handler.
func NewPrevalidateHandler(base *BaseHandler, checker *excise.Checker) *PrevalidateHandler {
	return &PrevalidateHandler{BaseHandler: base, checker: checker}
}

// StockIssue handles GET /excise/prevalidate/stock-issue/:id.
func (h *PrevalidateHandler) StockIssue(c *gin.Context) {
	issueID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	result, err := h.checker.ForStockIssue(c.Request.Context(), issueID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Batch handles GET /excise/prevalidate/batch/:id.
func (h *PrevalidateHandler) Batch(c *gin.Context) {
	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	result, err := h.checker.ForBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
