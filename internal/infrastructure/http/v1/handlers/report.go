package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/export"
	"brauer/internal/infrastructure/http/v1/dto"
)

// ReportHandler handles HTTP requests for monthly reports.
type ReportHandler struct {
	*BaseHandler
	reports *excise.Reports
}

// NewReportHandler creates a new report handler.
func NewReportHandler(base *BaseHandler, reports *excise.Reports) *ReportHandler {
	return &ReportHandler{BaseHandler: base, reports: reports}
}

// Generate handles POST /excise/reports/generate. Regenerating a draft for
// the same period overwrites it.
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportRequest
	if !h.BindJSON(c, &req) {
		return
	}

	report, err := h.reports.Generate(c.Request.Context(), req.Period)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReport(report))
}

// Get handles GET /excise/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	reportID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.reports.GetByID(c.Request.Context(), reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReport(report))
}

// List handles GET /excise/reports.
func (h *ReportHandler) List(c *gin.Context) {
	filter := excise.ReportFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if status := c.Query("status"); status != "" {
		s := excise.ReportStatus(status)
		filter.Status = &s
	}
	if from := c.Query("periodFrom"); from != "" {
		filter.PeriodFrom = &from
	}
	if to := c.Query("periodTo"); to != "" {
		filter.PeriodTo = &to
	}

	result, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromReports(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Submit handles POST /excise/reports/:id/submit.
func (h *ReportHandler) Submit(c *gin.Context) {
	reportID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReport(report))
}

// Revert handles POST /excise/reports/:id/revert.
func (h *ReportHandler) Revert(c *gin.Context) {
	reportID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.reports.Revert(c.Request.Context(), reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReport(report))
}

// Export handles GET /excise/reports/:id/export. Streams the report as an
// XLSX workbook.
func (h *ReportHandler) Export(c *gin.Context) {
	reportID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.reports.GetByID(c.Request.Context(), reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReportXLSX(&buf, report); err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	filename := fmt.Sprintf("excise-report-%s.xlsx", report.Period)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes(),
	)
}
