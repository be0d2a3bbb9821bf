package dto

import (
	"time"

	"brauer/internal/domain/excise"
)

// GenerateReportRequest requests (re)generation of a monthly report.
type GenerateReportRequest struct {
	Period string `json:"period" binding:"required"`
}

// TaxDetailResponse is one Plato group of the report's tax breakdown.
type TaxDetailResponse struct {
	Plato    string `json:"plato"`
	VolumeHl string `json:"volumeHl"`
	Tax      string `json:"tax"`
}

// ReportResponse is the API view of a monthly report.
type ReportResponse struct {
	ID     string `json:"id"`
	Period string `json:"period"`

	OpeningBalanceHl string `json:"openingBalanceHl"`
	ProductionHl     string `json:"productionHl"`
	TransferInHl     string `json:"transferInHl"`
	ReleaseHl        string `json:"releaseHl"`
	TransferOutHl    string `json:"transferOutHl"`
	LossHl           string `json:"lossHl"`
	DestructionHl    string `json:"destructionHl"`
	AdjustmentHl     string `json:"adjustmentHl"`
	ClosingBalanceHl string `json:"closingBalanceHl"`

	TotalTax   string              `json:"totalTax"`
	TaxDetails []TaxDetailResponse `json:"taxDetails"`

	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	SubmittedBy string     `json:"submittedBy,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromReport maps a domain report to its API representation.
func FromReport(r *excise.MonthlyReport) ReportResponse {
	details := make([]TaxDetailResponse, 0, len(r.TaxDetails))
	for _, d := range r.TaxDetails {
		details = append(details, TaxDetailResponse{
			Plato:    d.Plato.String(),
			VolumeHl: d.VolumeHl.String(),
			Tax:      d.Tax.String(),
		})
	}

	return ReportResponse{
		ID:               r.ID.String(),
		Period:           r.Period,
		OpeningBalanceHl: r.OpeningBalanceHl.String(),
		ProductionHl:     r.ProductionHl.String(),
		TransferInHl:     r.TransferInHl.String(),
		ReleaseHl:        r.ReleaseHl.String(),
		TransferOutHl:    r.TransferOutHl.String(),
		LossHl:           r.LossHl.String(),
		DestructionHl:    r.DestructionHl.String(),
		AdjustmentHl:     r.AdjustmentHl.String(),
		ClosingBalanceHl: r.ClosingBalanceHl.String(),
		TotalTax:         r.TotalTax.String(),
		TaxDetails:       details,
		Status:           string(r.Status),
		SubmittedAt:      r.SubmittedAt,
		SubmittedBy:      r.SubmittedBy,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// FromReports maps a slice of reports.
func FromReports(reports []*excise.MonthlyReport) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, FromReport(r))
	}
	return out
}
