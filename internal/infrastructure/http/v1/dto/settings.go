package dto

import (
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/types"
	"brauer/internal/domain/excise"
)

// SettingsResponse is the API view of tenant excise settings.
type SettingsResponse struct {
	Enabled     bool      `json:"enabled"`
	Category    string    `json:"category,omitempty"`
	TaxPoint    string    `json:"taxPoint"`
	PlatoSource string    `json:"platoSource"`
	LossNormPct string    `json:"lossNormPct"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromSettings maps domain settings to the API representation.
func FromSettings(s excise.Settings) SettingsResponse {
	return SettingsResponse{
		Enabled:     s.Enabled,
		Category:    string(s.Category),
		TaxPoint:    string(s.TaxPoint),
		PlatoSource: string(s.PlatoSource),
		LossNormPct: s.LossNormPct.String(),
		UpdatedAt:   s.UpdatedAt,
	}
}

// UpdateSettingsRequest carries a partial settings update.
type UpdateSettingsRequest struct {
	Enabled     *bool   `json:"enabled,omitempty"`
	Category    *string `json:"category,omitempty"`
	TaxPoint    *string `json:"taxPoint,omitempty"`
	PlatoSource *string `json:"platoSource,omitempty"`
	LossNormPct *string `json:"lossNormPct,omitempty"`
}

// ApplyTo merges the request into existing settings.
func (r *UpdateSettingsRequest) ApplyTo(s *excise.Settings) error {
	if r.Enabled != nil {
		s.Enabled = *r.Enabled
	}
	if r.Category != nil {
		s.Category = excise.BreweryCategory(*r.Category)
	}
	if r.TaxPoint != nil {
		s.TaxPoint = excise.TaxPoint(*r.TaxPoint)
	}
	if r.PlatoSource != nil {
		s.PlatoSource = excise.PlatoSource(*r.PlatoSource)
	}
	if r.LossNormPct != nil {
		pct, err := types.NewFromString(*r.LossNormPct)
		if err != nil {
			return apperror.NewValidation("invalid lossNormPct").WithDetail("value", *r.LossNormPct)
		}
		s.LossNormPct = pct
	}
	return nil
}
