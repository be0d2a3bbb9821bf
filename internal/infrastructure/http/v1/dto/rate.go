package dto

import (
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/types"
	"brauer/internal/domain/excise"
)

// CreateRateRequest creates a tenant-specific excise rate.
type CreateRateRequest struct {
	Category       string     `json:"category" binding:"required"`
	RatePerPlatoHl string     `json:"ratePerPlatoHl" binding:"required"`
	ValidFrom      time.Time  `json:"validFrom" binding:"required"`
	ValidTo        *time.Time `json:"validTo,omitempty"`
}

// ToEntity converts the request into a rate owned by the tenant.
func (r *CreateRateRequest) ToEntity(tenantID id.ID) (*excise.Rate, error) {
	rate, err := types.NewFromString(r.RatePerPlatoHl)
	if err != nil {
		return nil, apperror.NewValidation("invalid ratePerPlatoHl").WithDetail("value", r.RatePerPlatoHl)
	}

	return &excise.Rate{
		ID:             id.New(),
		TenantID:       &tenantID,
		Category:       excise.BreweryCategory(r.Category),
		RatePerPlatoHl: rate,
		ValidFrom:      r.ValidFrom,
		ValidTo:        r.ValidTo,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// RateResponse is the API view of an excise rate.
type RateResponse struct {
	ID             string     `json:"id"`
	TenantID       *string    `json:"tenantId,omitempty"`
	Category       string     `json:"category"`
	RatePerPlatoHl string     `json:"ratePerPlatoHl"`
	ValidFrom      time.Time  `json:"validFrom"`
	ValidTo        *time.Time `json:"validTo,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// FromRate maps a domain rate to its API representation.
func FromRate(r *excise.Rate) RateResponse {
	return RateResponse{
		ID:             r.ID.String(),
		TenantID:       idString(r.TenantID),
		Category:       string(r.Category),
		RatePerPlatoHl: r.RatePerPlatoHl.String(),
		ValidFrom:      r.ValidFrom,
		ValidTo:        r.ValidTo,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
	}
}

// FromRates maps a slice of rates.
func FromRates(rates []excise.Rate) []RateResponse {
	out := make([]RateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, FromRate(&rates[i]))
	}
	return out
}
