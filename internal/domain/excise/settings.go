package excise

import (
	"context"
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

// BreweryCategory is the regulatory size category that selects the tax rate.
type BreweryCategory string

const (
	CategoryA BreweryCategory = "A"
	CategoryB BreweryCategory = "B"
	CategoryC BreweryCategory = "C"
	CategoryD BreweryCategory = "D"
	CategoryE BreweryCategory = "E"
)

// Valid reports whether c is a known category.
func (c BreweryCategory) Valid() bool {
	switch c {
	case CategoryA, CategoryB, CategoryC, CategoryD, CategoryE:
		return true
	}
	return false
}

// TaxPoint is the movement type at which tax liability is recognized.
type TaxPoint string

const (
	TaxOnProduction TaxPoint = "production"
	TaxOnRelease    TaxPoint = "release"
)

// Settings is the per-tenant excise configuration. It is loaded once per
// request and passed into resolvers and the deriver as a value, never
// re-read mid-transaction.
type Settings struct {
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	Enabled bool `db:"enabled" json:"enabled"`

	// Category is empty until the operator configures it; an empty category
	// is a reportable precondition gap, not an error.
	Category BreweryCategory `db:"category" json:"category,omitempty"`

	TaxPoint    TaxPoint    `db:"tax_point" json:"taxPoint"`
	PlatoSource PlatoSource `db:"plato_source" json:"platoSource"`

	// LossNormPct is the tolerated loss norm, informational only.
	LossNormPct types.Decimal `db:"loss_norm_pct" json:"lossNormPct"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultSettings returns the documented defaults for a tenant with no
// excise configuration stored yet.
func DefaultSettings(tenantID id.ID) Settings {
	return Settings{
		TenantID:    tenantID,
		Enabled:     false,
		TaxPoint:    TaxOnRelease,
		PlatoSource: PlatoFromMeasurement,
		LossNormPct: types.Zero(),
	}
}

// IsTaxable reports whether a movement of the given type recognizes tax
// under these settings. Loss is never taxable regardless of tax point.
func (s Settings) IsTaxable(t MovementType) bool {
	switch s.TaxPoint {
	case TaxOnProduction:
		return t == MovementProduction
	case TaxOnRelease:
		return t == MovementRelease
	}
	return false
}

// Validate checks settings invariants.
func (s *Settings) Validate(ctx context.Context) error {
	if s.Category != "" && !s.Category.Valid() {
		return apperror.NewValidation("invalid brewery category").
			WithDetail("field", "category").
			WithDetail("value", string(s.Category))
	}

	if s.TaxPoint != TaxOnProduction && s.TaxPoint != TaxOnRelease {
		return apperror.NewValidation("invalid tax point").
			WithDetail("field", "taxPoint").
			WithDetail("value", string(s.TaxPoint))
	}

	switch s.PlatoSource {
	case PlatoFromMeasurement, PlatoFromRecipe, PlatoManual:
	default:
		return apperror.NewValidation("invalid plato source").
			WithDetail("field", "platoSource").
			WithDetail("value", string(s.PlatoSource))
	}

	if s.LossNormPct.Sign() < 0 {
		return apperror.NewValidation("loss norm must not be negative").
			WithDetail("field", "lossNormPct")
	}

	return nil
}
