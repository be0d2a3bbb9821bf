package excise

import (
	"context"
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

// Rate is one row of the versioned tax rate table: currency per °Plato per
// hectoliter for a brewery category, valid within [ValidFrom, ValidTo).
// TenantID is nil for global fallback rows.
type Rate struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID *id.ID `db:"tenant_id" json:"tenantId,omitempty"`

	Category BreweryCategory `db:"category" json:"category"`

	// RatePerPlatoHl is the tax rate in currency per degree Plato per hectoliter.
	RatePerPlatoHl types.Decimal `db:"rate_per_plato_hl" json:"ratePerPlatoHl"`

	ValidFrom time.Time  `db:"valid_from" json:"validFrom"`
	ValidTo   *time.Time `db:"valid_to" json:"validTo,omitempty"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Validate checks rate invariants.
func (r *Rate) Validate(ctx context.Context) error {
	if !r.Category.Valid() {
		return apperror.NewValidation("invalid brewery category").
			WithDetail("field", "category").
			WithDetail("value", string(r.Category))
	}
	if r.RatePerPlatoHl.Sign() <= 0 {
		return apperror.NewValidation("rate must be positive").
			WithDetail("field", "ratePerPlatoHl")
	}
	if r.ValidFrom.IsZero() {
		return apperror.NewValidation("validFrom is required").
			WithDetail("field", "validFrom")
	}
	if r.ValidTo != nil && r.ValidTo.Before(r.ValidFrom) {
		return apperror.NewValidation("validTo must not precede validFrom").
			WithDetail("field", "validTo")
	}
	return nil
}

// AppliesOn reports whether the rate's validity window covers the date.
func (r *Rate) AppliesOn(onDate time.Time) bool {
	if !r.IsActive {
		return false
	}
	if onDate.Before(r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && onDate.After(*r.ValidTo) {
		return false
	}
	return true
}

// RateRepository provides access to the rate table, tenant-scoped via context.
type RateRepository interface {
	// FindApplicable returns every active rate (tenant-specific and global)
	// for the category whose validity window covers onDate.
	FindApplicable(ctx context.Context, category BreweryCategory, onDate time.Time) ([]Rate, error)

	Create(ctx context.Context, rate *Rate) error
	Deactivate(ctx context.Context, rateID id.ID) error
	List(ctx context.Context, category *BreweryCategory) ([]Rate, error)
}

// RateResolver selects the applicable tax rate for a category on a date.
type RateResolver struct {
	repo RateRepository
}

// NewRateResolver creates a rate resolver.
func NewRateResolver(repo RateRepository) *RateResolver {
	return &RateResolver{repo: repo}
}

// CurrentRate returns the rate to apply, or nil when none is configured.
// Tenant-specific rows take precedence over global ones; among equals the
// most recent ValidFrom wins. Absence is a reportable state, not an error.
func (r *RateResolver) CurrentRate(ctx context.Context, category BreweryCategory, onDate time.Time) (*Rate, error) {
	candidates, err := r.repo.FindApplicable(ctx, category, onDate)
	if err != nil {
		return nil, err
	}

	var best *Rate
	for i := range candidates {
		c := &candidates[i]
		if !c.AppliesOn(onDate) {
			continue
		}
		if best == nil || preferRate(c, best) {
			best = c
		}
	}
	return best, nil
}

// preferRate reports whether a should replace b as the selected rate.
func preferRate(a, b *Rate) bool {
	aTenant := a.TenantID != nil
	bTenant := b.TenantID != nil
	if aTenant != bTenant {
		return aTenant
	}
	return a.ValidFrom.After(b.ValidFrom)
}
