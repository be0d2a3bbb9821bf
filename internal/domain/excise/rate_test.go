package excise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brauer/internal/core/types"
)

func TestRateResolverPrefersTenantSpecific(t *testing.T) {
	global := standardRate()
	global.RatePerPlatoHl = types.MustDecimal("1.00")

	tenantRate := standardRate()
	tenantRate.TenantID = &testTenant
	tenantRate.RatePerPlatoHl = types.MustDecimal("0.50")
	// Older validity must not matter: tenant scope beats recency.
	tenantRate.ValidFrom = date(2019, time.January, 1)

	resolver := NewRateResolver(&memRates{rates: []Rate{global, tenantRate}})

	got, err := resolver.CurrentRate(testCtx(), CategoryB, date(2025, time.June, 1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.RatePerPlatoHl.Equal(types.MustDecimal("0.50")))
}

func TestRateResolverLatestValidFromWins(t *testing.T) {
	older := standardRate()
	older.RatePerPlatoHl = types.MustDecimal("0.70")
	older.ValidFrom = date(2020, time.January, 1)

	newer := standardRate()
	newer.RatePerPlatoHl = types.MustDecimal("0.90")
	newer.ValidFrom = date(2024, time.January, 1)

	resolver := NewRateResolver(&memRates{rates: []Rate{older, newer}})

	got, err := resolver.CurrentRate(testCtx(), CategoryB, date(2025, time.June, 1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.RatePerPlatoHl.Equal(types.MustDecimal("0.90")))
}

func TestRateResolverRespectsValidityWindow(t *testing.T) {
	expired := standardRate()
	validTo := date(2023, time.December, 31)
	expired.ValidTo = &validTo

	inactive := standardRate()
	inactive.IsActive = false

	future := standardRate()
	future.ValidFrom = date(2030, time.January, 1)

	resolver := NewRateResolver(&memRates{rates: []Rate{expired, inactive, future}})

	got, err := resolver.CurrentRate(testCtx(), CategoryB, date(2025, time.June, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRateResolverAbsenceIsNotError(t *testing.T) {
	resolver := NewRateResolver(&memRates{})

	got, err := resolver.CurrentRate(testCtx(), CategoryD, date(2025, time.June, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRateValidate(t *testing.T) {
	valid := standardRate()
	assert.NoError(t, valid.Validate(testCtx()))

	badCategory := standardRate()
	badCategory.Category = "Z"
	assert.Error(t, badCategory.Validate(testCtx()))

	zeroRate := standardRate()
	zeroRate.RatePerPlatoHl = types.Zero()
	assert.Error(t, zeroRate.Validate(testCtx()))

	inverted := standardRate()
	before := inverted.ValidFrom.AddDate(-1, 0, 0)
	inverted.ValidTo = &before
	assert.Error(t, inverted.Validate(testCtx()))
}
