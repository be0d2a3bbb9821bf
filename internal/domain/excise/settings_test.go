package excise

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brauer/internal/core/types"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings(testTenant)

	assert.False(t, s.Enabled)
	assert.Empty(t, s.Category)
	assert.Equal(t, TaxOnRelease, s.TaxPoint)
	assert.Equal(t, PlatoFromMeasurement, s.PlatoSource)
	assert.True(t, s.LossNormPct.IsZero())
}

func TestSettingsIsTaxable(t *testing.T) {
	s := enabledSettings()

	s.TaxPoint = TaxOnRelease
	assert.True(t, s.IsTaxable(MovementRelease))
	assert.False(t, s.IsTaxable(MovementProduction))
	assert.False(t, s.IsTaxable(MovementLoss))

	s.TaxPoint = TaxOnProduction
	assert.True(t, s.IsTaxable(MovementProduction))
	assert.False(t, s.IsTaxable(MovementRelease))
	assert.False(t, s.IsTaxable(MovementLoss))
}

func TestSettingsValidate(t *testing.T) {
	valid := enabledSettings()
	assert.NoError(t, valid.Validate(testCtx()))

	empty := enabledSettings()
	empty.Category = ""
	assert.NoError(t, empty.Validate(testCtx()), "unset category is a reportable gap, not invalid")

	bad := enabledSettings()
	bad.Category = "X"
	assert.Error(t, bad.Validate(testCtx()))

	badPoint := enabledSettings()
	badPoint.TaxPoint = "shipment"
	assert.Error(t, badPoint.Validate(testCtx()))

	negativeNorm := enabledSettings()
	negativeNorm.LossNormPct = types.MustDecimal("-1")
	assert.Error(t, negativeNorm.Validate(testCtx()))
}
