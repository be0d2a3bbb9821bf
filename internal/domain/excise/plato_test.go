package excise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brauer/internal/core/id"
	"brauer/internal/domain/stockdoc"
)

func TestResolvePlatoCascade(t *testing.T) {
	measured := decp("12.5")
	recipe := decp("12.0")

	tests := []struct {
		name       string
		source     PlatoSource
		batch      stockdoc.Batch
		wantPlato  string
		wantSource PlatoSource
		wantNone   bool
	}{
		{
			name:       "measurement preferred and present",
			source:     PlatoFromMeasurement,
			batch:      stockdoc.Batch{MeasuredPlato: measured, RecipePlato: recipe},
			wantPlato:  "12.5",
			wantSource: PlatoFromMeasurement,
		},
		{
			name:       "measurement preferred but absent falls back to recipe",
			source:     PlatoFromMeasurement,
			batch:      stockdoc.Batch{RecipePlato: recipe},
			wantPlato:  "12",
			wantSource: PlatoFromRecipe,
		},
		{
			name:       "recipe preferred skips measurement",
			source:     PlatoFromRecipe,
			batch:      stockdoc.Batch{MeasuredPlato: measured, RecipePlato: recipe},
			wantPlato:  "12",
			wantSource: PlatoFromRecipe,
		},
		{
			name:       "manual entry reads the measurement field",
			source:     PlatoManual,
			batch:      stockdoc.Batch{MeasuredPlato: measured},
			wantPlato:  "12.5",
			wantSource: PlatoFromMeasurement,
		},
		{
			name:     "nothing resolvable",
			source:   PlatoFromMeasurement,
			batch:    stockdoc.Batch{},
			wantNone: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := enabledSettings()
			settings.PlatoSource = tt.source

			got := resolvePlato(&tt.batch, settings)
			if tt.wantNone {
				assert.False(t, got.Resolved())
				assert.Nil(t, got.Plato)
				assert.Nil(t, got.Source)
				return
			}
			require.True(t, got.Resolved())
			assert.Equal(t, tt.wantPlato, got.Plato.String())
			assert.Equal(t, tt.wantSource, *got.Source)
		})
	}
}

func TestPlatoResolverLoadsBatch(t *testing.T) {
	stock := newFakeStock()
	batchID := id.New()
	stock.batches[batchID] = &stockdoc.Batch{ID: batchID, TenantID: testTenant, MeasuredPlato: decp("11.8")}

	resolver := NewPlatoResolver(stock)
	got, err := resolver.Resolve(testCtx(), batchID, enabledSettings())
	require.NoError(t, err)
	require.True(t, got.Resolved())
	assert.Equal(t, "11.8", got.Plato.String())

	_, err = resolver.Resolve(testCtx(), id.New(), enabledSettings())
	assert.Error(t, err)
}
