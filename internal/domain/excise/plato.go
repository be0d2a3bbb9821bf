package excise

import (
	"context"
	"fmt"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
	"brauer/internal/domain/stockdoc"
)

// PlatoResult is the outcome of Plato resolution. Both fields are nil when
// no Plato is resolvable; callers must treat that as a blocking precondition
// wherever taxable computation is required.
type PlatoResult struct {
	Plato  *types.Decimal
	Source *PlatoSource
}

// Resolved reports whether a Plato value was found.
func (p PlatoResult) Resolved() bool {
	return p.Plato != nil
}

// PlatoResolver determines the taxable extract degree for a batch.
//
// The cascade order is fixed; the configured source only selects the
// preferred first attempt. The resolver is deterministic and side-effect
// free: pre-validation and the deriver both call it and must agree.
type PlatoResolver struct {
	batches stockdoc.BatchReader
}

// NewPlatoResolver creates a Plato resolver.
func NewPlatoResolver(batches stockdoc.BatchReader) *PlatoResolver {
	return &PlatoResolver{batches: batches}
}

// Resolve looks up the Plato for a batch under the given settings.
func (r *PlatoResolver) Resolve(ctx context.Context, batchID id.ID, settings Settings) (PlatoResult, error) {
	batch, err := r.batches.GetBatch(ctx, batchID)
	if err != nil {
		return PlatoResult{}, fmt.Errorf("get batch: %w", err)
	}
	return resolvePlato(batch, settings), nil
}

// resolvePlato applies the cascade to an already-loaded batch.
func resolvePlato(batch *stockdoc.Batch, settings Settings) PlatoResult {
	if batch == nil {
		return PlatoResult{}
	}

	if settings.PlatoSource == PlatoFromMeasurement && batch.MeasuredPlato != nil {
		return platoResult(*batch.MeasuredPlato, PlatoFromMeasurement)
	}

	if batch.RecipePlato != nil {
		return platoResult(*batch.RecipePlato, PlatoFromRecipe)
	}

	// Manual entry is stored as a measurement, so a manual-preferring tenant
	// still reads it from the measurement field.
	if settings.PlatoSource == PlatoManual && batch.MeasuredPlato != nil {
		return platoResult(*batch.MeasuredPlato, PlatoFromMeasurement)
	}

	return PlatoResult{}
}

func platoResult(plato types.Decimal, source PlatoSource) PlatoResult {
	return PlatoResult{Plato: &plato, Source: &source}
}
