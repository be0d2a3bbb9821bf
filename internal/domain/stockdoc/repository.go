package stockdoc

import (
	"context"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

// IssueReader provides read access to stock documents.
type IssueReader interface {
	// GetIssue retrieves a stock issue with its lines.
	GetIssue(ctx context.Context, issueID id.ID) (*StockIssue, error)

	// IsExciseWarehouse reports whether the warehouse is subject to excise tracking.
	IsExciseWarehouse(ctx context.Context, warehouseID id.ID) (bool, error)

	// ConsumptionTrail reconstructs the FIFO chain for an outbound issue:
	// which source batches were depleted, how much, and at what Plato.
	// Returns an empty slice when no trail exists (legacy data).
	ConsumptionTrail(ctx context.Context, issueID id.ID) ([]BatchConsumption, error)

	// ListConfirmedWithoutMovements finds confirmed issues on excise warehouses
	// that have no excise movements yet. Feeds the reconciliation sweep.
	ListConfirmedWithoutMovements(ctx context.Context, limit int) ([]id.ID, error)
}

// BatchReader provides read access to production batches.
type BatchReader interface {
	GetBatch(ctx context.Context, batchID id.ID) (*Batch, error)
}

// BatchWriter mutates the excise bookkeeping fields on batches.
type BatchWriter interface {
	// AddExciseRelevantHl adjusts the accumulator by delta using a relative
	// SQL expression, so concurrent writers never race on read-modify-write.
	AddExciseRelevantHl(ctx context.Context, batchID id.ID, delta types.Decimal) error

	// SetExciseStatus bulk-updates the excise status of the given batches.
	SetExciseStatus(ctx context.Context, batchIDs []id.ID, status BatchExciseStatus) error
}
