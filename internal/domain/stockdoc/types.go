// Package stockdoc defines the narrow view of the stock-document and batch
// domains that the excise engine consumes. The engine never mutates documents;
// it only reads confirmed issues, the FIFO consumption trail behind them, and
// batch gravity data. The one write surface is the batch excise accumulator
// and excise status.
package stockdoc

import (
	"time"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

// IssueKind distinguishes inbound receipts from outbound issues.
type IssueKind string

const (
	KindReceipt IssueKind = "receipt"
	KindIssue   IssueKind = "issue"
)

// IssuePurpose is the declared business purpose of a stock document.
type IssuePurpose string

const (
	PurposeProductionIn IssuePurpose = "production_in"
	PurposeTransfer     IssuePurpose = "transfer"
	PurposeSale         IssuePurpose = "sale"
	PurposeWaste        IssuePurpose = "waste"
	PurposeOther        IssuePurpose = "other"
)

// IssueStatus is the document lifecycle state owned by the stock module.
type IssueStatus string

const (
	IssueDraft     IssueStatus = "draft"
	IssueConfirmed IssueStatus = "confirmed"
	IssueCancelled IssueStatus = "cancelled"
)

// StockIssue is the read-only header the excise engine sees.
type StockIssue struct {
	ID          id.ID        `db:"id" json:"id"`
	TenantID    id.ID        `db:"tenant_id" json:"tenantId"`
	Kind        IssueKind    `db:"kind" json:"kind"`
	Purpose     IssuePurpose `db:"purpose" json:"purpose"`
	WarehouseID id.ID        `db:"warehouse_id" json:"warehouseId"`
	BatchID     *id.ID       `db:"batch_id" json:"batchId,omitempty"`
	Date        time.Time    `db:"date" json:"date"`
	Status      IssueStatus  `db:"status" json:"status"`

	Lines []IssueLine `db:"-" json:"lines"`
}

// IssueLine is one document line. Quantity is in liters; the stored Plato and
// batch are optional line-level overrides captured at document entry.
type IssueLine struct {
	LineID         id.ID          `db:"line_id" json:"lineId"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	QuantityL      types.Decimal  `db:"quantity_l" json:"quantityL"`
	BatchID        *id.ID         `db:"batch_id" json:"batchId,omitempty"`
	Plato          *types.Decimal `db:"plato" json:"plato,omitempty"`
	ExciseRelevant bool           `db:"excise_relevant" json:"exciseRelevant"`
}

// BatchConsumption is one entry of the FIFO consumption trail: the source
// batch an outbound issue actually depleted, with the volume drawn from it
// and the Plato recorded on the originating receipt line.
type BatchConsumption struct {
	BatchID   id.ID          `db:"batch_id" json:"batchId"`
	QuantityL types.Decimal  `db:"quantity_l" json:"quantityL"`
	Plato     *types.Decimal `db:"plato" json:"plato,omitempty"`
}

// BatchExciseStatus mirrors the movement status cascade onto batches.
type BatchExciseStatus string

const (
	BatchExciseNone     BatchExciseStatus = "none"
	BatchExciseTracked  BatchExciseStatus = "tracked"
	BatchExciseReported BatchExciseStatus = "reported"
)

// Batch is the read-only slice of a production batch the excise engine needs:
// gravity data for Plato resolution plus the regulatory accumulator.
type Batch struct {
	ID       id.ID `db:"id" json:"id"`
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	// MeasuredPlato is the recorded original-gravity measurement, if any.
	// Manual operator entry is stored as a measurement too.
	MeasuredPlato *types.Decimal `db:"measured_plato" json:"measuredPlato,omitempty"`

	// RecipePlato is the target gravity of the referenced recipe, if any.
	RecipePlato *types.Decimal `db:"recipe_plato" json:"recipePlato,omitempty"`

	// PackagingLossL is the loss recorded during packaging, in liters.
	PackagingLossL types.Decimal `db:"packaging_loss_l" json:"packagingLossL"`

	// ExciseRelevantHl accumulates the batch volume that entered excise tracking.
	ExciseRelevantHl types.Decimal `db:"excise_relevant_hl" json:"exciseRelevantHl"`

	ExciseStatus BatchExciseStatus `db:"excise_status" json:"exciseStatus"`
}
