package excise

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

// ReportStatus is the monthly report lifecycle state.
// accepted exists for the external authority; no in-system transition sets it.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
	ReportAccepted  ReportStatus = "accepted"
)

// TaxDetail is one per-Plato line of the report's tax breakdown.
type TaxDetail struct {
	Plato    types.Decimal `json:"plato"`
	VolumeHl types.Decimal `json:"volumeHl"`
	Tax      types.Decimal `json:"tax"`
}

// TaxDetails is the ordered breakdown, persisted as JSONB.
type TaxDetails []TaxDetail

// Value implements driver.Valuer for JSONB storage.
func (d TaxDetails) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB storage.
func (d *TaxDetails) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return fmt.Errorf("cannot scan %T into TaxDetails", src)
}

// TotalTax sums the breakdown's tax column.
func (d TaxDetails) TotalTax() types.Decimal {
	total := types.Zero()
	for _, line := range d {
		total = total.Add(line.Tax)
	}
	return total
}

// MonthlyReport is the closed ledger of one calendar month.
type MonthlyReport struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID id.ID  `db:"tenant_id" json:"tenantId"`
	Period   string `db:"period" json:"period"`

	OpeningBalanceHl types.Decimal `db:"opening_balance_hl" json:"openingBalanceHl"`
	ProductionHl     types.Decimal `db:"production_hl" json:"productionHl"`
	TransferInHl     types.Decimal `db:"transfer_in_hl" json:"transferInHl"`
	ReleaseHl        types.Decimal `db:"release_hl" json:"releaseHl"`
	TransferOutHl    types.Decimal `db:"transfer_out_hl" json:"transferOutHl"`
	LossHl           types.Decimal `db:"loss_hl" json:"lossHl"`
	DestructionHl    types.Decimal `db:"destruction_hl" json:"destructionHl"`
	// AdjustmentHl is signed: in-adjustments add, out-adjustments subtract.
	AdjustmentHl     types.Decimal `db:"adjustment_hl" json:"adjustmentHl"`
	ClosingBalanceHl types.Decimal `db:"closing_balance_hl" json:"closingBalanceHl"`

	TotalTax   types.Decimal `db:"total_tax" json:"totalTax"`
	TaxDetails TaxDetails    `db:"tax_details" json:"taxDetails"`

	Status      ReportStatus `db:"status" json:"status"`
	SubmittedAt *time.Time   `db:"submitted_at" json:"submittedAt,omitempty"`
	SubmittedBy string       `db:"submitted_by" json:"submittedBy,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewMonthlyReport creates an empty draft report for a period.
func NewMonthlyReport(tenantID id.ID, period string) *MonthlyReport {
	now := time.Now().UTC()
	return &MonthlyReport{
		ID:        id.New(),
		TenantID:  tenantID,
		Period:    period,
		Status:    ReportDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ComputeClosing derives the closing balance from the other buckets.
// closing = opening + production + transfer_in − release − transfer_out
// − loss − destruction + adjustment.
func (r *MonthlyReport) ComputeClosing() types.Decimal {
	return r.OpeningBalanceHl.
		Add(r.ProductionHl).
		Add(r.TransferInHl).
		Sub(r.ReleaseHl).
		Sub(r.TransferOutHl).
		Sub(r.LossHl).
		Sub(r.DestructionHl).
		Add(r.AdjustmentHl)
}

// Balanced reports whether the stored closing balance satisfies the invariant.
func (r *MonthlyReport) Balanced() bool {
	return r.ClosingBalanceHl.Equal(r.ComputeClosing())
}

// Touch bumps the version and updated timestamp.
func (r *MonthlyReport) Touch() {
	r.Version++
	r.UpdatedAt = time.Now().UTC()
}
