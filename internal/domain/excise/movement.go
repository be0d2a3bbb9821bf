// Package excise implements the production-tax ledger: movement records,
// derivation from stock documents, monthly report generation and the report
// lifecycle. Volumes are hectoliters, the taxable base is degrees Plato.
package excise

import (
	"context"
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

// MovementType classifies a regulatory event.
type MovementType string

const (
	MovementProduction  MovementType = "production"
	MovementRelease     MovementType = "release"
	MovementLoss        MovementType = "loss"
	MovementDestruction MovementType = "destruction"
	MovementTransferIn  MovementType = "transfer_in"
	MovementTransferOut MovementType = "transfer_out"
	MovementAdjustment  MovementType = "adjustment"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementProduction, MovementRelease, MovementLoss, MovementDestruction,
		MovementTransferIn, MovementTransferOut, MovementAdjustment:
		return true
	}
	return false
}

// DefaultDirection returns the direction implied by the movement type.
// Adjustments carry an explicit direction (they mirror whatever they correct),
// so the second return is false for them.
func (t MovementType) DefaultDirection() (Direction, bool) {
	switch t {
	case MovementProduction, MovementTransferIn:
		return DirectionIn, true
	case MovementRelease, MovementLoss, MovementDestruction, MovementTransferOut:
		return DirectionOut, true
	case MovementAdjustment:
		return "", false
	}
	return "", false
}

// Direction is the aggregation sign of a movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Opposite flips the direction; used when reversing movements.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// MovementStatus is the movement lifecycle state.
// Status only advances draft->confirmed->reported, or regresses
// reported->confirmed on report revert. It never returns to draft.
type MovementStatus string

const (
	StatusDraft     MovementStatus = "draft"
	StatusConfirmed MovementStatus = "confirmed"
	StatusReported  MovementStatus = "reported"
)

// CanTransition reports whether a status change is legal.
func (s MovementStatus) CanTransition(to MovementStatus) bool {
	switch s {
	case StatusDraft:
		return to == StatusConfirmed
	case StatusConfirmed:
		return to == StatusReported
	case StatusReported:
		return to == StatusConfirmed
	}
	return false
}

// PlatoSource records where a movement's Plato value came from.
type PlatoSource string

const (
	PlatoFromMeasurement PlatoSource = "batch_measurement"
	PlatoFromRecipe      PlatoSource = "recipe"
	PlatoManual          PlatoSource = "manual"
)

// PeriodLayout is the persisted period key format. Every component that
// writes or reads a period must produce it through PeriodOf.
const PeriodLayout = "2006-01"

// PeriodOf truncates a calendar date to its reporting period key ("YYYY-MM").
func PeriodOf(date time.Time) string {
	return date.UTC().Format(PeriodLayout)
}

// PreviousPeriod returns the period key of the month before p.
func PreviousPeriod(p string) (string, error) {
	t, err := time.Parse(PeriodLayout, p)
	if err != nil {
		return "", apperror.NewValidation("invalid period").
			WithDetail("period", p).WithCause(err)
	}
	return t.AddDate(0, -1, 0).Format(PeriodLayout), nil
}

// ValidPeriod reports whether p is a well-formed period key.
func ValidPeriod(p string) bool {
	t, err := time.Parse(PeriodLayout, p)
	return err == nil && t.Format(PeriodLayout) == p
}

// Movement is one regulatory event in the excise ledger.
type Movement struct {
	ID       id.ID `db:"id" json:"id"`
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	Type      MovementType `db:"movement_type" json:"movementType"`
	Direction Direction    `db:"direction" json:"direction"`

	// VolumeHl is the moved volume in hectoliters, always positive;
	// an adjustment's magnitude mirrors the movement it reverses.
	VolumeHl    types.Decimal  `db:"volume_hl" json:"volumeHl"`
	Plato       *types.Decimal `db:"plato" json:"plato,omitempty"`
	PlatoSource *PlatoSource   `db:"plato_source" json:"platoSource,omitempty"`

	// TaxRate and TaxAmount are set only when the movement type is the
	// tenant-configured taxable point and both Plato and a current rate
	// resolved. Nil means "tax not determinable", which is not zero tax.
	TaxRate   *types.Decimal `db:"tax_rate" json:"taxRate,omitempty"`
	TaxAmount *types.Decimal `db:"tax_amount" json:"taxAmount,omitempty"`

	BatchID      *id.ID `db:"batch_id" json:"batchId,omitempty"`
	StockIssueID *id.ID `db:"stock_issue_id" json:"stockIssueId,omitempty"`
	WarehouseID  *id.ID `db:"warehouse_id" json:"warehouseId,omitempty"`

	// ReversalOfID links a reversing adjustment to the movement it cancels.
	// It is what makes reversal idempotent: an original that already has a
	// reversal pointing at it is skipped on repeated cancellation events.
	ReversalOfID *id.ID `db:"reversal_of_id" json:"reversalOfId,omitempty"`

	Date   time.Time `db:"date" json:"date"`
	Period string    `db:"period" json:"period"`

	Status MovementStatus `db:"status" json:"status"`

	Description string `db:"description" json:"description,omitempty"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewMovement creates a draft movement, deriving direction and period.
func NewMovement(tenantID id.ID, mType MovementType, volumeHl types.Decimal, date time.Time) *Movement {
	dir, _ := mType.DefaultDirection()
	now := time.Now().UTC()
	return &Movement{
		ID:        id.New(),
		TenantID:  tenantID,
		Type:      mType,
		Direction: dir,
		VolumeHl:  volumeHl,
		Date:      date,
		Period:    PeriodOf(date),
		Status:    StatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetDate updates the business date and keeps the period consistent.
func (m *Movement) SetDate(date time.Time) {
	m.Date = date
	m.Period = PeriodOf(date)
}

// Touch bumps the version and updated timestamp.
func (m *Movement) Touch() {
	m.Version++
	m.UpdatedAt = time.Now().UTC()
}

// SignedVolumeHl returns the volume with its aggregation sign applied.
func (m *Movement) SignedVolumeHl() types.Decimal {
	if m.Direction == DirectionOut {
		return m.VolumeHl.Neg()
	}
	return m.VolumeHl
}

// Validate checks movement invariants.
func (m *Movement) Validate(ctx context.Context) error {
	if !m.Type.Valid() {
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "movementType").
			WithDetail("value", string(m.Type))
	}

	if m.Direction != DirectionIn && m.Direction != DirectionOut {
		return apperror.NewValidation("invalid direction").
			WithDetail("field", "direction").
			WithDetail("value", string(m.Direction))
	}

	if m.VolumeHl.Sign() <= 0 {
		return apperror.NewValidation("volume must be positive").
			WithDetail("field", "volumeHl")
	}

	if m.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	if m.Period != PeriodOf(m.Date) {
		return apperror.NewValidation("period does not match date").
			WithDetail("field", "period").
			WithDetail("expected", PeriodOf(m.Date))
	}

	if dir, fixed := m.Type.DefaultDirection(); fixed && dir != m.Direction {
		return apperror.NewValidation("direction does not match movement type").
			WithDetail("field", "direction").
			WithDetail("expected", string(dir))
	}

	return nil
}

// CanDelete reports whether the movement may be hard-deleted.
// Confirmed production/release entries are never erased, only reversed.
func (m *Movement) CanDelete() bool {
	return m.Status == StatusDraft || m.Type == MovementAdjustment
}
