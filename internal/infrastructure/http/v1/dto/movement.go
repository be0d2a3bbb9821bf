package dto

import (
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/types"
	"brauer/internal/domain/excise"
)

// --- Request DTOs ---

// CreateMovementRequest creates a manual ledger movement.
type CreateMovementRequest struct {
	MovementType string     `json:"movementType" binding:"required"`
	Direction    string     `json:"direction,omitempty"`
	VolumeHl     string     `json:"volumeHl" binding:"required"`
	Plato        *string    `json:"plato,omitempty"`
	BatchID      *string    `json:"batchId,omitempty"`
	WarehouseID  *string    `json:"warehouseId,omitempty"`
	Date         time.Time  `json:"date" binding:"required"`
	Description  string     `json:"description,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// ToEntity converts the request into a draft movement.
func (r *CreateMovementRequest) ToEntity(tenantID id.ID) (*excise.Movement, error) {
	volume, err := types.NewFromString(r.VolumeHl)
	if err != nil {
		return nil, apperror.NewValidation("invalid volumeHl").WithDetail("value", r.VolumeHl)
	}

	m := excise.NewMovement(tenantID, excise.MovementType(r.MovementType), volume, r.Date)
	m.Description = r.Description
	m.Notes = r.Notes

	if r.Direction != "" {
		m.Direction = excise.Direction(r.Direction)
	}

	if r.Plato != nil {
		plato, err := types.NewFromString(*r.Plato)
		if err != nil {
			return nil, apperror.NewValidation("invalid plato").WithDetail("value", *r.Plato)
		}
		source := excise.PlatoManual
		m.Plato = &plato
		m.PlatoSource = &source
	}

	if r.BatchID != nil {
		batchID, err := id.Parse(*r.BatchID)
		if err != nil {
			return nil, apperror.NewValidation("invalid batchId").WithDetail("value", *r.BatchID)
		}
		m.BatchID = &batchID
	}

	if r.WarehouseID != nil {
		warehouseID, err := id.Parse(*r.WarehouseID)
		if err != nil {
			return nil, apperror.NewValidation("invalid warehouseId").WithDetail("value", *r.WarehouseID)
		}
		m.WarehouseID = &warehouseID
	}

	return m, nil
}

// UpdateMovementRequest carries a partial movement update. Core fields are
// accepted only for adjustments; the service rejects them otherwise.
type UpdateMovementRequest struct {
	Plato  *string `json:"plato,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	Status *string `json:"status,omitempty"`

	MovementType *string    `json:"movementType,omitempty"`
	VolumeHl     *string    `json:"volumeHl,omitempty"`
	Direction    *string    `json:"direction,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	WarehouseID  *string    `json:"warehouseId,omitempty"`
	Description  *string    `json:"description,omitempty"`
}

// ToUpdate converts the request into the domain update struct.
func (r *UpdateMovementRequest) ToUpdate() (excise.MovementUpdate, error) {
	var upd excise.MovementUpdate

	if r.Plato != nil {
		plato, err := types.NewFromString(*r.Plato)
		if err != nil {
			return upd, apperror.NewValidation("invalid plato").WithDetail("value", *r.Plato)
		}
		upd.Plato = &plato
	}
	upd.Notes = r.Notes
	if r.Status != nil {
		status := excise.MovementStatus(*r.Status)
		upd.Status = &status
	}
	if r.MovementType != nil {
		mType := excise.MovementType(*r.MovementType)
		upd.Type = &mType
	}
	if r.VolumeHl != nil {
		volume, err := types.NewFromString(*r.VolumeHl)
		if err != nil {
			return upd, apperror.NewValidation("invalid volumeHl").WithDetail("value", *r.VolumeHl)
		}
		upd.VolumeHl = &volume
	}
	if r.Direction != nil {
		dir := excise.Direction(*r.Direction)
		upd.Direction = &dir
	}
	upd.Date = r.Date
	if r.WarehouseID != nil {
		warehouseID, err := id.Parse(*r.WarehouseID)
		if err != nil {
			return upd, apperror.NewValidation("invalid warehouseId").WithDetail("value", *r.WarehouseID)
		}
		upd.WarehouseID = &warehouseID
	}
	upd.Description = r.Description

	return upd, nil
}

// --- Response DTOs ---

// MovementResponse is the API view of a ledger movement.
type MovementResponse struct {
	ID           string     `json:"id"`
	MovementType string     `json:"movementType"`
	Direction    string     `json:"direction"`
	VolumeHl     string     `json:"volumeHl"`
	Plato        *string    `json:"plato,omitempty"`
	PlatoSource  *string    `json:"platoSource,omitempty"`
	TaxRate      *string    `json:"taxRate,omitempty"`
	TaxAmount    *string    `json:"taxAmount,omitempty"`
	BatchID      *string    `json:"batchId,omitempty"`
	StockIssueID *string    `json:"stockIssueId,omitempty"`
	WarehouseID  *string    `json:"warehouseId,omitempty"`
	ReversalOfID *string    `json:"reversalOfId,omitempty"`
	Date         time.Time  `json:"date"`
	Period       string     `json:"period"`
	Status       string     `json:"status"`
	Description  string     `json:"description,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// FromMovement maps a domain movement to its API representation.
func FromMovement(m *excise.Movement) MovementResponse {
	resp := MovementResponse{
		ID:           m.ID.String(),
		MovementType: string(m.Type),
		Direction:    string(m.Direction),
		VolumeHl:     m.VolumeHl.String(),
		Date:         m.Date,
		Period:       m.Period,
		Status:       string(m.Status),
		Description:  m.Description,
		Notes:        m.Notes,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	resp.Plato = decimalString(m.Plato)
	if m.PlatoSource != nil {
		s := string(*m.PlatoSource)
		resp.PlatoSource = &s
	}
	resp.TaxRate = decimalString(m.TaxRate)
	resp.TaxAmount = decimalString(m.TaxAmount)
	resp.BatchID = idString(m.BatchID)
	resp.StockIssueID = idString(m.StockIssueID)
	resp.WarehouseID = idString(m.WarehouseID)
	resp.ReversalOfID = idString(m.ReversalOfID)
	return resp
}

// FromMovements maps a slice of movements.
func FromMovements(movements []*excise.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, FromMovement(m))
	}
	return out
}

func decimalString(d *types.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
