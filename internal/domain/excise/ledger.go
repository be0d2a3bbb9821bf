package excise

import (
	"context"
	"fmt"
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/core/tx"
	"brauer/internal/core/types"
	"brauer/internal/domain/audit"
	"brauer/pkg/logger"
)

// Ledger owns the movement store: creation, draft-only update, guarded
// deletion and additive reversal. Confirmed history is never rewritten.
type Ledger struct {
	movements MovementRepository
	auditor   audit.Recorder
	txManager tx.Manager // optional; when nil, obtained from context
}

// NewLedger creates the movement ledger service.
func NewLedger(movements MovementRepository, auditor audit.Recorder, txManager tx.Manager) *Ledger {
	return &Ledger{
		movements: movements,
		auditor:   auditor,
		txManager: txManager,
	}
}

func (l *Ledger) getTxManager(ctx context.Context) (tx.Manager, error) {
	if l.txManager != nil {
		return l.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

func (l *Ledger) record(ctx context.Context, entry audit.Entry) {
	if l.auditor == nil {
		return
	}
	if err := l.auditor.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit record failed", "entity_id", entry.EntityID, "error", err)
	}
}

// Create validates and inserts a movement. Multiple movements may share
// provenance: one stock issue can split into several movements by source batch.
func (l *Ledger) Create(ctx context.Context, m *Movement) error {
	if m.Period == "" {
		m.Period = PeriodOf(m.Date)
	}
	if m.Status == "" {
		m.Status = StatusDraft
	}

	if err := m.Validate(ctx); err != nil {
		return err
	}

	txm, err := l.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.movements.Create(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		l.record(ctx, audit.Entry{
			EntityType: "excise_movement",
			EntityID:   m.ID,
			Action:     audit.ActionCreate,
			Changes:    audit.Snapshot(m),
		})
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "excise movement created",
		"id", m.ID, "type", m.Type, "volume_hl", m.VolumeHl, "period", m.Period)
	return nil
}

// GetByID retrieves a movement under the caller's tenant scope.
func (l *Ledger) GetByID(ctx context.Context, movementID id.ID) (*Movement, error) {
	return l.movements.GetByID(ctx, movementID)
}

// List retrieves movements with filtering.
func (l *Ledger) List(ctx context.Context, filter MovementFilter) (ListResult[*Movement], error) {
	return l.movements.List(ctx, filter)
}

// MovementUpdate carries the updatable fields. Plato, notes and status may
// always change; the remaining fields only apply to adjustments.
type MovementUpdate struct {
	Plato  *types.Decimal
	Notes  *string
	Status *MovementStatus

	// Adjustment-only fields.
	Type        *MovementType
	VolumeHl    *types.Decimal
	Direction   *Direction
	Date        *time.Time
	WarehouseID *id.ID
	Description *string
}

func (u MovementUpdate) touchesCoreFields() bool {
	return u.Type != nil || u.VolumeHl != nil || u.Direction != nil ||
		u.Date != nil || u.WarehouseID != nil || u.Description != nil
}

// Update applies a partial update under the field allow-list.
func (l *Ledger) Update(ctx context.Context, movementID id.ID, update MovementUpdate) (*Movement, error) {
	m, err := l.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}

	if update.touchesCoreFields() && m.Type != MovementAdjustment {
		return nil, apperror.NewMovementFrozen(movementID)
	}

	if update.Status != nil && *update.Status != m.Status {
		if !m.Status.CanTransition(*update.Status) {
			return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
				fmt.Sprintf("illegal status transition %s -> %s", m.Status, *update.Status)).
				WithDetail("movement_id", movementID)
		}
		m.Status = *update.Status
	}

	if update.Plato != nil {
		m.Plato = update.Plato
	}
	if update.Notes != nil {
		m.Notes = *update.Notes
	}
	if update.Type != nil {
		m.Type = *update.Type
	}
	if update.VolumeHl != nil {
		m.VolumeHl = *update.VolumeHl
	}
	if update.Direction != nil {
		m.Direction = *update.Direction
	}
	if update.Date != nil {
		m.SetDate(*update.Date)
	}
	if update.WarehouseID != nil {
		m.WarehouseID = update.WarehouseID
	}
	if update.Description != nil {
		m.Description = *update.Description
	}

	if err := m.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := l.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.movements.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		l.record(ctx, audit.Entry{
			EntityType: "excise_movement",
			EntityID:   m.ID,
			Action:     audit.ActionUpdate,
			Changes:    audit.Snapshot(m),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Delete removes a movement. Only drafts and adjustments may go; anything
// else fails with CANNOT_DELETE to protect the audit trail.
func (l *Ledger) Delete(ctx context.Context, movementID id.ID) error {
	m, err := l.movements.GetByID(ctx, movementID)
	if err != nil {
		return err
	}

	if !m.CanDelete() {
		return apperror.NewCannotDelete(movementID)
	}

	txm, err := l.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.movements.Delete(ctx, movementID); err != nil {
			return fmt.Errorf("delete movement: %w", err)
		}
		l.record(ctx, audit.Entry{
			EntityType: "excise_movement",
			EntityID:   movementID,
			Action:     audit.ActionDelete,
			Changes:    audit.Snapshot(m),
		})
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "excise movement deleted", "id", movementID, "status", m.Status)
	return nil
}

// ReverseForStockIssue inserts one reversing adjustment per movement tied to
// the stock issue: direction flipped, tax negated, originals untouched.
// This is the only supported undo; history stays complete.
func (l *Ledger) ReverseForStockIssue(ctx context.Context, stockIssueID id.ID) ([]Movement, error) {
	originals, err := l.movements.ListByStockIssue(ctx, stockIssueID)
	if err != nil {
		return nil, fmt.Errorf("list movements for stock issue: %w", err)
	}
	if len(originals) == 0 {
		return nil, nil
	}

	reversed := reversedOriginalIDs(originals)
	reversals := make([]Movement, 0, len(originals))

	txm, err := l.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range originals {
			orig := &originals[i]
			if orig.Type == MovementAdjustment || reversed[orig.ID] {
				// Reversals are never re-reversed, and an original that
				// already has one is skipped on event replay.
				continue
			}

			rev := reversalOf(orig)
			if err := l.movements.Create(ctx, rev); err != nil {
				return fmt.Errorf("create reversal: %w", err)
			}
			l.record(ctx, audit.Entry{
				EntityType: "excise_movement",
				EntityID:   rev.ID,
				Action:     audit.ActionReverse,
				Changes:    audit.Snapshot(rev),
			})
			reversals = append(reversals, *rev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "excise movements reversed",
		"stock_issue_id", stockIssueID, "count", len(reversals))
	return reversals, nil
}

// reversedOriginalIDs collects the IDs of movements that already have a
// reversing adjustment among their stock-issue siblings.
func reversedOriginalIDs(movements []Movement) map[id.ID]bool {
	reversed := make(map[id.ID]bool, len(movements))
	for i := range movements {
		if movements[i].Type == MovementAdjustment && movements[i].ReversalOfID != nil {
			reversed[*movements[i].ReversalOfID] = true
		}
	}
	return reversed
}

// reversalOf builds the adjustment that cancels a movement's aggregate effect.
func reversalOf(orig *Movement) *Movement {
	rev := NewMovement(orig.TenantID, MovementAdjustment, orig.VolumeHl, orig.Date)
	rev.Direction = orig.Direction.Opposite()
	rev.ReversalOfID = &orig.ID
	rev.Status = StatusConfirmed
	rev.Plato = orig.Plato
	rev.PlatoSource = orig.PlatoSource
	rev.TaxRate = orig.TaxRate
	if orig.TaxAmount != nil {
		negated := orig.TaxAmount.Neg()
		rev.TaxAmount = &negated
	}
	rev.BatchID = orig.BatchID
	rev.StockIssueID = orig.StockIssueID
	rev.WarehouseID = orig.WarehouseID
	rev.Description = fmt.Sprintf("reversal of %s movement %s", orig.Type, orig.ID)
	return rev
}
