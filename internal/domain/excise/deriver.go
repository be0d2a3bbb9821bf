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
	"brauer/internal/domain/stockdoc"
	"brauer/pkg/logger"
)

// Deriver turns confirmed stock documents into excise movements. It is the
// only producer of non-adjustment movements; manual entry goes through the
// ledger as adjustments.
//
// Derivation is idempotent per stock issue: a second confirmation event for
// the same document is a no-op.
type Deriver struct {
	movements MovementRepository
	settings  SettingsRepository
	issues    stockdoc.IssueReader
	batches   stockdoc.BatchReader
	batchW    stockdoc.BatchWriter
	rates     *RateResolver
	plato     *PlatoResolver
	auditor   audit.Recorder
	txManager tx.Manager
}

// NewDeriver creates the derivation engine.
func NewDeriver(
	movements MovementRepository,
	settings SettingsRepository,
	issues stockdoc.IssueReader,
	batches stockdoc.BatchReader,
	batchW stockdoc.BatchWriter,
	rates *RateResolver,
	auditor audit.Recorder,
	txManager tx.Manager,
) *Deriver {
	return &Deriver{
		movements: movements,
		settings:  settings,
		issues:    issues,
		batches:   batches,
		batchW:    batchW,
		rates:     rates,
		plato:     NewPlatoResolver(batches),
		auditor:   auditor,
		txManager: txManager,
	}
}

func (d *Deriver) getTxManager(ctx context.Context) (tx.Manager, error) {
	if d.txManager != nil {
		return d.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

func (d *Deriver) record(ctx context.Context, entry audit.Entry) {
	if d.auditor == nil {
		return
	}
	if err := d.auditor.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit record failed", "entity_id", entry.EntityID, "error", err)
	}
}

// applicable decides whether an issue produces excise movements at all.
// The pre-validation checker applies the exact same rule; keep them together.
func applicable(settings Settings, issue *stockdoc.StockIssue, exciseWarehouse bool) bool {
	if !settings.Enabled {
		return false
	}
	if !exciseWarehouse {
		return false
	}
	for _, line := range issue.Lines {
		if line.ExciseRelevant {
			return true
		}
	}
	return false
}

// exciseLines returns the excise-relevant subset of the document lines.
func exciseLines(issue *stockdoc.StockIssue) []stockdoc.IssueLine {
	lines := make([]stockdoc.IssueLine, 0, len(issue.Lines))
	for _, line := range issue.Lines {
		if line.ExciseRelevant {
			lines = append(lines, line)
		}
	}
	return lines
}

// DeriveFromStockIssue handles the "stock issue confirmed" event. It returns
// the created movements; a nil slice means the event did not apply.
func (d *Deriver) DeriveFromStockIssue(ctx context.Context, issueID id.ID) ([]Movement, error) {
	issue, err := d.issues.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status != stockdoc.IssueConfirmed {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"only confirmed issues produce excise movements").
			WithDetail("stock_issue_id", issueID).
			WithDetail("status", string(issue.Status))
	}

	settings, err := d.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	exciseWarehouse, err := d.issues.IsExciseWarehouse(ctx, issue.WarehouseID)
	if err != nil {
		return nil, err
	}

	if !applicable(settings, issue, exciseWarehouse) {
		logger.Debug(ctx, "excise derivation not applicable", "stock_issue_id", issueID)
		return nil, nil
	}

	// Re-delivered confirmation events must not duplicate the ledger.
	existing, err := d.movements.ListByStockIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logger.Debug(ctx, "movements already derived", "stock_issue_id", issueID, "count", len(existing))
		return nil, nil
	}

	var planned []*Movement
	if issue.Kind == stockdoc.KindReceipt {
		planned, err = d.planReceipt(ctx, issue, settings)
	} else {
		planned, err = d.planIssue(ctx, issue, settings)
	}
	if err != nil {
		return nil, err
	}
	if len(planned) == 0 {
		return nil, nil
	}

	txm, err := d.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, m := range planned {
			if err := m.Validate(ctx); err != nil {
				return err
			}
		}
		if err := d.movements.CreateMany(ctx, planned); err != nil {
			return fmt.Errorf("create derived movements: %w", err)
		}
		for _, m := range planned {
			d.record(ctx, audit.Entry{
				EntityType: "excise_movement",
				EntityID:   m.ID,
				Action:     audit.ActionCreate,
				Changes:    audit.Snapshot(m),
			})
			if err := d.trackBatch(ctx, m, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := make([]Movement, len(planned))
	for i, m := range planned {
		created[i] = *m
	}
	logger.Info(ctx, "excise movements derived",
		"stock_issue_id", issueID, "kind", issue.Kind, "count", len(created))
	return created, nil
}

// planReceipt builds the single inbound movement for a receipt document.
func (d *Deriver) planReceipt(ctx context.Context, issue *stockdoc.StockIssue, settings Settings) ([]*Movement, error) {
	mType, dir, ok := Classify(issue.Kind, issue.Purpose)
	if !ok {
		return nil, nil
	}
	return d.planAggregate(ctx, issue, settings, mType, dir)
}

// planIssue builds per-source-batch movements for an outbound document using
// the FIFO consumption trail. Documents without a trail fall back to a single
// aggregate movement.
func (d *Deriver) planIssue(ctx context.Context, issue *stockdoc.StockIssue, settings Settings) ([]*Movement, error) {
	mType, dir, ok := Classify(issue.Kind, issue.Purpose)
	if !ok {
		return nil, nil
	}

	trail, err := d.issues.ConsumptionTrail(ctx, issue.ID)
	if err != nil {
		return nil, err
	}

	if len(trail) == 0 {
		return d.planAggregate(ctx, issue, settings, mType, dir)
	}

	movements := make([]*Movement, 0, len(trail))
	for _, entry := range trail {
		volumeHl := types.LitersToHl(entry.QuantityL)
		if volumeHl.Sign() <= 0 {
			continue
		}

		m := NewMovement(issue.TenantID, mType, volumeHl, issue.Date)
		m.Direction = dir
		m.Status = StatusConfirmed
		m.StockIssueID = &issue.ID
		m.WarehouseID = &issue.WarehouseID
		batchID := entry.BatchID
		m.BatchID = &batchID
		m.Description = fmt.Sprintf("derived from %s %s", issue.Kind, issue.ID)

		if entry.Plato != nil {
			// Trail Plato is carried over from the receipt line, so it
			// keeps the line-captured label.
			source := PlatoManual
			m.Plato = entry.Plato
			m.PlatoSource = &source
		} else {
			result, err := d.plato.Resolve(ctx, batchID, settings)
			if err != nil {
				return nil, err
			}
			m.Plato = result.Plato
			m.PlatoSource = result.Source
		}

		if err := d.computeTax(ctx, m, settings); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// planAggregate builds one movement covering the document's excise lines.
// Batch and Plato fall back to the line-level batch references, in the same
// order the pre-validation checker consults them, so the two always agree.
func (d *Deriver) planAggregate(ctx context.Context, issue *stockdoc.StockIssue, settings Settings, mType MovementType, dir Direction) ([]*Movement, error) {
	lines := exciseLines(issue)

	total := types.Zero()
	var linePlato *types.Decimal
	for _, line := range lines {
		total = total.Add(line.QuantityL)
		if linePlato == nil && line.Plato != nil {
			linePlato = line.Plato
		}
	}
	volumeHl := types.LitersToHl(total)
	if volumeHl.Sign() <= 0 {
		return nil, nil
	}

	m := NewMovement(issue.TenantID, mType, volumeHl, issue.Date)
	m.Direction = dir
	m.Status = StatusConfirmed
	m.StockIssueID = &issue.ID
	m.WarehouseID = &issue.WarehouseID
	m.BatchID = issue.BatchID
	if m.BatchID == nil {
		m.BatchID = firstLineBatch(lines)
	}
	m.Description = fmt.Sprintf("derived from %s %s", issue.Kind, issue.ID)

	if linePlato != nil {
		source := PlatoManual
		m.Plato = linePlato
		m.PlatoSource = &source
	} else {
		result, err := d.batchPlato(ctx, issue, lines, settings)
		if err != nil {
			return nil, err
		}
		m.Plato = result.Plato
		m.PlatoSource = result.Source
	}

	if err := d.computeTax(ctx, m, settings); err != nil {
		return nil, err
	}
	return []*Movement{m}, nil
}

// batchPlato tries the document batch first, then the line batches.
func (d *Deriver) batchPlato(ctx context.Context, issue *stockdoc.StockIssue, lines []stockdoc.IssueLine, settings Settings) (PlatoResult, error) {
	var candidates []id.ID
	if issue.BatchID != nil {
		candidates = append(candidates, *issue.BatchID)
	}
	for _, line := range lines {
		if line.BatchID != nil {
			candidates = append(candidates, *line.BatchID)
		}
	}
	for _, batchID := range candidates {
		result, err := d.plato.Resolve(ctx, batchID, settings)
		if err != nil {
			return PlatoResult{}, err
		}
		if result.Resolved() {
			return result, nil
		}
	}
	return PlatoResult{}, nil
}

// firstLineBatch returns the first line-level batch reference, if any.
func firstLineBatch(lines []stockdoc.IssueLine) *id.ID {
	for _, line := range lines {
		if line.BatchID != nil {
			return line.BatchID
		}
	}
	return nil
}

// computeTax fills TaxRate and TaxAmount when, and only when, the movement
// type is the configured tax point and both Plato and a current rate resolved.
// Anything short of that leaves both nil: "not determinable" is never zero.
func (d *Deriver) computeTax(ctx context.Context, m *Movement, settings Settings) error {
	if !settings.IsTaxable(m.Type) {
		return nil
	}
	if m.Plato == nil {
		return nil
	}
	if !settings.Category.Valid() {
		return nil
	}

	rate, err := d.rates.CurrentRate(ctx, settings.Category, m.Date)
	if err != nil {
		return err
	}
	if rate == nil {
		return nil
	}

	amount := m.VolumeHl.Mul(*m.Plato).Mul(rate.RatePerPlatoHl)
	m.TaxRate = &rate.RatePerPlatoHl
	m.TaxAmount = &amount
	return nil
}

// trackBatch maintains the batch excise accumulator and status for movements
// that reference a batch. reverse flips the accumulator sign.
func (d *Deriver) trackBatch(ctx context.Context, m *Movement, reverse bool) error {
	if m.BatchID == nil {
		return nil
	}

	delta := m.SignedVolumeHl()
	if reverse {
		delta = delta.Neg()
	}
	if err := d.batchW.AddExciseRelevantHl(ctx, *m.BatchID, delta); err != nil {
		return fmt.Errorf("track batch volume: %w", err)
	}
	if !reverse {
		if err := d.batchW.SetExciseStatus(ctx, []id.ID{*m.BatchID}, stockdoc.BatchExciseTracked); err != nil {
			return fmt.Errorf("track batch status: %w", err)
		}
	}
	return nil
}

// ReverseForStockIssue handles the "stock issue cancelled" event: one
// reversing adjustment per derived movement, with the batch accumulator
// rolled back. Originals are kept.
func (d *Deriver) ReverseForStockIssue(ctx context.Context, issueID id.ID) ([]Movement, error) {
	originals, err := d.movements.ListByStockIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 {
		return nil, nil
	}

	reversed := reversedOriginalIDs(originals)
	reversals := make([]Movement, 0, len(originals))

	txm, err := d.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range originals {
			orig := &originals[i]
			if orig.Type == MovementAdjustment || reversed[orig.ID] {
				// Replayed cancellation events must not re-reverse or
				// double-roll the batch accumulator.
				continue
			}

			rev := reversalOf(orig)
			if err := d.movements.Create(ctx, rev); err != nil {
				return fmt.Errorf("create reversal: %w", err)
			}
			d.record(ctx, audit.Entry{
				EntityType: "excise_movement",
				EntityID:   rev.ID,
				Action:     audit.ActionReverse,
				Changes:    audit.Snapshot(rev),
			})
			if err := d.trackBatch(ctx, orig, true); err != nil {
				return err
			}
			reversals = append(reversals, *rev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "excise movements reversed for cancelled issue",
		"stock_issue_id", issueID, "count", len(reversals))
	return reversals, nil
}

// DeriveLossFromPackaging records a loss movement for the packaging shrinkage
// of a finished batch. Losses are never taxable regardless of the tax point.
func (d *Deriver) DeriveLossFromPackaging(ctx context.Context, batchID id.ID) (*Movement, error) {
	settings, err := d.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, nil
	}

	batch, err := d.batches.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	lossHl := types.LitersToHl(batch.PackagingLossL)
	if lossHl.Sign() <= 0 {
		return nil, nil
	}

	tenantID, err := tenant.GetTenant(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	m := NewMovement(tenantID, MovementLoss, lossHl, time.Now().UTC())
	m.Status = StatusConfirmed
	m.BatchID = &batchID
	m.Description = fmt.Sprintf("packaging loss for batch %s", batchID)

	result := resolvePlato(batch, settings)
	m.Plato = result.Plato
	m.PlatoSource = result.Source

	txm, err := d.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := m.Validate(ctx); err != nil {
			return err
		}
		if err := d.movements.Create(ctx, m); err != nil {
			return fmt.Errorf("create loss movement: %w", err)
		}
		d.record(ctx, audit.Entry{
			EntityType: "excise_movement",
			EntityID:   m.ID,
			Action:     audit.ActionCreate,
			Changes:    audit.Snapshot(m),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "packaging loss recorded", "batch_id", batchID, "volume_hl", lossHl)
	return m, nil
}

// Reconcile sweeps confirmed issues that have no movements yet and derives
// them. Used to backfill after missed confirmation events.
func (d *Deriver) Reconcile(ctx context.Context, limit int) (int, error) {
	issueIDs, err := d.issues.ListConfirmedWithoutMovements(ctx, limit)
	if err != nil {
		return 0, err
	}

	derived := 0
	for _, issueID := range issueIDs {
		movements, err := d.DeriveFromStockIssue(ctx, issueID)
		if err != nil {
			logger.Error(ctx, "reconcile derivation failed", "stock_issue_id", issueID, "error", err)
			continue
		}
		if len(movements) > 0 {
			derived++
		}
	}

	logger.Info(ctx, "reconciliation sweep finished",
		"candidates", len(issueIDs), "derived", derived)
	return derived, nil
}
