package excise

import (
	"context"
	"fmt"
	"sort"
	"time"

	"brauer/internal/core/apperror"
	appcontext "brauer/internal/core/context"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/core/tx"
	"brauer/internal/core/types"
	"brauer/internal/domain/audit"
	"brauer/internal/domain/stockdoc"
	"brauer/pkg/logger"
)

// Reports generates monthly reports and drives their submit/revert lifecycle.
type Reports struct {
	reports   ReportRepository
	movements MovementRepository
	batchW    stockdoc.BatchWriter
	auditor   audit.Recorder
	txManager tx.Manager
}

// NewReports creates the report service.
func NewReports(
	reports ReportRepository,
	movements MovementRepository,
	batchW stockdoc.BatchWriter,
	auditor audit.Recorder,
	txManager tx.Manager,
) *Reports {
	return &Reports{
		reports:   reports,
		movements: movements,
		batchW:    batchW,
		auditor:   auditor,
		txManager: txManager,
	}
}

func (s *Reports) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

func (s *Reports) record(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit record failed", "entity_id", entry.EntityID, "error", err)
	}
}

// GetByID retrieves a report.
func (s *Reports) GetByID(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	return s.reports.GetByID(ctx, reportID)
}

// List retrieves reports with filtering.
func (s *Reports) List(ctx context.Context, filter ReportFilter) (ListResult[*MonthlyReport], error) {
	return s.reports.List(ctx, filter)
}

// Generate re-aggregates a period's confirmed movements into its draft report.
// Pure re-aggregation: two calls over unchanged data produce the same payload.
// Submitted and accepted reports are frozen and cannot be regenerated.
func (s *Reports) Generate(ctx context.Context, period string) (*MonthlyReport, error) {
	if !ValidPeriod(period) {
		return nil, apperror.NewValidation("invalid period").WithDetail("period", period)
	}

	existing, err := s.reports.GetByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != ReportDraft {
		return nil, apperror.NewReportAlreadySubmitted(period)
	}

	tenantID, err := tenant.GetTenant(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	report := existing
	if report == nil {
		report = NewMonthlyReport(tenantID, period)
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	// The period-wide read runs inside a read-only transaction so the opening
	// balance and the movement list come from one snapshot.
	var (
		opening   types.Decimal
		movements []Movement
	)
	err = readConsistent(ctx, txm, func(ctx context.Context) error {
		var err error
		if opening, err = s.openingBalance(ctx, period); err != nil {
			return err
		}
		movements, err = s.movements.ListByPeriod(ctx, period, StatusConfirmed)
		return err
	})
	if err != nil {
		return nil, err
	}

	aggregate(report, opening, movements)

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reports.Upsert(ctx, report); err != nil {
			return fmt.Errorf("upsert report: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "monthly report generated",
		"period", period, "movements", len(movements), "closing_hl", report.ClosingBalanceHl)
	return report, nil
}

// readConsistent runs fn in a read-only transaction when the manager supports
// it; otherwise the reads go through as-is.
func readConsistent(ctx context.Context, txm tx.Manager, fn func(ctx context.Context) error) error {
	if ro, ok := txm.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

// openingBalance reads the previous period's closing balance, or zero when no
// prior report exists. Gaps are not backfilled.
func (s *Reports) openingBalance(ctx context.Context, period string) (types.Decimal, error) {
	prev, err := PreviousPeriod(period)
	if err != nil {
		return types.Zero(), err
	}
	prior, err := s.reports.GetByPeriod(ctx, prev)
	if err != nil {
		return types.Zero(), err
	}
	if prior == nil {
		return types.Zero(), nil
	}
	return prior.ClosingBalanceHl, nil
}

// aggregate fills the balance buckets and the tax breakdown from the period's
// confirmed movements. Adjustments are signed by direction; every other type
// lands in its own bucket as a positive quantity.
func aggregate(report *MonthlyReport, opening types.Decimal, movements []Movement) {
	report.OpeningBalanceHl = opening
	report.ProductionHl = types.Zero()
	report.TransferInHl = types.Zero()
	report.ReleaseHl = types.Zero()
	report.TransferOutHl = types.Zero()
	report.LossHl = types.Zero()
	report.DestructionHl = types.Zero()
	report.AdjustmentHl = types.Zero()

	taxGroups := map[string]*TaxDetail{}

	for i := range movements {
		m := &movements[i]
		switch m.Type {
		case MovementProduction:
			report.ProductionHl = report.ProductionHl.Add(m.VolumeHl)
		case MovementTransferIn:
			report.TransferInHl = report.TransferInHl.Add(m.VolumeHl)
		case MovementRelease:
			report.ReleaseHl = report.ReleaseHl.Add(m.VolumeHl)
		case MovementTransferOut:
			report.TransferOutHl = report.TransferOutHl.Add(m.VolumeHl)
		case MovementLoss:
			report.LossHl = report.LossHl.Add(m.VolumeHl)
		case MovementDestruction:
			report.DestructionHl = report.DestructionHl.Add(m.VolumeHl)
		case MovementAdjustment:
			report.AdjustmentHl = report.AdjustmentHl.Add(m.SignedVolumeHl())
		}

		if m.Type == MovementRelease {
			addTaxDetail(taxGroups, m)
		}
	}

	report.ClosingBalanceHl = report.ComputeClosing()
	report.TaxDetails = sortedTaxDetails(taxGroups)
	report.TotalTax = report.TaxDetails.TotalTax()
}

// addTaxDetail folds one release movement into its Plato group. Movements
// without a resolved Plato land in the zero group.
func addTaxDetail(groups map[string]*TaxDetail, m *Movement) {
	plato := types.Zero()
	if m.Plato != nil {
		plato = *m.Plato
	}

	key := plato.String()
	group, ok := groups[key]
	if !ok {
		group = &TaxDetail{Plato: plato, VolumeHl: types.Zero(), Tax: types.Zero()}
		groups[key] = group
	}
	group.VolumeHl = group.VolumeHl.Add(m.VolumeHl)
	if m.TaxAmount != nil {
		group.Tax = group.Tax.Add(*m.TaxAmount)
	}
}

// sortedTaxDetails orders the breakdown by ascending Plato so regeneration on
// unchanged data yields identical payloads.
func sortedTaxDetails(groups map[string]*TaxDetail) TaxDetails {
	details := make(TaxDetails, 0, len(groups))
	for _, group := range groups {
		details = append(details, *group)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Plato.LessThan(details[j].Plato)
	})
	return details
}

// Submit freezes a draft report: the report becomes submitted, the period's
// confirmed movements become reported, and batches referenced by those
// movements have their excise status set to reported.
func (s *Reports) Submit(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != ReportDraft {
		return nil, apperror.NewReportAlreadySubmitted(report.Period)
	}

	// Collect batch references before the cascade flips statuses.
	movements, err := s.movements.ListByPeriod(ctx, report.Period, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	batchIDs := referencedBatches(movements)

	now := time.Now().UTC()
	report.Status = ReportSubmitted
	report.SubmittedAt = &now
	report.SubmittedBy = appcontext.GetUserID(ctx)
	report.Touch()

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reports.Update(ctx, report); err != nil {
			return fmt.Errorf("update report: %w", err)
		}
		moved, err := s.movements.UpdateStatusByPeriod(ctx, report.Period, StatusConfirmed, StatusReported)
		if err != nil {
			return fmt.Errorf("cascade movement status: %w", err)
		}
		if len(batchIDs) > 0 {
			if err := s.batchW.SetExciseStatus(ctx, batchIDs, stockdoc.BatchExciseReported); err != nil {
				return fmt.Errorf("cascade batch status: %w", err)
			}
		}
		s.record(ctx, audit.Entry{
			EntityType: "excise_report",
			EntityID:   report.ID,
			Action:     audit.ActionSubmit,
			Changes:    audit.Snapshot(report),
		})
		logger.Info(ctx, "monthly report submitted",
			"report_id", report.ID, "period", report.Period,
			"movements", moved, "batches", len(batchIDs))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Revert unfreezes a submitted report: back to draft with submission metadata
// cleared, and the period's reported movements return to confirmed. Batch
// excise status stays reported; the next submit sets it again.
func (s *Reports) Revert(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != ReportSubmitted {
		return nil, apperror.NewReportNotSubmitted(reportID)
	}

	report.Status = ReportDraft
	report.SubmittedAt = nil
	report.SubmittedBy = ""
	report.Touch()

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reports.Update(ctx, report); err != nil {
			return fmt.Errorf("update report: %w", err)
		}
		moved, err := s.movements.UpdateStatusByPeriod(ctx, report.Period, StatusReported, StatusConfirmed)
		if err != nil {
			return fmt.Errorf("cascade movement status: %w", err)
		}
		s.record(ctx, audit.Entry{
			EntityType: "excise_report",
			EntityID:   report.ID,
			Action:     audit.ActionRevert,
			Changes:    audit.Snapshot(report),
		})
		logger.Info(ctx, "monthly report reverted",
			"report_id", report.ID, "period", report.Period, "movements", moved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

func referencedBatches(movements []Movement) []id.ID {
	seen := map[id.ID]struct{}{}
	var ids []id.ID
	for i := range movements {
		batchID := movements[i].BatchID
		if batchID == nil {
			continue
		}
		if _, ok := seen[*batchID]; ok {
			continue
		}
		seen[*batchID] = struct{}{}
		ids = append(ids, *batchID)
	}
	return ids
}
