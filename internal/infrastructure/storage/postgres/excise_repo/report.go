package excise_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/storage/postgres"
)

const reportsTable = "excise_reports"

// ReportRepo implements excise.ReportRepository.
type ReportRepo struct {
	builder squirrel.StatementBuilderType
	columns []string
}

// NewReportRepo creates a new report repository.
func NewReportRepo() *ReportRepo {
	return &ReportRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[excise.MonthlyReport](),
	}
}

func (r *ReportRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *ReportRepo) baseSelect(ctx context.Context) squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From(reportsTable).
		Where(squirrel.Eq{"tenant_id": tenant.MustGetTenant(ctx)})
}

// GetByID retrieves a report.
func (r *ReportRepo) GetByID(ctx context.Context, reportID id.ID) (*excise.MonthlyReport, error) {
	q := r.baseSelect(ctx).Where(squirrel.Eq{"id": reportID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var report excise.MonthlyReport
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &report, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("report", reportID)
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// GetByPeriod returns nil (no error) when no report exists for the period.
func (r *ReportRepo) GetByPeriod(ctx context.Context, period string) (*excise.MonthlyReport, error) {
	q := r.baseSelect(ctx).Where(squirrel.Eq{"period": period})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var report excise.MonthlyReport
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &report, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get report by period: %w", err)
	}
	return &report, nil
}

// Upsert inserts the report row or replaces the draft for the same period.
func (r *ReportRepo) Upsert(ctx context.Context, report *excise.MonthlyReport) error {
	sql := `
		INSERT INTO excise_reports (
			id, tenant_id, period,
			opening_balance_hl, production_hl, transfer_in_hl,
			release_hl, transfer_out_hl, loss_hl, destruction_hl,
			adjustment_hl, closing_balance_hl,
			total_tax, tax_details,
			status, submitted_at, submitted_by,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (tenant_id, period) DO UPDATE SET
			opening_balance_hl = EXCLUDED.opening_balance_hl,
			production_hl      = EXCLUDED.production_hl,
			transfer_in_hl     = EXCLUDED.transfer_in_hl,
			release_hl         = EXCLUDED.release_hl,
			transfer_out_hl    = EXCLUDED.transfer_out_hl,
			loss_hl            = EXCLUDED.loss_hl,
			destruction_hl     = EXCLUDED.destruction_hl,
			adjustment_hl      = EXCLUDED.adjustment_hl,
			closing_balance_hl = EXCLUDED.closing_balance_hl,
			total_tax          = EXCLUDED.total_tax,
			tax_details        = EXCLUDED.tax_details,
			version            = excise_reports.version + 1,
			updated_at         = EXCLUDED.updated_at
		WHERE excise_reports.status = 'draft'
	`

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql,
		report.ID, report.TenantID, report.Period,
		report.OpeningBalanceHl, report.ProductionHl, report.TransferInHl,
		report.ReleaseHl, report.TransferOutHl, report.LossHl, report.DestructionHl,
		report.AdjustmentHl, report.ClosingBalanceHl,
		report.TotalTax, report.TaxDetails,
		report.Status, report.SubmittedAt, report.SubmittedBy,
		report.Version, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewReportAlreadySubmitted(report.Period)
	}
	return nil
}

// Update writes the full row with optimistic locking on version.
func (r *ReportRepo) Update(ctx context.Context, report *excise.MonthlyReport) error {
	// The service bumps Version via Touch before calling Update.
	q := r.builder.Update(reportsTable).
		Set("opening_balance_hl", report.OpeningBalanceHl).
		Set("production_hl", report.ProductionHl).
		Set("transfer_in_hl", report.TransferInHl).
		Set("release_hl", report.ReleaseHl).
		Set("transfer_out_hl", report.TransferOutHl).
		Set("loss_hl", report.LossHl).
		Set("destruction_hl", report.DestructionHl).
		Set("adjustment_hl", report.AdjustmentHl).
		Set("closing_balance_hl", report.ClosingBalanceHl).
		Set("total_tax", report.TotalTax).
		Set("tax_details", report.TaxDetails).
		Set("status", report.Status).
		Set("submitted_at", report.SubmittedAt).
		Set("submitted_by", report.SubmittedBy).
		Set("version", report.Version).
		Set("updated_at", report.UpdatedAt).
		Where(squirrel.Eq{
			"id":        report.ID,
			"tenant_id": tenant.MustGetTenant(ctx),
			"version":   report.Version - 1,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("report", report.ID)
	}
	return nil
}

// List retrieves reports with filtering and pagination.
func (r *ReportRepo) List(ctx context.Context, filter excise.ReportFilter) (excise.ListResult[*excise.MonthlyReport], error) {
	result := excise.ListResult[*excise.MonthlyReport]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	conds := []squirrel.Sqlizer{
		squirrel.Eq{"tenant_id": tenant.MustGetTenant(ctx)},
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *filter.Status})
	}
	if filter.PeriodFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"period": *filter.PeriodFrom})
	}
	if filter.PeriodTo != nil {
		conds = append(conds, squirrel.LtOrEq{"period": *filter.PeriodTo})
	}

	countQ := r.builder.Select("COUNT(*)").From(reportsTable)
	for _, cond := range conds {
		countQ = countQ.Where(cond)
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count reports: %w", err)
	}

	q := r.builder.Select(r.columns...).From(reportsTable).OrderBy("period DESC")
	for _, cond := range conds {
		q = q.Where(cond)
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list reports: %w", err)
	}
	return result, nil
}
