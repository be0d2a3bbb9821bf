package excise_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/core/types"
	"brauer/internal/domain/stockdoc"
	"brauer/internal/infrastructure/storage/postgres"
)

const (
	stockIssuesTable      = "stock_issues"
	stockIssueLinesTable  = "stock_issue_lines"
	stockConsumptionTable = "stock_batch_consumption"
	warehousesTable       = "warehouses"
	batchesTable          = "production_batches"

	// stockIssueFKColumn is the foreign key column name shared by
	// stock_issue_lines and stock_batch_consumption.
	stockIssueFKColumn = "stock_issue_id"
)

// StockDocRepo implements stockdoc.IssueReader, stockdoc.BatchReader and
// stockdoc.BatchWriter against the stock module's tables. The excise engine
// reads documents and writes only the batch excise bookkeeping fields.
type StockDocRepo struct {
	builder squirrel.StatementBuilderType
}

// NewStockDocRepo creates the stock document view repository.
func NewStockDocRepo() *StockDocRepo {
	return &StockDocRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StockDocRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// GetIssue retrieves a stock issue header with its lines.
func (r *StockDocRepo) GetIssue(ctx context.Context, issueID id.ID) (*stockdoc.StockIssue, error) {
	q := r.builder.Select(
		"id", "tenant_id", "kind", "purpose", "warehouse_id", "batch_id", "date", "status",
	).
		From(stockIssuesTable).
		Where(squirrel.Eq{
			"id":        issueID,
			"tenant_id": tenant.MustGetTenant(ctx),
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var issue stockdoc.StockIssue
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &issue, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock issue", issueID)
		}
		return nil, fmt.Errorf("get stock issue: %w", err)
	}

	sql, args, err = r.issueLinesQuery(issueID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &issue.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get issue lines: %w", err)
	}
	return &issue, nil
}

func (r *StockDocRepo) issueLinesQuery(issueID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(
		"line_id", "item_id", "quantity_l", "batch_id", "plato", "excise_relevant",
	).
		From(stockIssueLinesTable).
		Where(squirrel.Eq{stockIssueFKColumn: issueID}).
		OrderBy("line_no ASC")
}

func (r *StockDocRepo) trailQuery(issueID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("batch_id", "quantity_l", "plato").
		From(stockConsumptionTable).
		Where(squirrel.Eq{stockIssueFKColumn: issueID}).
		OrderBy("consumed_at ASC")
}

// IsExciseWarehouse reports whether the warehouse is flagged for excise tracking.
func (r *StockDocRepo) IsExciseWarehouse(ctx context.Context, warehouseID id.ID) (bool, error) {
	q := r.builder.Select("excise_tracking").
		From(warehousesTable).
		Where(squirrel.Eq{
			"id":        warehouseID,
			"tenant_id": tenant.MustGetTenant(ctx),
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exciseTracking bool
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &exciseTracking, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			// Unknown warehouses are simply outside the excise perimeter.
			return false, nil
		}
		return false, fmt.Errorf("get warehouse: %w", err)
	}
	return exciseTracking, nil
}

// ConsumptionTrail reconstructs which batches an outbound issue depleted.
// Empty for documents recorded before batch consumption tracking existed.
func (r *StockDocRepo) ConsumptionTrail(ctx context.Context, issueID id.ID) ([]stockdoc.BatchConsumption, error) {
	sql, args, err := r.trailQuery(issueID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var trail []stockdoc.BatchConsumption
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &trail, sql, args...); err != nil {
		return nil, fmt.Errorf("get consumption trail: %w", err)
	}
	return trail, nil
}

// ListConfirmedWithoutMovements finds confirmed issues on excise warehouses
// with no derived movements. Feeds the reconciliation sweep.
func (r *StockDocRepo) ListConfirmedWithoutMovements(ctx context.Context, limit int) ([]id.ID, error) {
	sql := `
		SELECT i.id
		FROM stock_issues i
		JOIN warehouses w ON w.id = i.warehouse_id
		WHERE i.tenant_id = $1
		  AND i.status = 'confirmed'
		  AND w.excise_tracking = true
		  AND NOT EXISTS (
			SELECT 1 FROM excise_movements m WHERE m.stock_issue_id = i.id
		  )
		ORDER BY i.date ASC
		LIMIT $2
	`

	var ids []id.ID
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ids, sql, tenant.MustGetTenant(ctx), limit); err != nil {
		return nil, fmt.Errorf("list unprocessed issues: %w", err)
	}
	return ids, nil
}

// GetBatch retrieves the excise view of a production batch.
func (r *StockDocRepo) GetBatch(ctx context.Context, batchID id.ID) (*stockdoc.Batch, error) {
	q := r.builder.Select(
		"id", "tenant_id", "measured_plato", "recipe_plato",
		"packaging_loss_l", "excise_relevant_hl", "excise_status",
	).
		From(batchesTable).
		Where(squirrel.Eq{
			"id":        batchID,
			"tenant_id": tenant.MustGetTenant(ctx),
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batch stockdoc.Batch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

// AddExciseRelevantHl adjusts the accumulator with a relative expression, so
// concurrent derivations never race on read-modify-write.
func (r *StockDocRepo) AddExciseRelevantHl(ctx context.Context, batchID id.ID, delta types.Decimal) error {
	sql := `
		UPDATE production_batches
		SET excise_relevant_hl = excise_relevant_hl + $1
		WHERE id = $2 AND tenant_id = $3
	`

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, delta, batchID, tenant.MustGetTenant(ctx))
	if err != nil {
		return fmt.Errorf("add excise relevant volume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID)
	}
	return nil
}

// SetExciseStatus bulk-updates the excise status of the given batches.
func (r *StockDocRepo) SetExciseStatus(ctx context.Context, batchIDs []id.ID, status stockdoc.BatchExciseStatus) error {
	if len(batchIDs) == 0 {
		return nil
	}

	q := r.builder.Update(batchesTable).
		Set("excise_status", status).
		Where(squirrel.Eq{
			"id":        batchIDs,
			"tenant_id": tenant.MustGetTenant(ctx),
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set batch excise status: %w", err)
	}
	return nil
}
