// Package excise_repo provides PostgreSQL implementations for the excise
// domain repositories. All queries are tenant-scoped through context; the
// TxManager is obtained from context per request.
package excise_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/storage/postgres"
)

const movementsTable = "excise_movements"

// MovementRepo implements excise.MovementRepository.
type MovementRepo struct {
	builder squirrel.StatementBuilderType
	columns []string
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo() *MovementRepo {
	return &MovementRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[excise.Movement](),
	}
}

func (r *MovementRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *MovementRepo) baseSelect(ctx context.Context) squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From(movementsTable).
		Where(squirrel.Eq{"tenant_id": tenant.MustGetTenant(ctx)})
}

func movementValues(m *excise.Movement) []any {
	return []any{
		m.ID, m.TenantID, m.Type, m.Direction,
		m.VolumeHl, m.Plato, m.PlatoSource,
		m.TaxRate, m.TaxAmount,
		m.BatchID, m.StockIssueID, m.WarehouseID, m.ReversalOfID,
		m.Date, m.Period, m.Status,
		m.Description, m.Notes,
		m.Version, m.CreatedAt, m.UpdatedAt,
	}
}

// Create inserts a single movement.
func (r *MovementRepo) Create(ctx context.Context, m *excise.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(r.columns...).
		Values(movementValues(m)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// CreateMany bulk inserts movements, using COPY when inside a transaction.
func (r *MovementRepo) CreateMany(ctx context.Context, movements []*excise.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	txm := r.getTxManager(ctx)
	if tx := txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(txm)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementValues(m))
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, r.columns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(r.columns...)
	for _, m := range movements {
		q = q.Values(movementValues(m)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := txm.GetQuerier(ctx)
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// GetByID retrieves a movement under the caller's tenant scope.
func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*excise.Movement, error) {
	q := r.baseSelect(ctx).Where(squirrel.Eq{"id": movementID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m excise.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &m, nil
}

// Update writes the full row with optimistic locking on version.
func (r *MovementRepo) Update(ctx context.Context, m *excise.Movement) error {
	currentVersion := m.Version
	m.Touch()

	q := r.builder.Update(movementsTable).
		Set("movement_type", m.Type).
		Set("direction", m.Direction).
		Set("volume_hl", m.VolumeHl).
		Set("plato", m.Plato).
		Set("plato_source", m.PlatoSource).
		Set("tax_rate", m.TaxRate).
		Set("tax_amount", m.TaxAmount).
		Set("warehouse_id", m.WarehouseID).
		Set("date", m.Date).
		Set("period", m.Period).
		Set("status", m.Status).
		Set("description", m.Description).
		Set("notes", m.Notes).
		Set("version", m.Version).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{
			"id":        m.ID,
			"tenant_id": tenant.MustGetTenant(ctx),
			"version":   currentVersion,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("movement", m.ID)
	}
	return nil
}

// Delete removes a movement row.
func (r *MovementRepo) Delete(ctx context.Context, movementID id.ID) error {
	q := r.builder.Delete(movementsTable).
		Where(squirrel.Eq{
			"id":        movementID,
			"tenant_id": tenant.MustGetTenant(ctx),
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("movement", movementID)
	}
	return nil
}

// List retrieves movements with filtering and pagination.
func (r *MovementRepo) List(ctx context.Context, filter excise.MovementFilter) (excise.ListResult[*excise.Movement], error) {
	result := excise.ListResult[*excise.Movement]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	where := r.filterConditions(ctx, filter)

	countQ := r.builder.Select("COUNT(*)").From(movementsTable)
	for _, cond := range where {
		countQ = countQ.Where(cond)
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count movements: %w", err)
	}

	q := r.builder.Select(r.columns...).From(movementsTable)
	for _, cond := range where {
		q = q.Where(cond)
	}
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "date DESC"
	}
	q = q.OrderBy(orderBy, "created_at DESC")
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
		return result, fmt.Errorf("list movements: %w", err)
	}
	return result, nil
}

func (r *MovementRepo) filterConditions(ctx context.Context, filter excise.MovementFilter) []squirrel.Sqlizer {
	conds := []squirrel.Sqlizer{
		squirrel.Eq{"tenant_id": tenant.MustGetTenant(ctx)},
	}
	if filter.Period != nil {
		conds = append(conds, squirrel.Eq{"period": *filter.Period})
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		conds = append(conds, squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.BatchID != nil {
		conds = append(conds, squirrel.Eq{"batch_id": *filter.BatchID})
	}
	if filter.StockIssueID != nil {
		conds = append(conds, squirrel.Eq{"stock_issue_id": *filter.StockIssueID})
	}
	if filter.WarehouseID != nil {
		conds = append(conds, squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.DateFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		conds = append(conds, squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return conds
}

// ListByStockIssue retrieves all movements derived from a stock issue.
func (r *MovementRepo) ListByStockIssue(ctx context.Context, stockIssueID id.ID) ([]excise.Movement, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"stock_issue_id": stockIssueID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []excise.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list by stock issue: %w", err)
	}
	return movements, nil
}

// ListByPeriod retrieves a period's movements in one status.
func (r *MovementRepo) ListByPeriod(ctx context.Context, period string, status excise.MovementStatus) ([]excise.Movement, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"period": period, "status": status}).
		OrderBy("date ASC", "created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []excise.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list by period: %w", err)
	}
	return movements, nil
}

// UpdateStatusByPeriod moves every movement of the period from one status to
// another. The WHERE on the source status makes repeated submits harmless.
func (r *MovementRepo) UpdateStatusByPeriod(ctx context.Context, period string, from, to excise.MovementStatus) (int64, error) {
	q := r.builder.Update(movementsTable).
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"tenant_id": tenant.MustGetTenant(ctx),
			"period":    period,
			"status":    from,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update status by period: %w", err)
	}
	return tag.RowsAffected(), nil
}
