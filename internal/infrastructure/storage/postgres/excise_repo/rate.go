package excise_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/storage/postgres"
)

const ratesTable = "excise_rates"

// RateRepo implements excise.RateRepository.
type RateRepo struct {
	builder squirrel.StatementBuilderType
	columns []string
}

// NewRateRepo creates a new rate repository.
func NewRateRepo() *RateRepo {
	return &RateRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[excise.Rate](),
	}
}

func (r *RateRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *RateRepo) applicableQuery(ctx context.Context, category excise.BreweryCategory) squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From(ratesTable).
		Where(squirrel.Or{
			squirrel.Eq{"tenant_id": tenant.MustGetTenant(ctx)},
			squirrel.Eq{"tenant_id": nil},
		}).
		Where(squirrel.Eq{"category": category, "is_active": true})
}

// FindApplicable returns active rates for the category whose validity window
// covers onDate. Global rows (tenant_id IS NULL) are always candidates; the
// resolver decides precedence.
func (r *RateRepo) FindApplicable(ctx context.Context, category excise.BreweryCategory, onDate time.Time) ([]excise.Rate, error) {
	q := r.applicableQuery(ctx, category).
		Where(squirrel.LtOrEq{"valid_from": onDate}).
		Where(squirrel.Or{
			squirrel.Eq{"valid_to": nil},
			squirrel.GtOrEq{"valid_to": onDate},
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rates []excise.Rate
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rates, sql, args...); err != nil {
		return nil, fmt.Errorf("find applicable rates: %w", err)
	}
	return rates, nil
}

// Create inserts a rate row.
func (r *RateRepo) Create(ctx context.Context, rate *excise.Rate) error {
	q := r.builder.Insert(ratesTable).
		Columns(r.columns...).
		Values(
			rate.ID, rate.TenantID, rate.Category, rate.RatePerPlatoHl,
			rate.ValidFrom, rate.ValidTo, rate.IsActive, rate.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

// Deactivate retires a rate row without deleting its history.
func (r *RateRepo) Deactivate(ctx context.Context, rateID id.ID) error {
	q := r.builder.Update(ratesTable).
		Set("is_active", false).
		Where(squirrel.Eq{"id": rateID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("deactivate rate: %w", err)
	}
	return nil
}

// List returns the tenant's visible rates, optionally per category.
func (r *RateRepo) List(ctx context.Context, category *excise.BreweryCategory) ([]excise.Rate, error) {
	q := r.builder.Select(r.columns...).
		From(ratesTable).
		Where(squirrel.Or{
			squirrel.Eq{"tenant_id": tenant.MustGetTenant(ctx)},
			squirrel.Eq{"tenant_id": nil},
		}).
		OrderBy("category ASC", "valid_from DESC")
	if category != nil {
		q = q.Where(squirrel.Eq{"category": *category})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rates []excise.Rate
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rates, sql, args...); err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return rates, nil
}
