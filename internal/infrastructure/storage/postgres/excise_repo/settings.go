package excise_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/storage/postgres"
)

const settingsTable = "excise_settings"

// SettingsRepo implements excise.SettingsRepository.
type SettingsRepo struct {
	builder squirrel.StatementBuilderType
	columns []string
}

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo() *SettingsRepo {
	return &SettingsRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[excise.Settings](),
	}
}

func (r *SettingsRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Get returns the tenant's settings; tenants that never configured excise get
// the documented defaults.
func (r *SettingsRepo) Get(ctx context.Context) (excise.Settings, error) {
	tenantID := tenant.MustGetTenant(ctx)

	q := r.builder.Select(r.columns...).
		From(settingsTable).
		Where(squirrel.Eq{"tenant_id": tenantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return excise.Settings{}, fmt.Errorf("build query: %w", err)
	}

	var settings excise.Settings
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &settings, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return excise.DefaultSettings(tenantID), nil
		}
		return excise.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// Save upserts the tenant's settings row.
func (r *SettingsRepo) Save(ctx context.Context, s excise.Settings) error {
	sql := `
		INSERT INTO excise_settings (
			tenant_id, enabled, category, tax_point, plato_source, loss_norm_pct, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			enabled       = EXCLUDED.enabled,
			category      = EXCLUDED.category,
			tax_point     = EXCLUDED.tax_point,
			plato_source  = EXCLUDED.plato_source,
			loss_norm_pct = EXCLUDED.loss_norm_pct,
			updated_at    = EXCLUDED.updated_at
	`

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		s.TenantID, s.Enabled, s.Category, s.TaxPoint, s.PlatoSource, s.LossNormPct, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
