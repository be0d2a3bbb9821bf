package excise_repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	tenantID := id.MustParse("018f0000-0000-7000-8000-000000000001")
	return tenant.WithTenant(context.Background(), tenantID)
}

func TestMovementFilterConditions_TenantAlwaysFirst(t *testing.T) {
	repo := NewMovementRepo()
	ctx := testCtx(t)

	conds := repo.filterConditions(ctx, excise.MovementFilter{})
	require.Len(t, conds, 1)

	sql, args, err := conds[0].ToSql()
	require.NoError(t, err)
	assert.Equal(t, "tenant_id = ?", sql)
	assert.Len(t, args, 1)
}

func TestMovementFilterConditions_AllFields(t *testing.T) {
	repo := NewMovementRepo()
	ctx := testCtx(t)

	period := "2026-03"
	status := excise.StatusConfirmed
	mType := excise.MovementRelease
	batchID := id.MustParse("018f0000-0000-7000-8000-000000000002")

	conds := repo.filterConditions(ctx, excise.MovementFilter{
		Period:  &period,
		Status:  &status,
		Type:    &mType,
		BatchID: &batchID,
	})
	require.Len(t, conds, 5)

	wantSQL := []string{
		"tenant_id = ?",
		"period = ?",
		"status = ?",
		"movement_type = ?",
		"batch_id = ?",
	}
	for i, cond := range conds {
		sql, _, err := cond.ToSql()
		require.NoError(t, err)
		assert.Equal(t, wantSQL[i], sql)
	}
}

func TestMovementBaseSelect_SQL(t *testing.T) {
	repo := NewMovementRepo()
	ctx := testCtx(t)

	sql, args, err := repo.baseSelect(ctx).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM excise_movements")
	assert.Contains(t, sql, "tenant_id = $1")
	assert.Contains(t, sql, "volume_hl")
	assert.Contains(t, sql, "tax_amount")
	assert.Len(t, args, 1)
}

func TestStockIssueChildQueries_UseSchemaColumn(t *testing.T) {
	repo := NewStockDocRepo()
	issueID := id.MustParse("018f0000-0000-7000-8000-000000000003")

	linesSQL, _, err := repo.issueLinesQuery(issueID).ToSql()
	require.NoError(t, err)
	assert.Contains(t, linesSQL, "FROM stock_issue_lines")
	assert.Contains(t, linesSQL, "stock_issue_id = $1")

	trailSQL, _, err := repo.trailQuery(issueID).ToSql()
	require.NoError(t, err)
	assert.Contains(t, trailSQL, "FROM stock_batch_consumption")
	assert.Contains(t, trailSQL, "stock_issue_id = $1")

	// The column name must match what the migrations create.
	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(schema), "stock_issue_id UUID NOT NULL REFERENCES stock_issues")
}

func TestRateApplicableQuery_SQL(t *testing.T) {
	repo := NewRateRepo()
	ctx := testCtx(t)

	sql, args, err := repo.applicableQuery(ctx, excise.CategoryB).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM excise_rates")
	assert.Contains(t, sql, "tenant_id = $1 OR tenant_id IS NULL")
	assert.Contains(t, sql, "category = ")
	assert.Contains(t, sql, "is_active = ")
	assert.NotEmpty(t, args)
}
