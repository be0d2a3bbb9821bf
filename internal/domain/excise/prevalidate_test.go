package excise

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
	"brauer/internal/domain/stockdoc"
)

type checkerFixture struct {
	checker *Checker
	stock   *fakeStock
}

func newCheckerFixture(settings Settings, rates []Rate) *checkerFixture {
	stock := newFakeStock()
	checker := NewChecker(
		newMemSettings(settings), stock, stock,
		NewRateResolver(&memRates{rates: rates}),
	)
	return &checkerFixture{checker: checker, stock: stock}
}

func (f *checkerFixture) addIssue(warehouseExcise bool, lines []stockdoc.IssueLine, batchID *id.ID) id.ID {
	warehouseID := id.New()
	f.stock.exciseWarehouses[warehouseID] = warehouseExcise
	issueID := id.New()
	f.stock.issues[issueID] = &stockdoc.StockIssue{
		ID:          issueID,
		TenantID:    testTenant,
		Kind:        stockdoc.KindIssue,
		Purpose:     stockdoc.PurposeSale,
		WarehouseID: warehouseID,
		BatchID:     batchID,
		Date:        date(2025, time.March, 10),
		Status:      stockdoc.IssueConfirmed,
		Lines:       lines,
	}
	return issueID
}

func codes(errs []CheckError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestCheckerNonExciseWarehouseNotApplicable(t *testing.T) {
	f := newCheckerFixture(enabledSettings(), []Rate{standardRate()})
	issueID := f.addIssue(false, []stockdoc.IssueLine{relevantLine("100")}, nil)

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.False(t, result.Applicable)
	assert.Empty(t, result.Errors)
	assert.NotNil(t, result.Errors)
}

func TestCheckerDisabledNotApplicable(t *testing.T) {
	f := newCheckerFixture(DefaultSettings(testTenant), nil)
	issueID := f.addIssue(true, []stockdoc.IssueLine{relevantLine("100")}, nil)

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.False(t, result.Applicable)
	assert.Empty(t, result.Errors)
}

func TestCheckerAllPreconditionsMet(t *testing.T) {
	f := newCheckerFixture(enabledSettings(), []Rate{standardRate()})
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID, MeasuredPlato: decp("12")}
	issueID := f.addIssue(true, []stockdoc.IssueLine{relevantLine("100")}, &batchID)

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.Empty(t, result.Errors)
}

func TestCheckerReportsMissingCategory(t *testing.T) {
	settings := enabledSettings()
	settings.Category = ""
	f := newCheckerFixture(settings, nil)
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID, MeasuredPlato: decp("12")}
	issueID := f.addIssue(true, []stockdoc.IssueLine{relevantLine("100")}, &batchID)

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.Contains(t, codes(result.Errors), CheckNoBreweryCategory)
}

func TestCheckerReportsMissingRateAndPlato(t *testing.T) {
	f := newCheckerFixture(enabledSettings(), nil)
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID}
	issueID := f.addIssue(true, []stockdoc.IssueLine{relevantLine("100")}, &batchID)

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.ElementsMatch(t, []string{CheckNoExciseRate, CheckNoPlato}, codes(result.Errors))
}

func TestCheckerLinePlatoSatisfiesCheck(t *testing.T) {
	f := newCheckerFixture(enabledSettings(), []Rate{standardRate()})
	line := relevantLine("100")
	line.Plato = decp("11.2")
	issueID := f.addIssue(true, []stockdoc.IssueLine{line}, nil)

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.Empty(t, result.Errors)
}

func TestCheckerUsesConsumptionTrailBatches(t *testing.T) {
	f := newCheckerFixture(enabledSettings(), []Rate{standardRate()})
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID, RecipePlato: decp("11.0")}
	issueID := f.addIssue(true, []stockdoc.IssueLine{relevantLine("100")}, nil)
	f.stock.trails[issueID] = []stockdoc.BatchConsumption{
		{BatchID: batchID, QuantityL: types.MustDecimal("100")},
	}

	result, err := f.checker.ForStockIssue(testCtx(), issueID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.Empty(t, result.Errors)
}

func TestCheckerForBatchNoRate(t *testing.T) {
	// No rate configured: the batch stays checkable and the gap is reported,
	// while derivation itself still proceeds without a tax amount.
	f := newCheckerFixture(enabledSettings(), nil)
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID, MeasuredPlato: decp("12")}

	result, err := f.checker.ForBatch(testCtx(), batchID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.Equal(t, []string{CheckNoExciseRate}, codes(result.Errors))
}

func TestCheckerForBatchDisabled(t *testing.T) {
	f := newCheckerFixture(DefaultSettings(testTenant), nil)
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID}

	result, err := f.checker.ForBatch(testCtx(), batchID)
	require.NoError(t, err)
	assert.False(t, result.Applicable)
	assert.Empty(t, result.Errors)
}

func TestCheckerForBatchNoPlato(t *testing.T) {
	f := newCheckerFixture(enabledSettings(), []Rate{standardRate()})
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID}

	result, err := f.checker.ForBatch(testCtx(), batchID)
	require.NoError(t, err)
	assert.True(t, result.Applicable)
	assert.Equal(t, []string{CheckNoPlato}, codes(result.Errors))
}

// failingRates fails every lookup.
type failingRates struct {
	memRates
}

func (r *failingRates) FindApplicable(context.Context, BreweryCategory, time.Time) ([]Rate, error) {
	return nil, errors.New("connection refused")
}

func TestCheckerPropagatesRateLookupFailure(t *testing.T) {
	stock := newFakeStock()
	checker := NewChecker(newMemSettings(enabledSettings()), stock, stock, NewRateResolver(&failingRates{}))

	batchID := id.New()
	stock.batches[batchID] = &stockdoc.Batch{ID: batchID, MeasuredPlato: decp("12")}
	warehouseID := id.New()
	stock.exciseWarehouses[warehouseID] = true
	issueID := id.New()
	stock.issues[issueID] = &stockdoc.StockIssue{
		ID:          issueID,
		TenantID:    testTenant,
		Kind:        stockdoc.KindIssue,
		Purpose:     stockdoc.PurposeSale,
		WarehouseID: warehouseID,
		BatchID:     &batchID,
		Date:        date(2025, time.March, 10),
		Status:      stockdoc.IssueConfirmed,
		Lines:       []stockdoc.IssueLine{relevantLine("100")},
	}

	// A rate store failure surfaces as an error, not as a no_excise_rate gap.
	_, err := checker.ForStockIssue(testCtx(), issueID)
	require.Error(t, err)

	_, err = checker.ForBatch(testCtx(), batchID)
	require.Error(t, err)
}

func TestCheckerAgreesWithDeriverOnApplicability(t *testing.T) {
	// Property: a document the checker rules not applicable must produce zero
	// movements, and vice versa.
	settings := enabledSettings()
	rates := []Rate{standardRate()}

	stock := newFakeStock()
	checker := NewChecker(newMemSettings(settings), stock, stock, NewRateResolver(&memRates{rates: rates}))
	movements := newMemMovements()
	deriver := NewDeriver(movements, newMemSettings(settings), stock, stock, stock,
		NewRateResolver(&memRates{rates: rates}), &memAudit{}, fakeTxManager{})

	exciseWh := id.New()
	plainWh := id.New()
	stock.exciseWarehouses[exciseWh] = true
	stock.exciseWarehouses[plainWh] = false

	for _, warehouseID := range []id.ID{exciseWh, plainWh} {
		issueID := id.New()
		stock.issues[issueID] = &stockdoc.StockIssue{
			ID:          issueID,
			TenantID:    testTenant,
			Kind:        stockdoc.KindIssue,
			Purpose:     stockdoc.PurposeSale,
			WarehouseID: warehouseID,
			Date:        date(2025, time.March, 10),
			Status:      stockdoc.IssueConfirmed,
			Lines:       []stockdoc.IssueLine{relevantLine("100")},
		}

		result, err := checker.ForStockIssue(testCtx(), issueID)
		require.NoError(t, err)

		created, err := deriver.DeriveFromStockIssue(testCtx(), issueID)
		require.NoError(t, err)

		assert.Equal(t, result.Applicable, len(created) > 0)
	}
}
