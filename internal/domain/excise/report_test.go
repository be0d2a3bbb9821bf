package excise

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/types"
	"brauer/internal/domain/stockdoc"
)

type reportFixture struct {
	service   *Reports
	movements *memMovements
	reports   *memReports
	stock     *fakeStock
}

func newReportFixture() *reportFixture {
	movements := newMemMovements()
	reports := newMemReports()
	stock := newFakeStock()
	service := NewReports(reports, movements, stock, &memAudit{}, fakeTxManager{})
	return &reportFixture{service: service, movements: movements, reports: reports, stock: stock}
}

func (f *reportFixture) addMovement(t *testing.T, mType MovementType, volume string, day int, mutate ...func(*Movement)) *Movement {
	t.Helper()
	m := NewMovement(testTenant, mType, types.MustDecimal(volume), date(2025, time.March, day))
	m.Status = StatusConfirmed
	for _, fn := range mutate {
		fn(m)
	}
	require.NoError(t, f.movements.Create(testCtx(), m))
	return m
}

// roTxManager counts read-only transaction use.
type roTxManager struct {
	fakeTxManager
	readOnlyCalls int
}

func (m *roTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnlyCalls++
	return fn(ctx)
}

func TestGenerateReadsInReadOnlyTransaction(t *testing.T) {
	movements := newMemMovements()
	txm := &roTxManager{}
	service := NewReports(newMemReports(), movements, newFakeStock(), &memAudit{}, txm)

	m := NewMovement(testTenant, MovementProduction, types.MustDecimal("10"), date(2025, time.March, 1))
	m.Status = StatusConfirmed
	require.NoError(t, movements.Create(testCtx(), m))

	report, err := service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	assert.True(t, report.ProductionHl.Equal(types.MustDecimal("10")))
	assert.Equal(t, 1, txm.readOnlyCalls)
}

func TestGenerateAggregatesBuckets(t *testing.T) {
	f := newReportFixture()
	f.addMovement(t, MovementProduction, "100", 1)
	f.addMovement(t, MovementTransferIn, "20", 2)
	f.addMovement(t, MovementRelease, "60", 5)
	f.addMovement(t, MovementTransferOut, "10", 6)
	f.addMovement(t, MovementLoss, "3", 7)
	f.addMovement(t, MovementDestruction, "2", 8)
	f.addMovement(t, MovementAdjustment, "5", 9, func(m *Movement) { m.Direction = DirectionIn })
	f.addMovement(t, MovementAdjustment, "1", 10, func(m *Movement) { m.Direction = DirectionOut })
	// Draft movements are excluded from aggregation.
	draft := NewMovement(testTenant, MovementProduction, types.MustDecimal("999"), date(2025, time.March, 11))
	require.NoError(t, f.movements.Create(testCtx(), draft))
	// Other periods are excluded.
	f.addMovement(t, MovementProduction, "50", 1, func(m *Movement) { m.SetDate(date(2025, time.April, 1)) })

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)

	assert.True(t, report.ProductionHl.Equal(types.MustDecimal("100")))
	assert.True(t, report.TransferInHl.Equal(types.MustDecimal("20")))
	assert.True(t, report.ReleaseHl.Equal(types.MustDecimal("60")))
	assert.True(t, report.TransferOutHl.Equal(types.MustDecimal("10")))
	assert.True(t, report.LossHl.Equal(types.MustDecimal("3")))
	assert.True(t, report.DestructionHl.Equal(types.MustDecimal("2")))
	assert.True(t, report.AdjustmentHl.Equal(types.MustDecimal("4")))

	// 0 + 100 + 20 − 60 − 10 − 3 − 2 + 4 = 49
	assert.True(t, report.ClosingBalanceHl.Equal(types.MustDecimal("49")))
	assert.True(t, report.Balanced())
}

func TestGenerateOpeningFromPreviousPeriod(t *testing.T) {
	f := newReportFixture()

	prior := NewMonthlyReport(testTenant, "2025-02")
	prior.ClosingBalanceHl = types.MustDecimal("42")
	require.NoError(t, f.reports.Upsert(testCtx(), prior))

	f.addMovement(t, MovementProduction, "10", 1)

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	assert.True(t, report.OpeningBalanceHl.Equal(types.MustDecimal("42")))
	assert.True(t, report.ClosingBalanceHl.Equal(types.MustDecimal("52")))
}

func TestGenerateTaxDetailsGroupsReleases(t *testing.T) {
	f := newReportFixture()
	f.addMovement(t, MovementRelease, "10", 1, func(m *Movement) {
		m.Plato = decp("11.5")
		m.TaxAmount = decp("92")
	})
	f.addMovement(t, MovementRelease, "5", 2, func(m *Movement) {
		m.Plato = decp("11.5")
		m.TaxAmount = decp("46")
	})
	f.addMovement(t, MovementRelease, "4", 3, func(m *Movement) {
		m.Plato = decp("12.8")
		m.TaxAmount = decp("40.96")
	})
	// Production carries a tax amount at the production tax point, but only
	// release movements feed the breakdown.
	f.addMovement(t, MovementProduction, "100", 4, func(m *Movement) {
		m.Plato = decp("11.5")
		m.TaxAmount = decp("920")
	})

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)

	require.Len(t, report.TaxDetails, 2)
	assert.Equal(t, "11.5", report.TaxDetails[0].Plato.String())
	assert.True(t, report.TaxDetails[0].VolumeHl.Equal(types.MustDecimal("15")))
	assert.True(t, report.TaxDetails[0].Tax.Equal(types.MustDecimal("138")))
	assert.Equal(t, "12.8", report.TaxDetails[1].Plato.String())

	// totalTax is the sum of the groups, nothing else.
	assert.True(t, report.TotalTax.Equal(types.MustDecimal("178.96")))
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newReportFixture()
	f.addMovement(t, MovementRelease, "10", 1, func(m *Movement) {
		m.Plato = decp("11.5")
		m.TaxAmount = decp("92")
	})
	f.addMovement(t, MovementProduction, "30", 2)

	first, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	second, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)

	// Same row updated in place, identical payload.
	assert.Equal(t, first.ID, second.ID)
	firstJSON, err := json.Marshal(payload(first))
	require.NoError(t, err)
	secondJSON, err := json.Marshal(payload(second))
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

// payload strips bookkeeping fields so idempotence compares business content.
func payload(r *MonthlyReport) map[string]any {
	return map[string]any{
		"period":     r.Period,
		"opening":    r.OpeningBalanceHl,
		"production": r.ProductionHl,
		"transferIn": r.TransferInHl,
		"release":    r.ReleaseHl,
		"transfer":   r.TransferOutHl,
		"loss":       r.LossHl,
		"destroy":    r.DestructionHl,
		"adjust":     r.AdjustmentHl,
		"closing":    r.ClosingBalanceHl,
		"totalTax":   r.TotalTax,
		"taxDetails": r.TaxDetails,
	}
}

func TestGenerateRejectsSubmittedPeriod(t *testing.T) {
	f := newReportFixture()
	submitted := NewMonthlyReport(testTenant, "2025-03")
	submitted.Status = ReportSubmitted
	require.NoError(t, f.reports.Upsert(testCtx(), submitted))

	_, err := f.service.Generate(testCtx(), "2025-03")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeReportAlreadySubmitted))
}

func TestGenerateRejectsInvalidPeriod(t *testing.T) {
	f := newReportFixture()
	_, err := f.service.Generate(testCtx(), "2025-3")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestSubmitCascades(t *testing.T) {
	f := newReportFixture()
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID, ExciseStatus: stockdoc.BatchExciseTracked}
	f.addMovement(t, MovementProduction, "10", 1, func(m *Movement) { m.BatchID = &batchID })
	f.addMovement(t, MovementRelease, "4", 2)

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)

	submitted, err := f.service.Submit(testCtx(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportSubmitted, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)

	reported, err := f.movements.ListByPeriod(testCtx(), "2025-03", StatusReported)
	require.NoError(t, err)
	assert.Len(t, reported, 2)

	assert.Equal(t, stockdoc.BatchExciseReported, f.stock.batches[batchID].ExciseStatus)
}

func TestSubmitTwiceFails(t *testing.T) {
	f := newReportFixture()
	f.addMovement(t, MovementProduction, "10", 1)

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	_, err = f.service.Submit(testCtx(), report.ID)
	require.NoError(t, err)

	_, err = f.service.Submit(testCtx(), report.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeReportAlreadySubmitted))
}

func TestRevertCascades(t *testing.T) {
	f := newReportFixture()
	batchID := id.New()
	f.stock.batches[batchID] = &stockdoc.Batch{ID: batchID, ExciseStatus: stockdoc.BatchExciseTracked}
	f.addMovement(t, MovementProduction, "10", 1, func(m *Movement) { m.BatchID = &batchID })

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	_, err = f.service.Submit(testCtx(), report.ID)
	require.NoError(t, err)

	reverted, err := f.service.Revert(testCtx(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportDraft, reverted.Status)
	assert.Nil(t, reverted.SubmittedAt)
	assert.Empty(t, reverted.SubmittedBy)

	confirmed, err := f.movements.ListByPeriod(testCtx(), "2025-03", StatusConfirmed)
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	// Batch excise status is deliberately not reverted.
	assert.Equal(t, stockdoc.BatchExciseReported, f.stock.batches[batchID].ExciseStatus)
}

func TestRevertRequiresSubmitted(t *testing.T) {
	f := newReportFixture()
	f.addMovement(t, MovementProduction, "10", 1)

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)

	_, err = f.service.Revert(testCtx(), report.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeReportNotSubmitted))
}

func TestSubmitRevertSubmitReproducesPayload(t *testing.T) {
	f := newReportFixture()
	f.addMovement(t, MovementRelease, "10", 1, func(m *Movement) {
		m.Plato = decp("11.5")
		m.TaxAmount = decp("92")
	})
	f.addMovement(t, MovementProduction, "30", 2)

	report, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	firstJSON, err := json.Marshal(payload(report))
	require.NoError(t, err)

	_, err = f.service.Submit(testCtx(), report.ID)
	require.NoError(t, err)
	_, err = f.service.Revert(testCtx(), report.ID)
	require.NoError(t, err)

	regenerated, err := f.service.Generate(testCtx(), "2025-03")
	require.NoError(t, err)
	secondJSON, err := json.Marshal(payload(regenerated))
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))

	resubmitted, err := f.service.Submit(testCtx(), regenerated.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportSubmitted, resubmitted.Status)
}

func TestSubmitNotFound(t *testing.T) {
	f := newReportFixture()
	_, err := f.service.Submit(testCtx(), id.New())
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.service.Revert(testCtx(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}
