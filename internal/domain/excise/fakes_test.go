package excise

import (
	"context"
	"sort"
	"sync"
	"time"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/core/types"
	"brauer/internal/domain/audit"
	"brauer/internal/domain/stockdoc"
)

// testTenant is the tenant scope every test runs under.
var testTenant = id.MustParse("018f0000-0000-7000-8000-000000000001")

func testCtx() context.Context {
	return tenant.WithTenant(context.Background(), testTenant)
}

// fakeTxManager runs the function inline without a database.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memAudit captures recorded entries.
type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *memAudit) Record(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// memMovements is an in-memory MovementRepository.
type memMovements struct {
	mu    sync.Mutex
	items map[id.ID]*Movement
}

func newMemMovements() *memMovements {
	return &memMovements{items: map[id.ID]*Movement{}}
}

func (r *memMovements) Create(_ context.Context, m *Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *memMovements) CreateMany(ctx context.Context, movements []*Movement) error {
	for _, m := range movements {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *memMovements) GetByID(_ context.Context, movementID id.ID) (*Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[movementID]
	if !ok {
		return nil, apperror.NewNotFound("movement", movementID)
	}
	cp := *m
	return &cp, nil
}

func (r *memMovements) Update(_ context.Context, m *Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[m.ID]; !ok {
		return apperror.NewNotFound("movement", m.ID)
	}
	m.Touch()
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *memMovements) Delete(_ context.Context, movementID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[movementID]; !ok {
		return apperror.NewNotFound("movement", movementID)
	}
	delete(r.items, movementID)
	return nil
}

func (r *memMovements) List(_ context.Context, filter MovementFilter) (ListResult[*Movement], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Movement
	for _, m := range r.items {
		if filter.Period != nil && m.Period != *filter.Period {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return ListResult[*Movement]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *memMovements) ListByStockIssue(_ context.Context, stockIssueID id.ID) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for _, m := range r.items {
		if m.StockIssueID != nil && *m.StockIssueID == stockIssueID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMovements) ListByPeriod(_ context.Context, period string, status MovementStatus) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for _, m := range r.items {
		if m.Period == period && m.Status == status {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMovements) UpdateStatusByPeriod(_ context.Context, period string, from, to MovementStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.items {
		if m.Period == period && m.Status == from {
			m.Status = to
			n++
		}
	}
	return n, nil
}

// memReports is an in-memory ReportRepository keyed by period.
type memReports struct {
	mu    sync.Mutex
	items map[id.ID]*MonthlyReport
}

func newMemReports() *memReports {
	return &memReports{items: map[id.ID]*MonthlyReport{}}
}

func (r *memReports) GetByID(_ context.Context, reportID id.ID) (*MonthlyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.items[reportID]
	if !ok {
		return nil, apperror.NewNotFound("report", reportID)
	}
	cp := *rep
	return &cp, nil
}

func (r *memReports) GetByPeriod(_ context.Context, period string) (*MonthlyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.items {
		if rep.Period == period {
			cp := *rep
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memReports) Upsert(_ context.Context, rep *MonthlyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rep
	r.items[rep.ID] = &cp
	return nil
}

func (r *memReports) Update(_ context.Context, rep *MonthlyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[rep.ID]; !ok {
		return apperror.NewNotFound("report", rep.ID)
	}
	cp := *rep
	r.items[rep.ID] = &cp
	return nil
}

func (r *memReports) List(_ context.Context, filter ReportFilter) (ListResult[*MonthlyReport], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*MonthlyReport
	for _, rep := range r.items {
		if filter.Status != nil && rep.Status != *filter.Status {
			continue
		}
		cp := *rep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return ListResult[*MonthlyReport]{Items: out, TotalCount: int64(len(out))}, nil
}

// memSettings holds one tenant's settings.
type memSettings struct {
	settings Settings
}

func newMemSettings(s Settings) *memSettings {
	return &memSettings{settings: s}
}

func (r *memSettings) Get(_ context.Context) (Settings, error) {
	return r.settings, nil
}

func (r *memSettings) Save(_ context.Context, s Settings) error {
	r.settings = s
	return nil
}

// memRates is an in-memory RateRepository.
type memRates struct {
	rates []Rate
}

func (r *memRates) FindApplicable(_ context.Context, category BreweryCategory, onDate time.Time) ([]Rate, error) {
	var out []Rate
	for _, rate := range r.rates {
		if rate.Category == category && rate.AppliesOn(onDate) {
			out = append(out, rate)
		}
	}
	return out, nil
}

func (r *memRates) Create(_ context.Context, rate *Rate) error {
	r.rates = append(r.rates, *rate)
	return nil
}

func (r *memRates) Deactivate(_ context.Context, rateID id.ID) error {
	for i := range r.rates {
		if r.rates[i].ID == rateID {
			r.rates[i].IsActive = false
		}
	}
	return nil
}

func (r *memRates) List(_ context.Context, category *BreweryCategory) ([]Rate, error) {
	var out []Rate
	for _, rate := range r.rates {
		if category == nil || rate.Category == *category {
			out = append(out, rate)
		}
	}
	return out, nil
}

// fakeStock implements the stockdoc read and write interfaces in memory.
type fakeStock struct {
	mu               sync.Mutex
	issues           map[id.ID]*stockdoc.StockIssue
	exciseWarehouses map[id.ID]bool
	trails           map[id.ID][]stockdoc.BatchConsumption
	batches          map[id.ID]*stockdoc.Batch

	statusCalls [][]id.ID
	lastStatus  stockdoc.BatchExciseStatus
}

func newFakeStock() *fakeStock {
	return &fakeStock{
		issues:           map[id.ID]*stockdoc.StockIssue{},
		exciseWarehouses: map[id.ID]bool{},
		trails:           map[id.ID][]stockdoc.BatchConsumption{},
		batches:          map[id.ID]*stockdoc.Batch{},
	}
}

func (s *fakeStock) GetIssue(_ context.Context, issueID id.ID) (*stockdoc.StockIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[issueID]
	if !ok {
		return nil, apperror.NewNotFound("stock issue", issueID)
	}
	return issue, nil
}

func (s *fakeStock) IsExciseWarehouse(_ context.Context, warehouseID id.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exciseWarehouses[warehouseID], nil
}

func (s *fakeStock) ConsumptionTrail(_ context.Context, issueID id.ID) ([]stockdoc.BatchConsumption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trails[issueID], nil
}

func (s *fakeStock) ListConfirmedWithoutMovements(_ context.Context, limit int) ([]id.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []id.ID
	for issueID, issue := range s.issues {
		if issue.Status == stockdoc.IssueConfirmed {
			out = append(out, issueID)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStock) GetBatch(_ context.Context, batchID id.ID) (*stockdoc.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	return batch, nil
}

func (s *fakeStock) AddExciseRelevantHl(_ context.Context, batchID id.ID, delta types.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID)
	}
	batch.ExciseRelevantHl = batch.ExciseRelevantHl.Add(delta)
	return nil
}

func (s *fakeStock) SetExciseStatus(_ context.Context, batchIDs []id.ID, status stockdoc.BatchExciseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, batchID := range batchIDs {
		if batch, ok := s.batches[batchID]; ok {
			batch.ExciseStatus = status
		}
	}
	s.statusCalls = append(s.statusCalls, batchIDs)
	s.lastStatus = status
	return nil
}

func decp(s string) *types.Decimal {
	d := types.MustDecimal(s)
	return &d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func enabledSettings() Settings {
	s := DefaultSettings(testTenant)
	s.Enabled = true
	s.Category = CategoryB
	return s
}

func standardRate() Rate {
	return Rate{
		ID:             id.New(),
		Category:       CategoryB,
		RatePerPlatoHl: types.MustDecimal("0.80"),
		ValidFrom:      date(2020, time.January, 1),
		IsActive:       true,
	}
}
