package excise

import (
	"context"
	"time"

	"brauer/internal/core/id"
)

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// MovementFilter filters ledger queries. All repositories are tenant-scoped
// through context; the filter never crosses tenants.
type MovementFilter struct {
	Period       *string
	Status       *MovementStatus
	Type         *MovementType
	BatchID      *id.ID
	StockIssueID *id.ID
	WarehouseID  *id.ID
	DateFrom     *time.Time
	DateTo       *time.Time

	OrderBy string
	Limit   int
	Offset  int
}

// DefaultMovementFilter returns sensible defaults.
func DefaultMovementFilter() MovementFilter {
	return MovementFilter{
		Limit:   50,
		OrderBy: "date DESC",
	}
}

// MovementRepository persists excise movements.
type MovementRepository interface {
	Create(ctx context.Context, m *Movement) error
	// CreateMany bulk-inserts derived movements; one stock issue can split
	// into several by source batch.
	CreateMany(ctx context.Context, movements []*Movement) error
	GetByID(ctx context.Context, movementID id.ID) (*Movement, error)
	// Update writes the full row with optimistic locking on version.
	Update(ctx context.Context, m *Movement) error
	Delete(ctx context.Context, movementID id.ID) error

	List(ctx context.Context, filter MovementFilter) (ListResult[*Movement], error)
	ListByStockIssue(ctx context.Context, stockIssueID id.ID) ([]Movement, error)
	ListByPeriod(ctx context.Context, period string, status MovementStatus) ([]Movement, error)

	// UpdateStatusByPeriod bulk-moves every movement of the period from one
	// status to another. The condition on the current status makes repeated
	// calls harmless (zero rows updated).
	UpdateStatusByPeriod(ctx context.Context, period string, from, to MovementStatus) (int64, error)
}

// ReportFilter filters report listings.
type ReportFilter struct {
	Status     *ReportStatus
	PeriodFrom *string
	PeriodTo   *string
	Limit      int
	Offset     int
}

// ReportRepository persists monthly reports.
type ReportRepository interface {
	GetByID(ctx context.Context, reportID id.ID) (*MonthlyReport, error)
	// GetByPeriod returns nil (no error) when no report exists for the period.
	GetByPeriod(ctx context.Context, period string) (*MonthlyReport, error)
	// Upsert inserts the row or replaces the existing draft for the same period.
	Upsert(ctx context.Context, r *MonthlyReport) error
	// Update writes the full row with optimistic locking on version.
	Update(ctx context.Context, r *MonthlyReport) error
	List(ctx context.Context, filter ReportFilter) (ListResult[*MonthlyReport], error)
}

// SettingsRepository persists per-tenant excise settings.
type SettingsRepository interface {
	// Get returns the tenant's settings, or DefaultSettings when none stored.
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
