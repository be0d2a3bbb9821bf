package excise

import (
	"context"
	"time"

	"brauer/internal/core/id"
	"brauer/internal/domain/stockdoc"
)

// Check codes returned by pre-validation. These are advisory: confirmation is
// never blocked, incomplete movements are derived and flagged for follow-up.
const (
	CheckExciseDisabled    = "excise_disabled"
	CheckNoBreweryCategory = "no_brewery_category"
	CheckNoExciseRate      = "no_excise_rate"
	CheckNoPlato           = "no_plato"
)

// CheckError is one failed precondition.
type CheckError struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// CheckResult is the outcome of pre-validation. When Applicable is false the
// document produces no movements and Errors is always empty.
type CheckResult struct {
	Applicable bool         `json:"applicable"`
	Errors     []CheckError `json:"errors"`
}

func (r CheckResult) ok() CheckResult {
	if r.Errors == nil {
		r.Errors = []CheckError{}
	}
	return r
}

// Checker reports, before confirmation, whether deriving excise movements
// from a document would produce complete records. It shares the applicability
// rule and the resolvers with the deriver so the answers always agree.
type Checker struct {
	settings SettingsRepository
	issues   stockdoc.IssueReader
	batches  stockdoc.BatchReader
	rates    *RateResolver
	plato    *PlatoResolver
}

// NewChecker creates a pre-validation checker.
func NewChecker(
	settings SettingsRepository,
	issues stockdoc.IssueReader,
	batches stockdoc.BatchReader,
	rates *RateResolver,
) *Checker {
	return &Checker{
		settings: settings,
		issues:   issues,
		batches:  batches,
		rates:    rates,
		plato:    NewPlatoResolver(batches),
	}
}

// ForStockIssue pre-validates derivation for a stock document.
func (c *Checker) ForStockIssue(ctx context.Context, issueID id.ID) (CheckResult, error) {
	issue, err := c.issues.GetIssue(ctx, issueID)
	if err != nil {
		return CheckResult{}, err
	}

	settings, err := c.settings.Get(ctx)
	if err != nil {
		return CheckResult{}, err
	}

	exciseWarehouse, err := c.issues.IsExciseWarehouse(ctx, issue.WarehouseID)
	if err != nil {
		return CheckResult{}, err
	}

	if !applicable(settings, issue, exciseWarehouse) {
		return CheckResult{Applicable: false}.ok(), nil
	}

	result := CheckResult{Applicable: true}
	rateErrs, err := c.checkRate(ctx, settings, issue.Date)
	if err != nil {
		return CheckResult{}, err
	}
	result.Errors = append(result.Errors, rateErrs...)

	errs, err := c.checkPlato(ctx, settings, issue)
	if err != nil {
		return CheckResult{}, err
	}
	result.Errors = append(result.Errors, errs...)

	return result.ok(), nil
}

// ForBatch pre-validates the packaging-loss derivation for a batch. The full
// check set runs even though a loss itself is never taxed, so the answer also
// covers the taxable movements the batch will generate later.
func (c *Checker) ForBatch(ctx context.Context, batchID id.ID) (CheckResult, error) {
	settings, err := c.settings.Get(ctx)
	if err != nil {
		return CheckResult{}, err
	}

	if !settings.Enabled {
		return CheckResult{Applicable: false}.ok(), nil
	}

	result := CheckResult{Applicable: true}
	rateErrs, err := c.checkRate(ctx, settings, time.Now().UTC())
	if err != nil {
		return CheckResult{}, err
	}
	result.Errors = append(result.Errors, rateErrs...)

	batch, err := c.batches.GetBatch(ctx, batchID)
	if err != nil {
		return CheckResult{}, err
	}
	if !resolvePlato(batch, settings).Resolved() {
		result.Errors = append(result.Errors, CheckError{
			Code:   CheckNoPlato,
			Detail: "no Plato value resolvable for batch " + batchID.String(),
		})
	}

	return result.ok(), nil
}

// checkRate reports missing-configuration gaps. A repository failure is not a
// gap and propagates as an error.
func (c *Checker) checkRate(ctx context.Context, settings Settings, onDate time.Time) ([]CheckError, error) {
	if !settings.Category.Valid() {
		return []CheckError{{
			Code:   CheckNoBreweryCategory,
			Detail: "brewery category is not configured",
		}}, nil
	}

	rate, err := c.rates.CurrentRate(ctx, settings.Category, onDate)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return []CheckError{{
			Code:   CheckNoExciseRate,
			Detail: "no active rate for category " + string(settings.Category),
		}}, nil
	}
	return nil, nil
}

func (c *Checker) checkPlato(ctx context.Context, settings Settings, issue *stockdoc.StockIssue) ([]CheckError, error) {
	// A line-level Plato override satisfies the check without a batch lookup.
	for _, line := range exciseLines(issue) {
		if line.Plato != nil {
			return nil, nil
		}
	}

	batchIDs := c.platoBatchCandidates(ctx, issue)
	for _, batchID := range batchIDs {
		result, err := c.plato.Resolve(ctx, batchID, settings)
		if err != nil {
			return nil, err
		}
		if result.Resolved() {
			return nil, nil
		}
	}

	return []CheckError{{
		Code:   CheckNoPlato,
		Detail: "no Plato value resolvable for document " + issue.ID.String(),
	}}, nil
}

// platoBatchCandidates lists the batches Plato could come from, in the order
// the deriver would consult them.
func (c *Checker) platoBatchCandidates(ctx context.Context, issue *stockdoc.StockIssue) []id.ID {
	var ids []id.ID
	if issue.Kind == stockdoc.KindIssue {
		trail, err := c.issues.ConsumptionTrail(ctx, issue.ID)
		if err == nil {
			for _, entry := range trail {
				ids = append(ids, entry.BatchID)
			}
		}
	}
	if len(ids) == 0 && issue.BatchID != nil {
		ids = append(ids, *issue.BatchID)
	}
	for _, line := range exciseLines(issue) {
		if line.BatchID != nil {
			ids = append(ids, *line.BatchID)
		}
	}
	return ids
}
