package services

import (
	"context"
	"time"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/storage"
)

// QuotaCounter derives a tenant's monthly query usage from the query log
// and compares it against the plan cap. Usage is an aggregate over
// append-only facts, not a stored counter: no drift, and flagging entries
// as ignored retroactively corrects the count.
//
// Because the count and the admission decision are separate reads, a burst
// of concurrent requests landing exactly at the cap boundary can
// over-admit by a small bounded amount. That is an accepted trade-off:
// slight overage is reconciled at invoice time, and serializing every
// tenant's traffic through a global lock to prevent it would be far worse.
type QuotaCounter struct {
	store storage.Store
	plans *PlanRegistry
	cfg   *config.Config
	now   func() time.Time
}

// NewQuotaCounter creates a new monthly quota counter
func NewQuotaCounter(store storage.Store, plans *PlanRegistry, cfg *config.Config) *QuotaCounter {
	return &QuotaCounter{
		store: store,
		plans: plans,
		cfg:   cfg,
		now:   time.Now,
	}
}

// CurrentUsage counts the tenant's non-ignored answered queries since the
// start of the current calendar month. Billing cycles are calendar-month
// aligned; this is not a rolling 30-day window.
func (q *QuotaCounter) CurrentUsage(ctx context.Context, tenantID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.StoreTimeout)
	defer cancel()

	var usage int64
	err := withRetry(ctx, func(ctx context.Context) error {
		var countErr error
		usage, countErr = q.store.CountQueriesSince(ctx, tenantID, StartOfMonth(q.now()))
		return countErr
	})
	return usage, err
}

// CheckAndReserve admits or denies one more query for the tenant. Returns
// nil when allowed, ErrQuotaExceeded when the monthly cap is reached, and
// passes through registry errors (tenant missing, plan configuration
// fault). An unlimited plan short-circuits without touching the log.
func (q *QuotaCounter) CheckAndReserve(ctx context.Context, tenantID string) error {
	limCtx, cancel := context.WithTimeout(ctx, q.cfg.StoreTimeout)
	defer cancel()

	var limits *EffectiveLimits
	err := withRetry(limCtx, func(ctx context.Context) error {
		var lookupErr error
		limits, lookupErr = q.plans.GetEffectiveLimits(ctx, tenantID)
		return lookupErr
	})
	if err != nil {
		return err
	}
	if limits.UnlimitedQueries() {
		return nil
	}

	usage, err := q.CurrentUsage(ctx, tenantID)
	if err != nil {
		return err
	}
	if usage >= *limits.MaxQueriesPerMonth {
		return ErrQuotaExceeded
	}
	return nil
}

// StartOfMonth returns 00:00:00 on day 1 of t's calendar month, in t's
// location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
