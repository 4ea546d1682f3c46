package services

import (
	"context"
	"time"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/storage"
)

// UsageReport is a read-only snapshot of a tenant's position against its
// monthly cap, for operators and the dashboard. Nil limit/remaining means
// the plan is unlimited.
type UsageReport struct {
	TenantID     string    `json:"tenant_id"`
	PlanCode     string    `json:"plan_code"`
	TenantStatus string    `json:"tenant_status"`
	PeriodStart  time.Time `json:"period_start"`
	QueriesUsed  int64     `json:"queries_used"`
	MonthlyLimit *int64    `json:"monthly_limit"`
	Remaining    *int64    `json:"remaining"`
}

// UsageReporter is the explicit operational-visibility surface over quota
// state. It reads the same derived aggregate the admission path reads; it
// never duplicates admission logic and never writes anything.
type UsageReporter struct {
	store storage.Store
	plans *PlanRegistry
	quota *QuotaCounter
	cfg   *config.Config
}

// NewUsageReporter creates a new usage reporter
func NewUsageReporter(store storage.Store, plans *PlanRegistry, quota *QuotaCounter, cfg *config.Config) *UsageReporter {
	return &UsageReporter{
		store: store,
		plans: plans,
		quota: quota,
		cfg:   cfg,
	}
}

// TenantUsage builds the usage report for one tenant.
func (r *UsageReporter) TenantUsage(ctx context.Context, tenantID string) (*UsageReport, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	tenant, err := r.store.GetTenant(lookupCtx, tenantID)
	if err != nil {
		return nil, err
	}

	limits, err := r.plans.GetEffectiveLimits(lookupCtx, tenantID)
	if err != nil {
		return nil, err
	}

	usage, err := r.quota.CurrentUsage(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &UsageReport{
		TenantID:     tenant.ID,
		PlanCode:     tenant.PlanCode,
		TenantStatus: tenant.Status,
		PeriodStart:  StartOfMonth(time.Now()),
		QueriesUsed:  usage,
		MonthlyLimit: limits.MaxQueriesPerMonth,
	}
	if limits.MaxQueriesPerMonth != nil {
		remaining := *limits.MaxQueriesPerMonth - usage
		if remaining < 0 {
			remaining = 0
		}
		report.Remaining = &remaining
	}
	return report, nil
}
