package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/storage"
)

// EffectiveLimits are the quota ceilings a tenant's current plan grants.
// A nil cap means unlimited and short-circuits every downstream comparison
// to "allowed".
type EffectiveLimits struct {
	MaxChatbots        *int
	MaxFaqsPerBot      *int
	MaxQueriesPerMonth *int64
}

// UnlimitedQueries reports whether the plan has no monthly query cap.
func (l *EffectiveLimits) UnlimitedQueries() bool {
	return l.MaxQueriesPerMonth == nil
}

// PlanRegistry resolves a tenant's current plan into its effective quota
// limits. Tenant and plan rows are owned by billing; this is a read-only
// lookup over explicit identifiers, never a walk of nested object graphs.
type PlanRegistry struct {
	store storage.Store
}

// NewPlanRegistry creates a new plan registry
func NewPlanRegistry(store storage.Store) *PlanRegistry {
	return &PlanRegistry{store: store}
}

// GetEffectiveLimits looks up the tenant, resolves its plan code against
// the catalog, and returns the plan's limits. A tenant pointing at a plan
// code that is not in the catalog is a data-integrity fault: it is logged
// loudly and surfaced as ErrPlanConfiguration, never silently defaulted.
func (r *PlanRegistry) GetEffectiveLimits(ctx context.Context, tenantID string) (*EffectiveLimits, error) {
	tenant, err := r.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	plan, err := r.store.GetPlan(ctx, tenant.PlanCode)
	if errors.Is(err, storage.ErrPlanNotFound) {
		log.Printf("❌ FATAL INCONSISTENCY: tenant %s references unknown plan %q", tenant.ID, tenant.PlanCode)
		return nil, fmt.Errorf("%w: tenant %s", ErrPlanConfiguration, tenant.ID)
	}
	if err != nil {
		return nil, err
	}

	return &EffectiveLimits{
		MaxChatbots:        plan.MaxChatbots,
		MaxFaqsPerBot:      plan.MaxFaqsPerBot,
		MaxQueriesPerMonth: plan.MaxQueriesPerMonth,
	}, nil
}

// GetTenant returns the tenant row for status checks and reporting.
func (r *PlanRegistry) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return r.store.GetTenant(ctx, tenantID)
}
