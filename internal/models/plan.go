package models

import "time"

// Plan codes shipped in the built-in catalog
const (
	PlanCodeFree       = "free"
	PlanCodeStarter    = "starter"
	PlanCodePro        = "pro"
	PlanCodeEnterprise = "enterprise"
)

// Plan is an immutable catalog row describing a subscription tier.
// A nil cap means unlimited.
type Plan struct {
	Code               string `gorm:"primaryKey" json:"code"`
	Name               string `gorm:"not null" json:"name"`
	MaxChatbots        *int   `json:"max_chatbots"`
	MaxFaqsPerBot      *int   `json:"max_faqs_per_bot"`
	MaxQueriesPerMonth *int64 `json:"max_queries_per_month"`
	Features           string `json:"features"` // JSON string of feature flags
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Unlimited reports whether the plan has no monthly query cap.
func (p *Plan) Unlimited() bool {
	return p.MaxQueriesPerMonth == nil
}

// DefaultPlans returns the built-in plan catalog, seeded on startup when
// the catalog table is missing rows for these codes.
func DefaultPlans() []*Plan {
	intPtr := func(n int) *int { return &n }
	int64Ptr := func(n int64) *int64 { return &n }

	return []*Plan{
		{
			Code:               PlanCodeFree,
			Name:               "Free",
			MaxChatbots:        intPtr(1),
			MaxFaqsPerBot:      intPtr(25),
			MaxQueriesPerMonth: int64Ptr(1000),
		},
		{
			Code:               PlanCodeStarter,
			Name:               "Starter",
			MaxChatbots:        intPtr(3),
			MaxFaqsPerBot:      intPtr(200),
			MaxQueriesPerMonth: int64Ptr(10000),
		},
		{
			Code:               PlanCodePro,
			Name:               "Pro",
			MaxChatbots:        intPtr(10),
			MaxFaqsPerBot:      intPtr(1000),
			MaxQueriesPerMonth: int64Ptr(50000),
		},
		{
			Code: PlanCodeEnterprise,
			Name: "Enterprise",
			// All caps nil: unlimited
		},
	}
}
