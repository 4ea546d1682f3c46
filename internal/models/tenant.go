package models

import "time"

// Tenant lifecycle states (owned by the billing subsystem)
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusTrial     = "trial"
)

// Tenant is a billing customer. Rows are owned by the billing subsystem;
// this service only reads them.
type Tenant struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Name      string `json:"name"`
	PlanCode  string `gorm:"not null;index" json:"plan_code"`
	Status    string `gorm:"not null;default:'active'" json:"status"` // "active", "suspended", "trial"
	CreatedAt time.Time
	UpdatedAt time.Time
}
