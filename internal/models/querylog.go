package models

import "time"

// QueryLogEntry is an append-only fact: one successfully answered widget
// query. Monthly tenant usage is derived by counting these rows, never
// kept as a stored counter, so retroactively flagging traffic as ignored
// corrects the bill without reconciliation. Entries are never updated or
// deleted by this service; Ignored is set at insert time for test or
// internal traffic, or flipped later by an operator directly in the DB.
type QueryLogEntry struct {
	ID        uint      `gorm:"primarykey"`
	TenantID  string    `gorm:"not null;index:idx_query_log_tenant_created"`
	ChatbotID string    `gorm:"not null;index"`
	Ignored   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index:idx_query_log_tenant_created"`
}
