package models

import (
	"time"

	"gorm.io/gorm"
)

// WidgetSession is the anonymous, chatbot-scoped credential issued to an
// embedding page's visitor. A session never outlives its absolute expiry
// and never serves more than QueryLimit queries; neither state transitions
// back to usable. QueryLimit is a snapshot of the platform per-session cap
// at issuance time, independent of the tenant's monthly cap.
type WidgetSession struct {
	gorm.Model
	Token      string    `json:"token" gorm:"uniqueIndex;not null"`
	ChatbotID  string    `json:"chatbot_id" gorm:"not null;index"`
	QueryCount int       `json:"query_count" gorm:"not null;default:0"`
	QueryLimit int       `json:"query_limit" gorm:"not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
}

// Expired reports whether the session is past its absolute expiry.
func (s *WidgetSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Exhausted reports whether the session has used up its query allowance.
func (s *WidgetSession) Exhausted() bool {
	return s.QueryCount >= s.QueryLimit
}

// Remaining returns how many queries the session may still issue.
func (s *WidgetSession) Remaining() int {
	if s.Exhausted() {
		return 0
	}
	return s.QueryLimit - s.QueryCount
}
