package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qaplus/widget-backend/internal/models"
)

// Lookup and session-state errors. Callers classify with errors.Is; any
// other error from a Store is treated as transient.
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrChatbotNotFound  = errors.New("chatbot not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionExhausted = errors.New("session exhausted")
)

var (
	storeInstance Store
	storeOnce     sync.Once
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for storage operations. Every method takes a
// context so callers can bound lookup time; implementations must respect
// cancellation.
type Store interface {
	// Tenant operations (read-only; rows owned by billing)
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)

	// Plan catalog operations (read-only after seeding)
	GetPlan(ctx context.Context, code string) (*models.Plan, error)
	SeedPlans(ctx context.Context, plans []*models.Plan) error

	// Chatbot operations
	CreateChatbot(ctx context.Context, bot *models.Chatbot) error
	GetChatbot(ctx context.Context, id string) (*models.Chatbot, error)
	UpdateChatbot(ctx context.Context, bot *models.Chatbot) error

	// Session operations
	CreateSession(ctx context.Context, session *models.WidgetSession) error
	GetSessionByToken(ctx context.Context, token string) (*models.WidgetSession, error)
	// ConsumeSessionQuery atomically checks expiry and remaining quota and
	// increments the counter in one conditional update. It never performs
	// the check and the increment as separate writes. On failure it
	// reports ErrSessionNotFound (unknown token, or token bound to a
	// different chatbot), ErrSessionExpired, or ErrSessionExhausted.
	ConsumeSessionQuery(ctx context.Context, token, chatbotID string, now time.Time) (*models.WidgetSession, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)

	// Query log operations (append-only)
	AppendQueryLog(ctx context.Context, entry *models.QueryLogEntry) error
	// CountQueriesSince counts non-ignored entries for the tenant created
	// at or after the given instant.
	CountQueriesSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
}
