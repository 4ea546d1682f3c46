package storage

import (
	"context"
	"sync"
	"time"

	"github.com/qaplus/widget-backend/internal/models"
)

// MemoryStore holds all data in memory, for tests and local runs with
// USE_MEMORY_STORE=true. Each entity family has its own mutex; session
// consume runs entirely inside one critical section so the quota check and
// the increment cannot interleave with another request.
type MemoryStore struct {
	tenants  map[string]*models.Tenant
	plans    map[string]*models.Plan
	chatbots map[string]*models.Chatbot
	sessions map[string]*models.WidgetSession // keyed by token
	queryLog []*models.QueryLogEntry

	tenantMu  sync.RWMutex
	planMu    sync.RWMutex
	chatbotMu sync.RWMutex
	sessionMu sync.RWMutex
	logMu     sync.RWMutex

	sessionCounter uint
	logCounter     uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  make(map[string]*models.Tenant),
		plans:    make(map[string]*models.Plan),
		chatbots: make(map[string]*models.Chatbot),
		sessions: make(map[string]*models.WidgetSession),
	}
}

// Tenant operations

func (m *MemoryStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.tenantMu.RLock()
	defer m.tenantMu.RUnlock()

	tenant, exists := m.tenants[id]
	if !exists {
		return nil, ErrTenantNotFound
	}
	copied := *tenant
	return &copied, nil
}

// PutTenant inserts or replaces a tenant row. Only used by seeding and tests;
// tenants are owned by the billing subsystem in production.
func (m *MemoryStore) PutTenant(tenant *models.Tenant) {
	m.tenantMu.Lock()
	defer m.tenantMu.Unlock()
	copied := *tenant
	m.tenants[tenant.ID] = &copied
}

// Plan operations

func (m *MemoryStore) GetPlan(ctx context.Context, code string) (*models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.planMu.RLock()
	defer m.planMu.RUnlock()

	plan, exists := m.plans[code]
	if !exists {
		return nil, ErrPlanNotFound
	}
	copied := *plan
	return &copied, nil
}

func (m *MemoryStore) SeedPlans(ctx context.Context, plans []*models.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.planMu.Lock()
	defer m.planMu.Unlock()

	for _, plan := range plans {
		if _, exists := m.plans[plan.Code]; exists {
			continue // catalog rows are immutable
		}
		copied := *plan
		m.plans[plan.Code] = &copied
	}
	return nil
}

// Chatbot operations

func (m *MemoryStore) GetChatbot(ctx context.Context, id string) (*models.Chatbot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.chatbotMu.RLock()
	defer m.chatbotMu.RUnlock()

	bot, exists := m.chatbots[id]
	if !exists {
		return nil, ErrChatbotNotFound
	}
	copied := *bot
	return &copied, nil
}

// PutChatbot inserts or replaces a chatbot row (seeding and tests).
func (m *MemoryStore) PutChatbot(bot *models.Chatbot) {
	m.chatbotMu.Lock()
	defer m.chatbotMu.Unlock()
	copied := *bot
	m.chatbots[bot.ID] = &copied
}

func (m *MemoryStore) CreateChatbot(ctx context.Context, bot *models.Chatbot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.chatbotMu.Lock()
	defer m.chatbotMu.Unlock()

	bot.CreatedAt = time.Now()
	bot.UpdatedAt = bot.CreatedAt
	copied := *bot
	m.chatbots[bot.ID] = &copied
	return nil
}

func (m *MemoryStore) UpdateChatbot(ctx context.Context, bot *models.Chatbot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.chatbotMu.Lock()
	defer m.chatbotMu.Unlock()

	if _, exists := m.chatbots[bot.ID]; !exists {
		return ErrChatbotNotFound
	}
	bot.UpdatedAt = time.Now()
	copied := *bot
	m.chatbots[bot.ID] = &copied
	return nil
}

// Session operations

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.WidgetSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	m.sessionCounter++
	session.ID = m.sessionCounter
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt

	copied := *session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *MemoryStore) GetSessionByToken(ctx context.Context, token string) (*models.WidgetSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	session, exists := m.sessions[token]
	if !exists {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) ConsumeSessionQuery(ctx context.Context, token, chatbotID string, now time.Time) (*models.WidgetSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[token]
	if !exists || session.ChatbotID != chatbotID {
		// A token bound to another chatbot is indistinguishable from an
		// unknown token on purpose.
		return nil, ErrSessionNotFound
	}
	if session.Expired(now) {
		return nil, ErrSessionExpired
	}
	if session.Exhausted() {
		return nil, ErrSessionExhausted
	}

	session.QueryCount++
	session.UpdatedAt = now
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	var deleted int64
	for token, session := range m.sessions {
		if session.ExpiresAt.Before(before) {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// Query log operations

func (m *MemoryStore) AppendQueryLog(ctx context.Context, entry *models.QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logMu.Lock()
	defer m.logMu.Unlock()

	m.logCounter++
	entry.ID = m.logCounter
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	copied := *entry
	m.queryLog = append(m.queryLog, &copied)
	return nil
}

func (m *MemoryStore) CountQueriesSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var count int64
	for _, entry := range m.queryLog {
		if entry.TenantID != tenantID || entry.Ignored {
			continue
		}
		if entry.CreatedAt.Before(since) {
			continue
		}
		count++
	}
	return count, nil
}
