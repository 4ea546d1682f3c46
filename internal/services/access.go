package services

import (
	"context"
	"time"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/storage"
)

// Admission is the result of a successful access decision: the chatbot the
// query targets and what the session has left.
type Admission struct {
	Chatbot          *models.Chatbot
	SessionRemaining int
}

// AccessCoordinator runs the guard chain for every inbound public query,
// in a fixed order: whitelist first (cheapest and most security
// sensitive), then the session cap, then the tenant's monthly cap. The
// tenant cap always overrides session-level permission. Denials are
// terminal for the request; no retry happens here beyond the single
// transient-failure retry inside each guard.
type AccessCoordinator struct {
	store    storage.Store
	guard    *WhitelistGuard
	sessions *SessionService
	quota    *QuotaCounter
	cfg      *config.Config
}

// NewAccessCoordinator creates a new public access coordinator
func NewAccessCoordinator(store storage.Store, guard *WhitelistGuard, sessions *SessionService, quota *QuotaCounter, cfg *config.Config) *AccessCoordinator {
	return &AccessCoordinator{
		store:    store,
		guard:    guard,
		sessions: sessions,
		quota:    quota,
		cfg:      cfg,
	}
}

// AuthorizeQuery decides whether one public chat query may proceed. On
// allow it returns the admission; on deny it returns one of the denial
// errors for the handler to map. The query log is NOT written here —
// quota is charged for delivered answers, so the caller appends the log
// entry via RecordAnswered only after the answering pipeline succeeds.
//
// ignored marks test/internal traffic. Whether such traffic still spends
// session quota is the SessionCountIgnored policy: when off, the session
// is validated but its counter is not incremented.
func (a *AccessCoordinator) AuthorizeQuery(ctx context.Context, chatbotID, origin, referer, token string, ignored bool) (*Admission, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	var bot *models.Chatbot
	err := withRetry(lookupCtx, func(ctx context.Context) error {
		var lookupErr error
		bot, lookupErr = a.store.GetChatbot(ctx, chatbotID)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}

	// 1. Domain whitelist: deny fast, no further work.
	if err := a.guard.Check(bot, origin, referer); err != nil {
		return nil, err
	}

	// Suspended tenants lose widget access regardless of quota state.
	tenant, err := a.tenant(ctx, bot.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status == models.TenantStatusSuspended {
		return nil, ErrTenantSuspended
	}

	// 2. Session cap: atomic consume.
	var remaining int
	if ignored && !a.cfg.SessionCountIgnored {
		session, err := a.sessions.Validate(ctx, token)
		if err != nil {
			return nil, err
		}
		if session.ChatbotID != chatbotID {
			return nil, storage.ErrSessionNotFound
		}
		remaining = session.Remaining()
	} else {
		remaining, err = a.sessions.Consume(ctx, token, chatbotID)
		if err != nil {
			return nil, err
		}
	}

	// 3. Tenant monthly cap: overrides remaining session quota.
	if err := a.quota.CheckAndReserve(ctx, bot.TenantID); err != nil {
		return nil, err
	}

	return &Admission{Chatbot: bot, SessionRemaining: remaining}, nil
}

// RecordAnswered appends one query-log fact after the answering pipeline
// delivered a response. Answering failures never reach this point, so
// timeouts and upstream errors consume no tenant quota.
func (a *AccessCoordinator) RecordAnswered(ctx context.Context, bot *models.Chatbot, ignored bool) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	entry := &models.QueryLogEntry{
		TenantID:  bot.TenantID,
		ChatbotID: bot.ID,
		Ignored:   ignored,
		CreatedAt: time.Now(),
	}
	return withRetry(ctx, func(ctx context.Context) error {
		return a.store.AppendQueryLog(ctx, entry)
	})
}

func (a *AccessCoordinator) tenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	var tenant *models.Tenant
	err := withRetry(ctx, func(ctx context.Context) error {
		var lookupErr error
		tenant, lookupErr = a.store.GetTenant(ctx, tenantID)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
