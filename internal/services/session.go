package services

import (
	"context"
	"fmt"
	"time"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/storage"
	"github.com/qaplus/widget-backend/internal/utils"
)

// SessionService issues, validates, and consumes anonymous widget
// sessions. A session moves Issued → Active → {Expired | Exhausted}; the
// terminal states never transition back, and an expired session is never
// renewed — the widget must ask for a fresh one through Issue.
type SessionService struct {
	store storage.Store
	cfg   *config.Config
	now   func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(store storage.Store, cfg *config.Config) *SessionService {
	return &SessionService{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Issue creates a fresh session bound to one chatbot, with a random
// 256-bit token, the platform per-session query cap snapshotted into the
// row, and an absolute expiry a fixed TTL from now. Each call creates an
// independent row, so issuance has no concurrency hazard.
func (s *SessionService) Issue(ctx context.Context, chatbotID string) (*models.WidgetSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// The chatbot must exist before a credential scoped to it is minted.
	if _, err := s.store.GetChatbot(ctx, chatbotID); err != nil {
		return nil, err
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.WidgetSession{
		Token:      token,
		ChatbotID:  chatbotID,
		QueryCount: 0,
		QueryLimit: s.cfg.SessionMaxQueries,
		ExpiresAt:  s.now().Add(s.cfg.SessionTTL),
	}

	err = withRetry(ctx, func(ctx context.Context) error {
		return s.store.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return session, nil
}

// Validate resolves a token into its session or one of the storage
// sentinels: ErrSessionNotFound, ErrSessionExpired, ErrSessionExhausted.
// Read-only; the counter is untouched.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.WidgetSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var session *models.WidgetSession
	err := withRetry(ctx, func(ctx context.Context) error {
		var lookupErr error
		session, lookupErr = s.store.GetSessionByToken(ctx, token)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		return nil, storage.ErrSessionExpired
	}
	if session.Exhausted() {
		return nil, storage.ErrSessionExhausted
	}
	return session, nil
}

// Consume atomically spends one query from the session identified by
// token, scoped to the given chatbot. The expiry/limit check and the
// increment are one conditional update in the store, so concurrent
// requests on the same token cannot both pass the check before either
// increments. Returns the remaining allowance on success.
func (s *SessionService) Consume(ctx context.Context, token, chatbotID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var session *models.WidgetSession
	err := withRetry(ctx, func(ctx context.Context) error {
		var consumeErr error
		session, consumeErr = s.store.ConsumeSessionQuery(ctx, token, chatbotID, s.now())
		return consumeErr
	})
	if err != nil {
		return 0, err
	}
	return session.Remaining(), nil
}
