package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/storage"
)

func newCoordinator(store storage.Store) *AccessCoordinator {
	conf := testConfig()
	plans := NewPlanRegistry(store)
	return NewAccessCoordinator(
		store,
		NewWhitelistGuard(store),
		NewSessionService(store, conf),
		NewQuotaCounter(store, plans, conf),
		conf,
	)
}

func TestAuthorizeQueryAllowed(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	issueTestSession(t, store, "tok", 3, time.Now().Add(time.Hour))
	coordinator := newCoordinator(store)

	admission, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "tok", false)
	require.NoError(t, err)
	require.Equal(t, "bot-1", admission.Chatbot.ID)
	require.Equal(t, 2, admission.SessionRemaining)
}

func TestAuthorizeQueryOriginDeniedBeforeSessionSpend(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	issueTestSession(t, store, "tok", 3, time.Now().Add(time.Hour))
	coordinator := newCoordinator(store)

	_, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://evil.com", "", "tok", false)
	require.ErrorIs(t, err, ErrDomainForbidden)

	// The whitelist denial happened before any session work.
	session, err := store.GetSessionByToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 0, session.QueryCount)
}

func TestAuthorizeQueryUnknownChatbot(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	coordinator := newCoordinator(store)

	_, err := coordinator.AuthorizeQuery(context.Background(), "ghost", "https://qaplus.com", "", "tok", false)
	require.ErrorIs(t, err, storage.ErrChatbotNotFound)
}

func TestAuthorizeQueryTenantCapOverridesSessionQuota(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	issueTestSession(t, store, "tok", 3, time.Now().Add(time.Hour))

	// The free tenant already burned its 1000 monthly queries.
	fillQueryLog(t, store, "t1", 1000, time.Now().Add(-time.Minute))
	coordinator := newCoordinator(store)

	_, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "tok", false)
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestAuthorizeQuerySessionErrors(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	issueTestSession(t, store, "stale", 3, time.Now().Add(-time.Minute))
	issueTestSession(t, store, "spent", 0, time.Now().Add(time.Hour))
	coordinator := newCoordinator(store)

	_, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "ghost", false)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)

	_, err = coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "stale", false)
	require.ErrorIs(t, err, storage.ErrSessionExpired)

	_, err = coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "spent", false)
	require.ErrorIs(t, err, storage.ErrSessionExhausted)
}

func TestAuthorizeQuerySuspendedTenant(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	store.PutTenant(&models.Tenant{
		ID:       "t1",
		PlanCode: models.PlanCodeFree,
		Status:   models.TenantStatusSuspended,
	})
	issueTestSession(t, store, "tok", 3, time.Now().Add(time.Hour))
	coordinator := newCoordinator(store)

	_, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "tok", false)
	require.ErrorIs(t, err, ErrTenantSuspended)
}

func TestAuthorizeQueryIgnoredTrafficSkipsSessionSpend(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	issueTestSession(t, store, "tok", 3, time.Now().Add(time.Hour))
	coordinator := newCoordinator(store)

	// SessionCountIgnored=false: internal traffic validates the session
	// but leaves the counter alone.
	admission, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "tok", true)
	require.NoError(t, err)
	require.Equal(t, 3, admission.SessionRemaining)

	session, err := store.GetSessionByToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 0, session.QueryCount)
}

func TestRecordAnswered(t *testing.T) {
	store := storage.NewMemoryStore()
	seedFixtures(t, store)
	coordinator := newCoordinator(store)

	bot, err := store.GetChatbot(context.Background(), "bot-1")
	require.NoError(t, err)

	require.NoError(t, coordinator.RecordAnswered(context.Background(), bot, false))
	require.NoError(t, coordinator.RecordAnswered(context.Background(), bot, true))

	// Only the non-ignored entry counts toward the tenant's month.
	count, err := store.CountQueriesSince(context.Background(), "t1", StartOfMonth(time.Now()))
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

// flakyStore fails the first GetChatbot call with a transient error, then
// delegates to the wrapped store.
type flakyStore struct {
	storage.Store
	failedOnce bool
}

func (f *flakyStore) GetChatbot(ctx context.Context, id string) (*models.Chatbot, error) {
	if !f.failedOnce {
		f.failedOnce = true
		return nil, errors.New("connection reset by peer")
	}
	return f.Store.GetChatbot(ctx, id)
}

func TestAuthorizeQueryRetriesTransientFailureOnce(t *testing.T) {
	memory := storage.NewMemoryStore()
	seedFixtures(t, memory)
	issueTestSession(t, memory, "tok", 3, time.Now().Add(time.Hour))

	store := &flakyStore{Store: memory}
	coordinator := newCoordinator(store)

	admission, err := coordinator.AuthorizeQuery(context.Background(), "bot-1", "https://qaplus.com", "", "tok", false)
	require.NoError(t, err)
	require.Equal(t, 2, admission.SessionRemaining)
	require.True(t, store.failedOnce)
}
