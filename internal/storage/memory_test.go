package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qaplus/widget-backend/internal/models"
)

func newTestSession(store *MemoryStore, t *testing.T, token string, limit int, expiresAt time.Time) {
	t.Helper()
	err := store.CreateSession(context.Background(), &models.WidgetSession{
		Token:      token,
		ChatbotID:  "bot-1",
		QueryCount: 0,
		QueryLimit: limit,
		ExpiresAt:  expiresAt,
	})
	require.NoError(t, err)
}

func TestConsumeSessionQueryConcurrent(t *testing.T) {
	store := NewMemoryStore()
	const limit = 10
	const workers = 40
	newTestSession(store, t, "tok", limit, time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeSessionQuery(context.Background(), "tok", "bot-1", time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, exhausted int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case err == ErrSessionExhausted:
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Exactly limit successes, no double-count, no under-count.
	require.Equal(t, limit, ok)
	require.Equal(t, workers-limit, exhausted)

	session, err := store.GetSessionByToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, limit, session.QueryCount)
}

func TestConsumeSessionQueryClassification(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	newTestSession(store, t, "live", 1, now.Add(time.Hour))
	newTestSession(store, t, "stale", 5, now.Add(-time.Second))

	_, err := store.ConsumeSessionQuery(context.Background(), "unknown", "bot-1", now)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Token bound to another chatbot reads as not found, not forbidden.
	_, err = store.ConsumeSessionQuery(context.Background(), "live", "bot-2", now)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.ConsumeSessionQuery(context.Background(), "stale", "bot-1", now)
	require.ErrorIs(t, err, ErrSessionExpired)

	updated, err := store.ConsumeSessionQuery(context.Background(), "live", "bot-1", now)
	require.NoError(t, err)
	require.Equal(t, 1, updated.QueryCount)

	_, err = store.ConsumeSessionQuery(context.Background(), "live", "bot-1", now)
	require.ErrorIs(t, err, ErrSessionExhausted)
}

func TestConsumeSessionQueryExpiryBoundary(t *testing.T) {
	store := NewMemoryStore()
	expiry := time.Now().Add(24 * time.Hour)
	newTestSession(store, t, "tok", 100, expiry)

	_, err := store.ConsumeSessionQuery(context.Background(), "tok", "bot-1", expiry.Add(-time.Second))
	require.NoError(t, err)

	_, err = store.ConsumeSessionQuery(context.Background(), "tok", "bot-1", expiry.Add(time.Second))
	require.ErrorIs(t, err, ErrSessionExpired)

	// now == expiresAt is already expired
	_, err = store.ConsumeSessionQuery(context.Background(), "tok", "bot-1", expiry)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestCountQueriesSince(t *testing.T) {
	store := NewMemoryStore()
	monthStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	appendEntry := func(tenantID string, createdAt time.Time, ignored bool) {
		err := store.AppendQueryLog(context.Background(), &models.QueryLogEntry{
			TenantID:  tenantID,
			ChatbotID: "bot-1",
			Ignored:   ignored,
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
	}

	appendEntry("t1", monthStart.Add(time.Hour), false)
	appendEntry("t1", monthStart.Add(48*time.Hour), false)
	// Ignored traffic never counts.
	appendEntry("t1", monthStart.Add(time.Hour), true)
	// Previous month, even though within the last 31 days.
	appendEntry("t1", monthStart.Add(-time.Hour), false)
	// Other tenant.
	appendEntry("t2", monthStart.Add(time.Hour), false)

	count, err := store.CountQueriesSince(context.Background(), "t1", monthStart)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestDeleteExpiredSessions(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	newTestSession(store, t, "old", 10, now.Add(-48*time.Hour))
	newTestSession(store, t, "fresh", 10, now.Add(time.Hour))

	deleted, err := store.DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = store.GetSessionByToken(context.Background(), "old")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetSessionByToken(context.Background(), "fresh")
	require.NoError(t, err)
}

func TestSeedPlansImmutable(t *testing.T) {
	store := NewMemoryStore()
	limit := int64(1000)
	err := store.SeedPlans(context.Background(), []*models.Plan{
		{Code: "free", Name: "Free", MaxQueriesPerMonth: &limit},
	})
	require.NoError(t, err)

	// A second seed with different values must not overwrite catalog rows.
	other := int64(5)
	err = store.SeedPlans(context.Background(), []*models.Plan{
		{Code: "free", Name: "Hacked", MaxQueriesPerMonth: &other},
	})
	require.NoError(t, err)

	plan, err := store.GetPlan(context.Background(), "free")
	require.NoError(t, err)
	require.Equal(t, "Free", plan.Name)
	require.Equal(t, int64(1000), *plan.MaxQueriesPerMonth)
}
