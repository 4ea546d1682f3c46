package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionTTL:          24 * time.Hour,
		SessionMaxQueries:   3,
		SessionCountIgnored: false,
		StoreTimeout:        2 * time.Second,
	}
}

// seedFixtures loads the standard scenario: tenant "t1" on the free plan
// (1000 queries/month), tenant "ent" on enterprise (unlimited), and
// chatbot "bot-1" owned by t1 with qaplus.com whitelisted.
func seedFixtures(t *testing.T, store *storage.MemoryStore) {
	t.Helper()

	require.NoError(t, store.SeedPlans(context.Background(), models.DefaultPlans()))

	store.PutTenant(&models.Tenant{
		ID:       "t1",
		Name:     "Acme Corp",
		PlanCode: models.PlanCodeFree,
		Status:   models.TenantStatusActive,
	})
	store.PutTenant(&models.Tenant{
		ID:       "ent",
		Name:     "Globex",
		PlanCode: models.PlanCodeEnterprise,
		Status:   models.TenantStatusActive,
	})

	bot := &models.Chatbot{
		ID:       "bot-1",
		TenantID: "t1",
		Name:     "Acme Support",
	}
	require.NoError(t, bot.SetAllowedHostnames([]string{"qaplus.com"}))
	store.PutChatbot(bot)
}

func fillQueryLog(t *testing.T, store *storage.MemoryStore, tenantID string, n int, createdAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.AppendQueryLog(context.Background(), &models.QueryLogEntry{
			TenantID:  tenantID,
			ChatbotID: "bot-1",
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
	}
}

func issueTestSession(t *testing.T, store *storage.MemoryStore, token string, limit int, expiresAt time.Time) {
	t.Helper()
	err := store.CreateSession(context.Background(), &models.WidgetSession{
		Token:      token,
		ChatbotID:  "bot-1",
		QueryLimit: limit,
		ExpiresAt:  expiresAt,
	})
	require.NoError(t, err)
}
