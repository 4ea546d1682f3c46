package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qaplus/widget-backend/internal/models"
)

// DatabaseStore implements Store on PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given GORM connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Tenant operations

func (s *DatabaseStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Plan operations

func (s *DatabaseStore) GetPlan(ctx context.Context, code string) (*models.Plan, error) {
	var plan models.Plan
	err := s.db.WithContext(ctx).First(&plan, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *DatabaseStore) SeedPlans(ctx context.Context, plans []*models.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	// Catalog rows are immutable: existing codes are left untouched.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&plans).Error
}

// Chatbot operations

func (s *DatabaseStore) CreateChatbot(ctx context.Context, bot *models.Chatbot) error {
	return s.db.WithContext(ctx).Create(bot).Error
}

func (s *DatabaseStore) GetChatbot(ctx context.Context, id string) (*models.Chatbot, error) {
	var bot models.Chatbot
	err := s.db.WithContext(ctx).First(&bot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatbotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (s *DatabaseStore) UpdateChatbot(ctx context.Context, bot *models.Chatbot) error {
	result := s.db.WithContext(ctx).Model(&models.Chatbot{}).
		Where("id = ?", bot.ID).
		Updates(map[string]interface{}{
			"whitelist":       bot.Whitelist,
			"name":            bot.Name,
			"theme_color":     bot.ThemeColor,
			"welcome_message": bot.WelcomeMessage,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrChatbotNotFound
	}
	return nil
}

// Session operations

func (s *DatabaseStore) CreateSession(ctx context.Context, session *models.WidgetSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *DatabaseStore) GetSessionByToken(ctx context.Context, token string) (*models.WidgetSession, error) {
	var session models.WidgetSession
	err := s.db.WithContext(ctx).First(&session, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ConsumeSessionQuery runs the quota check and the increment as a single
// conditional UPDATE. Two concurrent requests on the last remaining query
// race on the row version: exactly one matches the WHERE clause, the other
// affects zero rows and is classified below.
func (s *DatabaseStore) ConsumeSessionQuery(ctx context.Context, token, chatbotID string, now time.Time) (*models.WidgetSession, error) {
	result := s.db.WithContext(ctx).Model(&models.WidgetSession{}).
		Where("token = ? AND chatbot_id = ? AND expires_at > ? AND query_count < query_limit", token, chatbotID, now).
		UpdateColumn("query_count", gorm.Expr("query_count + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		session, err := s.GetSessionByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if session.ChatbotID != chatbotID {
			return nil, ErrSessionNotFound
		}
		if session.Expired(now) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionExhausted
	}
	return s.GetSessionByToken(ctx, token)
}

func (s *DatabaseStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	// Hard delete: the pruning job exists to keep the table bounded.
	result := s.db.WithContext(ctx).Unscoped().
		Where("expires_at < ?", before).
		Delete(&models.WidgetSession{})
	return result.RowsAffected, result.Error
}

// Query log operations

func (s *DatabaseStore) AppendQueryLog(ctx context.Context, entry *models.QueryLogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *DatabaseStore) CountQueriesSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.QueryLogEntry{}).
		Where("tenant_id = ? AND ignored = false AND created_at >= ?", tenantID, since).
		Count(&count).Error
	return count, err
}
