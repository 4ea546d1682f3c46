package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/services"
	"github.com/qaplus/widget-backend/internal/storage"
)

// PublicHandler serves the anonymous widget surface: config fetch, session
// issuance, and the per-query endpoint.
type PublicHandler struct {
	store       storage.Store
	guard       *services.WhitelistGuard
	sessions    *services.SessionService
	coordinator *services.AccessCoordinator
	answerer    services.Answerer
	cfg         *config.Config
}

// NewPublicHandler creates a new public widget handler
func NewPublicHandler(store storage.Store, guard *services.WhitelistGuard, sessions *services.SessionService, coordinator *services.AccessCoordinator, answerer services.Answerer, cfg *config.Config) *PublicHandler {
	return &PublicHandler{
		store:       store,
		guard:       guard,
		sessions:    sessions,
		coordinator: coordinator,
		answerer:    answerer,
		cfg:         cfg,
	}
}

// GetPublicConfig returns the chatbot's rendering config to an embedding
// page, after the whitelist check. A whitelist denial is a 403 with its
// own reason, distinct from the 404 for an unknown chatbot id.
func (h *PublicHandler) GetPublicConfig(c *fiber.Ctx) error {
	chatbotID := c.Params("id")
	if chatbotID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Chatbot ID is required",
		})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	bot, err := h.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.guard.Check(bot, c.Get("Origin"), c.Get("Referer")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":              bot.ID,
		"name":            bot.Name,
		"theme_color":     bot.ThemeColor,
		"welcome_message": bot.WelcomeMessage,
	})
}

// InitSessionRequest is the body of POST /sessions/init
type InitSessionRequest struct {
	ChatbotID string `json:"chatbot_id"`
}

// InitSession issues a fresh anonymous session for one chatbot. Called
// once per browser context on widget load; the client caches the token in
// local storage as a hint, but this row stays the source of truth.
func (h *PublicHandler) InitSession(c *fiber.Ctx) error {
	var req InitSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if req.ChatbotID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "chatbot_id is required",
		})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	// Issuance sits behind the same whitelist gate as everything else.
	if err := h.guard.CheckOrigin(ctx, req.ChatbotID, c.Get("Origin"), c.Get("Referer")); err != nil {
		return respondError(c, err)
	}

	session, err := h.sessions.Issue(ctx, req.ChatbotID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token":       session.Token,
		"expires_at":  session.ExpiresAt.UTC().Format(time.RFC3339),
		"max_queries": session.QueryLimit,
	})
}

// QueryRequest is the body of POST /chatbots/:id/query
type QueryRequest struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Query runs the full guard chain for one chat query, hands off to the
// answering pipeline, and charges quota only after a delivered answer.
func (h *PublicHandler) Query(c *fiber.Ctx) error {
	chatbotID := c.Params("id")

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	token := req.Token
	if token == "" {
		token = c.Get("X-Session-Token")
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"reason":  "session_invalid",
			"message": "Session token is required",
		})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "message is required",
		})
	}

	ignored := h.isInternalTraffic(c)

	admission, err := h.coordinator.AuthorizeQuery(c.Context(), chatbotID, c.Get("Origin"), c.Get("Referer"), token, ignored)
	if err != nil {
		return respondError(c, err)
	}

	answer, err := h.answerer.Answer(c.Context(), chatbotID, req.Message)
	if err != nil {
		// The answer never arrived, so no quota is charged.
		return respondError(c, err)
	}

	if err := h.coordinator.RecordAnswered(c.Context(), admission.Chatbot, ignored); err != nil {
		// The visitor has the answer; a lost log entry under-counts one
		// query, which billing tolerates. Log and move on.
		logQueryLogFailure(admission.Chatbot.ID, err)
	}

	return c.JSON(fiber.Map{
		"answer":            answer,
		"session_remaining": admission.SessionRemaining,
	})
}

// isInternalTraffic marks requests from our own smoke tests so they are
// excluded from tenant billing. The marker must carry the admin token;
// embedders cannot forge a free ride.
func (h *PublicHandler) isInternalTraffic(c *fiber.Ctx) bool {
	return h.cfg.AdminAPIToken != "" && c.Get("X-Internal-Test") == h.cfg.AdminAPIToken
}

func (h *PublicHandler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), h.cfg.StoreTimeout)
}
