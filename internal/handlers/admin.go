package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/services"
	"github.com/qaplus/widget-backend/internal/storage"
)

// AdminHandler serves the token-guarded operator surface: usage reporting
// and whitelist management.
type AdminHandler struct {
	store    storage.Store
	reporter *services.UsageReporter
	cfg      *config.Config
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, reporter *services.UsageReporter, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		store:    store,
		reporter: reporter,
		cfg:      cfg,
	}
}

// GetTenantUsage returns the tenant's position against its monthly cap.
func (h *AdminHandler) GetTenantUsage(c *fiber.Ctx) error {
	tenantID := c.Params("id")
	if tenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Tenant ID is required",
		})
	}

	report, err := h.reporter.TenantUsage(c.Context(), tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrTenantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Tenant not found",
			})
		}
		return respondError(c, err)
	}
	return c.JSON(report)
}

// CreateChatbotRequest is the body of POST /admin/chatbots
type CreateChatbotRequest struct {
	TenantID       string   `json:"tenant_id"`
	Name           string   `json:"name"`
	Hostnames      []string `json:"hostnames"`
	ThemeColor     string   `json:"theme_color"`
	WelcomeMessage string   `json:"welcome_message"`
}

// CreateChatbot registers a new chatbot for a tenant. With no hostnames
// given the bot starts in the fail-closed unconfigured state and cannot be
// embedded anywhere yet.
func (h *AdminHandler) CreateChatbot(c *fiber.Ctx) error {
	var req CreateChatbotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if req.TenantID == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "tenant_id and name are required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.cfg.StoreTimeout)
	defer cancel()

	// The owning tenant must exist; chatbots never dangle.
	if _, err := h.store.GetTenant(ctx, req.TenantID); err != nil {
		if errors.Is(err, storage.ErrTenantNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Unknown tenant",
			})
		}
		return respondError(c, err)
	}

	bot := &models.Chatbot{
		ID:             uuid.New().String(),
		TenantID:       req.TenantID,
		Name:           req.Name,
		ThemeColor:     req.ThemeColor,
		WelcomeMessage: req.WelcomeMessage,
	}
	if err := bot.SetAllowedHostnames(req.Hostnames); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid hostnames",
		})
	}
	if err := h.store.CreateChatbot(ctx, bot); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Chatbot created",
		"chatbot": bot,
	})
}

// UpdateWhitelistRequest is the body of PUT /admin/chatbots/:id/whitelist
type UpdateWhitelistRequest struct {
	Hostnames []string `json:"hostnames"`
}

// UpdateWhitelist replaces a chatbot's domain whitelist. Setting an empty
// list puts the bot back into the fail-closed "not configured" state.
func (h *AdminHandler) UpdateWhitelist(c *fiber.Ctx) error {
	chatbotID := c.Params("id")

	var req UpdateWhitelistRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.cfg.StoreTimeout)
	defer cancel()

	bot, err := h.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		return respondError(c, err)
	}
	if err := bot.SetAllowedHostnames(req.Hostnames); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid hostnames",
		})
	}
	if err := h.store.UpdateChatbot(ctx, bot); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Whitelist updated",
		"hostnames": bot.AllowedHostnames(),
	})
}
