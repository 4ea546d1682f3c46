package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/qaplus/widget-backend/internal/services"
	"github.com/qaplus/widget-backend/internal/storage"
)

func logQueryLogFailure(chatbotID string, err error) {
	log.Printf("⚠️  Failed to append query log for chatbot %s: %v", chatbotID, err)
}

// respondError maps a service/storage error onto the public HTTP contract.
// Denial reasons safe for the embedding developer carry a stable machine
// readable "reason"; the quota message deliberately reveals nothing about
// remaining volume, and configuration faults never leak plan codes.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrChatbotNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"reason":  "chatbot_not_found",
			"message": "Chatbot not found",
		})
	case errors.Is(err, services.ErrMissingOrigin):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"reason":  "missing_origin",
			"message": "No Origin or Referer header; the widget must be loaded from a web page",
		})
	case errors.Is(err, services.ErrDomainForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"reason":  "domain_forbidden",
			"message": "This domain is not on the chatbot's whitelist",
		})
	case errors.Is(err, services.ErrTenantSuspended):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"reason":  "tenant_suspended",
			"message": "This chatbot is currently unavailable",
		})
	case errors.Is(err, storage.ErrSessionNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"reason":  "session_invalid",
			"message": "Session token is not valid for this chatbot",
		})
	case errors.Is(err, storage.ErrSessionExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"reason":  "session_expired",
			"message": "Session has expired, request a new one",
		})
	case errors.Is(err, storage.ErrSessionExhausted):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"reason":  "session_exhausted",
			"message": "Session query limit reached, request a new session",
		})
	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"reason":  "tenant_quota_exceeded",
			"message": "Quota exceeded, try again later",
		})
	case errors.Is(err, storage.ErrTenantNotFound), errors.Is(err, services.ErrPlanConfiguration):
		// Data-integrity faults: already logged where detected.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	case errors.Is(err, services.ErrAnswerUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Answering is temporarily unavailable, please retry",
		})
	default:
		// Transient store failure, already retried once internally.
		log.Printf("⚠️  Request failed after retry: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Service temporarily unavailable",
		})
	}
}
