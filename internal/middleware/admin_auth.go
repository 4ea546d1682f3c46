package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// RequireAdminToken guards the operator routes with a shared token in the
// X-Admin-Token header. Comparison is constant time. With no token
// configured the routes are effectively disabled rather than left open.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Not found",
			})
		}

		provided := c.Get("X-Admin-Token")
		if provided == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Missing admin token",
			})
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid admin token",
			})
		}
		return c.Next()
	}
}
