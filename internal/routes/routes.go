package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/handlers"
	"github.com/qaplus/widget-backend/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, public *handlers.PublicHandler, admin *handlers.AdminHandler, cfg *config.Config) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "QAPlus Widget Backend",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"public_config": "/chatbots/:id/public-config",
				"session_init":  "/sessions/init",
				"query":         "/chatbots/:id/query",
			},
		})
	})

	// Liveness probe (no storage access; /health does the DB ping)
	app.Get("/livez", handlers.NewHealthHandler("1.0.0").Check)

	// ========== PUBLIC WIDGET ROUTES ==========
	// Anonymous traffic from embedded widgets. Every route here runs the
	// whitelist guard before touching anything else.
	app.Get("/chatbots/:id/public-config", public.GetPublicConfig)
	app.Post("/sessions/init", public.InitSession)
	app.Post("/chatbots/:id/query", public.Query)

	// ========== ADMIN ROUTES ==========
	adminGroup := app.Group("/admin", middleware.RequireAdminToken(cfg.AdminAPIToken))
	adminGroup.Get("/tenants/:id/usage", admin.GetTenantUsage)
	adminGroup.Post("/chatbots", admin.CreateChatbot)
	adminGroup.Put("/chatbots/:id/whitelist", admin.UpdateWhitelist)
}
