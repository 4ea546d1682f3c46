package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/qaplus/widget-backend/database"
	"github.com/qaplus/widget-backend/internal/config"
	"github.com/qaplus/widget-backend/internal/handlers"
	"github.com/qaplus/widget-backend/internal/jobs"
	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/routes"
	"github.com/qaplus/widget-backend/internal/services"
	"github.com/qaplus/widget-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	cfg := config.Load()
	if cfg.AdminAPIToken == "" {
		log.Println("⚠️  ADMIN_API_TOKEN not set - admin routes disabled")
	}
	if cfg.AnswerServiceURL == "" {
		log.Println("⚠️  ANSWER_SERVICE_URL not set - queries will return 503")
	}

	// Initialize storage
	var store storage.Store

	// Check if we should use memory store (for testing)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Tenant{},
			&models.Plan{},
			&models.Chatbot{},
			&models.WidgetSession{},
			&models.QueryLogEntry{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		// Use database store
		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Seed the built-in plan catalog (existing rows are left untouched)
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.SeedPlans(seedCtx, models.DefaultPlans()); err != nil {
		cancel()
		log.Fatal("Failed to seed plan catalog:", err)
	}
	cancel()
	log.Println("✅ Plan catalog seeded")

	// Set global instance
	storage.SetStore(store)

	// Initialize all services
	planRegistry := services.NewPlanRegistry(store)
	whitelistGuard := services.NewWhitelistGuard(store)
	sessionService := services.NewSessionService(store, cfg)
	quotaCounter := services.NewQuotaCounter(store, planRegistry, cfg)
	coordinator := services.NewAccessCoordinator(store, whitelistGuard, sessionService, quotaCounter, cfg)
	reporter := services.NewUsageReporter(store, planRegistry, quotaCounter, cfg)
	answerClient := services.NewAnswerClient(cfg.AnswerServiceURL)

	// Initialize handlers
	publicHandler := handlers.NewPublicHandler(store, whitelistGuard, sessionService, coordinator, answerClient, cfg)
	adminHandler := handlers.NewAdminHandler(store, reporter, cfg)

	// Start the expired-session pruning job
	cleanupJob := jobs.NewSessionCleanupJob(store, cfg.SessionCleanupInterval)
	cleanupJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "QAPlus Widget Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"message": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	// CORS stays wide open on purpose: the widget is embedded on arbitrary
	// customer sites, and the whitelist guard is the actual access control.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Session-Token",
		AllowMethods: "GET, POST, PUT, OPTIONS",
	}))

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		// Check database if using it
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database":  status == "healthy",
				"answering": cfg.AnswerServiceURL != "",
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, publicHandler, adminHandler, cfg)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping cleanup job...")
		cleanupJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 QAPlus Widget Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("⏱️  Session TTL: %v, per-session cap: %d queries", cfg.SessionTTL, cfg.SessionMaxQueries)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
