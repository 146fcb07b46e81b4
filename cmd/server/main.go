package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"colony-staff/internal/adapters/http/handlers"
	"colony-staff/internal/adapters/http/middleware"
	"colony-staff/internal/adapters/http/routes"
	"colony-staff/internal/adapters/messaging"
	"colony-staff/internal/adapters/persistence/memory"
	"colony-staff/internal/adapters/persistence/models"
	"colony-staff/internal/config"
	"colony-staff/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	_ "colony-staff/docs" // Swagger docs
)

// @title Colony Loyalty API
// @version 1.0
// @description Staff loyalty backend: staff login, visit awards and member QR codes

// @contact.name API Support

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Open storage
	var db *gorm.DB
	var repos routes.Repositories
	switch cfg.Storage {
	case config.StorageMemory:
		repos = routes.NewMemoryRepositories(memory.New())
		log.Println("⚠️ Using in-memory storage; data is lost on restart")
	default:
		db, err = config.ConnectDatabase(cfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer config.CloseDatabase()

		if err := models.AutoMigrate(db); err != nil {
			log.Fatalf("❌ Failed to auto migrate: %v", err)
		}
		log.Println("✅ Database migration completed")
		repos = routes.NewGormRepositories(db)
	}

	// Seed demo staff and member (dev only)
	if cfg.IsDev() {
		if err := config.NewSeeder(repos.Staff, repos.Members).Run(context.Background()); err != nil {
			log.Printf("⚠️ Warning: Failed to seed demo data: %v", err)
		}
	}

	// Visit events; left as a nil interface when no broker is configured
	var publisher services.VisitPublisher
	if p := messaging.NewVisitPublisher(cfg.Broker); p != nil {
		publisher = p
		log.Printf("✅ Publishing visits to queue %s", cfg.Broker.Queue)
	}

	// Start Cron Service for token purge and daily summary
	cronService := services.NewCronService(repos.RevokedTokens, repos.Visits, cfg)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Colony Loyalty API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, repos, handlers.NewHealthHandler(db, cfg), publisher, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s | STORAGE: %s]", cfg.Port, cfg.AppMode, cfg.Storage)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
