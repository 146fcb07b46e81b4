package routes

import (
	"time"

	"colony-staff/internal/adapters/http/handlers"
	"colony-staff/internal/adapters/http/middleware"
	"colony-staff/internal/adapters/persistence/memory"
	"colony-staff/internal/adapters/persistence/repositories"
	"colony-staff/internal/config"
	"colony-staff/internal/core/services"
	"colony-staff/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Repositories bundles the data access used by the routes and background jobs
type Repositories struct {
	Staff         repositories.StaffRepository
	RevokedTokens repositories.RevokedTokenRepository
	Members       repositories.MemberRepository
	Visits        repositories.VisitRepository
}

// NewGormRepositories initializes MySQL-backed repositories
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Staff:         repositories.NewStaffRepository(db),
		RevokedTokens: repositories.NewRevokedTokenRepository(db),
		Members:       repositories.NewMemberRepository(db),
		Visits:        repositories.NewVisitRepository(db),
	}
}

// NewMemoryRepositories initializes in-process repositories over store
func NewMemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Staff:         store.Staff(),
		RevokedTokens: store.RevokedTokens(),
		Members:       store.Members(),
		Visits:        store.Visits(),
	}
}

// Setup configures all routes for the application. publisher may be nil.
func Setup(
	app *fiber.App,
	repos Repositories,
	healthHandler *handlers.HealthHandler,
	publisher services.VisitPublisher,
	cfg *config.Config,
) {
	// Initialize services
	authService := services.NewStaffAuthService(repos.Staff, repos.RevokedTokens, cfg)
	loyaltyService := services.NewLoyaltyService(repos.Members, repos.Visits, publisher, cfg)
	dashboardService := services.NewDashboardService(repos.Visits)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	loyaltyHandler := handlers.NewLoyaltyHandler(loyaltyService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", metrics.Handler())

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Staff app routes
	userRoutes := app.Group("/user")
	setupStaffRoutes(userRoutes, authHandler, authService, cfg)
	setupLoyaltyRoutes(userRoutes, loyaltyHandler, authService, cfg)
	setupDashboardRoutes(userRoutes, dashboardHandler, authService, cfg)
}

// setupStaffRoutes configures staff authentication routes
func setupStaffRoutes(router fiber.Router, handler *handlers.AuthHandler, authService *services.StaffAuthService, cfg *config.Config) {
	auth := middleware.AuthMiddleware(cfg, authService)

	// Public routes
	router.Post("/staff-login", middleware.AuthRateLimiter(), middleware.NoCacheHeaders(), handler.StaffLogin)
	router.Post("/staff-register", middleware.StrictRateLimiter(), handler.StaffRegister)

	// Protected routes
	router.Post("/staff-logout", auth, handler.StaffLogout)
	router.Get("/staff/me", auth, middleware.NoCacheHeaders(), handler.Me)
}

// setupLoyaltyRoutes configures visit and member routes
func setupLoyaltyRoutes(router fiber.Router, handler *handlers.LoyaltyHandler, authService *services.StaffAuthService, cfg *config.Config) {
	auth := middleware.AuthMiddleware(cfg, authService)

	router.Post("/add_loyalty_visit", auth, middleware.VisitRateLimiter(), handler.AddLoyaltyVisit)
	router.Get("/visits", auth, middleware.PrivateCacheHeaders(0), handler.ListVisits)
	router.Get("/members/:membership/qr", auth, middleware.PrivateCacheHeaders(5*time.Minute), handler.MemberQR)
}

// setupDashboardRoutes configures manager-only reporting routes
func setupDashboardRoutes(router fiber.Router, handler *handlers.DashboardHandler, authService *services.StaffAuthService, cfg *config.Config) {
	router.Get("/dashboard", middleware.AuthMiddleware(cfg, authService), middleware.ManagerOnly(), middleware.PrivateCacheHeaders(0), handler.GetManagerDashboard)
}
