package routes

import (
	"Meduroam/ai"
	"Meduroam/cache"
	"Meduroam/config"
	"Meduroam/controllers"
	"Meduroam/directory"
	"Meduroam/handlers"
	"Meduroam/middlewares"
	"Meduroam/repositories"
	"Meduroam/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(cache *cache.Cache, config *config.AppConfig, db *gorm.DB) http.Handler {
	// Set Gin to release mode
	gin.SetMode(gin.ReleaseMode)

	// Create a Gin router
	router := gin.Default()

	// Apply Bearer token validation to all routes
	router.Use(middlewares.ValidateBearerToken(config.GetBearerToken()))

	// Create and apply CORS middleware configuration
	corsConfig := &middlewares.CorsConfig{
		AllowedOrigins:   []string{"http://localhost:3000", "https://www.example.com", "https://example-dev.com"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	router.Use(middlewares.CorsMiddleware(corsConfig))

	// Apply rate limiter middleware
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: 15, // 15 requests per second
		Burst:             30, // Burst of 30
	}))

	// Apply logging middleware
	router.Use(middlewares.LoggingMiddleware())

	// Initialize repositories
	consultRepo := repositories.NewConsultationRepository(cache)
	auditRepo := repositories.NewAuditRepository()
	userRepo := repositories.NewUserRepository(db, cache)

	// Initialize domain services and collaborators
	workflowEngine := services.NewWorkflowEngine()
	routingEngine := services.NewCareRoutingEngine(directory.NewProvincialDirectory())
	noteGenerator := ai.NewClient(config.GeminiAPIKey)
	notifier := services.NewEmailEscalationNotifier(config.OnCallEmail)

	orchestrator := services.NewOrchestrator(
		workflowEngine,
		consultRepo,
		auditRepo,
		noteGenerator,
		routingEngine,
		notifier,
	)
	userService := services.NewUserService(userRepo)

	// Initialize handlers
	consultHandler := handlers.NewConsultationHandler(orchestrator)
	routingHandler := handlers.NewRoutingHandler(orchestrator, consultRepo)
	auditHandler := handlers.NewAuditHandler(auditRepo)
	referenceHandler := handlers.NewReferenceHandler()
	authHandler := handlers.NewAuthHandler(userService)

	// Register routes
	controllers.SetupConsultRoutes(
		router,
		consultHandler,
		routingHandler,
		auditHandler,
		referenceHandler,
	)

	authController := controllers.NewAuthController(authHandler)
	authController.RegisterRoutes(router)

	controllers.SetupRootRoute(router)

	return router
}
