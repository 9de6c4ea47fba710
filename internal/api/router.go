package api

import (
	"net/http"

	"github.com/Conceptual-Machines/journey-api/internal/api/handlers"
	"github.com/Conceptual-Machines/journey-api/internal/api/middleware"
	"github.com/Conceptual-Machines/journey-api/internal/config"
	"github.com/Conceptual-Machines/journey-api/internal/contract"
	"github.com/Conceptual-Machines/journey-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the HTTP surface is wired to
type Dependencies struct {
	Config     *config.Config
	Generator  handlers.Generator
	Registry   *contract.Registry
	Recorder   metrics.Recorder
	Prometheus http.Handler
	Version    string
}

// SetupRouter builds the gin engine with every route and middleware
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(middleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(middleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(middleware.RequestTracking(deps.Recorder))

	// CORS middleware
	router.Use(middleware.CORS(deps.Config.AllowedOrigins))

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.Config)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoints
	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Config.LLMModel, deps.Registry.Names())
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	if deps.Prometheus != nil {
		router.GET("/metrics", gin.WrapH(deps.Prometheus))
	}

	generationHandler := handlers.NewGenerationHandler(deps.Generator, deps.Registry)
	auth := middleware.Auth(deps.Config.AuthMode)

	// Prompt-in routes under the historical /api/openai prefix
	openaiRoutes := router.Group("/api/openai")
	openaiRoutes.Use(auth)
	{
		openaiRoutes.POST("", generationHandler.CustomerJourney) // legacy journey route
		openaiRoutes.POST("/customer-journey", generationHandler.CustomerJourney)
		openaiRoutes.POST("/customer-pains", generationHandler.CustomerPains)
	}

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		v1.POST("/generations/:task", generationHandler.GenerateTask)
		v1.POST("/journeys", generationHandler.Journey)
		v1.POST("/pain-points", generationHandler.PainPoints)
	}

	return router
}
