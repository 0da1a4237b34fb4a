package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schoolvax/portal/pkg/config"
	"github.com/schoolvax/portal/pkg/logger"
	"github.com/schoolvax/portal/pkg/middleware"
	"github.com/schoolvax/portal/services/dashboard-service/internal/handlers"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies are the shared collaborators wired in by main.
type Dependencies struct {
	Logger   logger.Logger
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	// RateLimitStore is used only when rate limiting is enabled.
	RateLimitStore middleware.Store
}

func SetupRoutes(router *gin.Engine, h *handlers.Handler, cfg *config.Config, deps Dependencies) {
	router.HandleMethodNotAllowed = true

	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(otelgin.Middleware(cfg.App.Name))
	router.Use(middleware.RequestLogger(deps.Logger, "/health", "/metrics"))
	router.Use(middleware.Metrics(deps.Metrics))

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", metricsHandler(deps.Gatherer))
	router.GET("/api-docs", h.APIDocs)
	router.GET("/api-docs/openapi.yaml", h.APIDocsYAML)

	dashboard := router.Group("/dashboard")
	if cfg.JWT.Secret != "" {
		authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
		dashboard.Use(authMiddleware.Authenticate())
	} else {
		deps.Logger.Warn("JWT_SECRET not set, dashboard routes forward credentials without verification",
			logger.Field{Key: "environment", Value: cfg.App.Env},
		)
	}
	// after auth so limits key on the token subject
	if cfg.RateLimit.Enabled && deps.RateLimitStore != nil {
		rateLimiter := middleware.NewRateLimiter(deps.RateLimitStore, cfg.RateLimit.Window, deps.Logger)
		dashboard.Use(rateLimiter.Middleware())
	}
	{
		dashboard.GET("/overview", h.GetOverview)
		dashboard.GET("/stats", h.GetStats)
	}

	router.NoRoute(h.NotFound)
	router.NoMethod(h.MethodNotAllowed)
}

func metricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	if g == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
