package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/schoolvax/portal/pkg/config"
	"github.com/schoolvax/portal/pkg/logger"
	"github.com/schoolvax/portal/pkg/middleware"
	"github.com/schoolvax/portal/pkg/tracing"
	"github.com/schoolvax/portal/services/dashboard-service/internal/handlers"
	"github.com/schoolvax/portal/services/dashboard-service/internal/routes"
	"github.com/schoolvax/portal/services/dashboard-service/internal/service"
	"github.com/schoolvax/portal/services/dashboard-service/internal/upstream"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		var missing *config.MissingEnvError
		if errors.As(err, &missing) {
			for _, name := range missing.Vars {
				logger.Error("Missing required environment variable", logger.Field{Key: "name", Value: name})
			}
			os.Exit(1)
		}
		logger.Fatal("Failed to load config", logger.Err(err))
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	logger.SetDefault(log)

	log.Info("Starting Dashboard Service",
		logger.Field{Key: "version", Value: version.Info()},
		logger.Field{Key: "build", Value: version.BuildContext()},
		logger.Field{Key: "environment", Value: cfg.App.Env},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, cfg.App.Env, version.Version, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", logger.Err(err))
	}

	prometheus.MustRegister(versioncollector.NewCollector("dashboard_service"))
	httpMetrics := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, "dashboard")

	rateLimitStore, closeStore := newRateLimitStore(ctx, cfg, log)
	defer closeStore()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	client := upstream.NewClient(upstream.NewHTTPClient(cfg.Upstream.Timeout), cfg.Upstream.Timeout, log)
	dashboard := service.NewDashboardService(client, cfg, log)
	h := handlers.NewHandler(dashboard, cfg, log)

	router := gin.New()
	routes.SetupRoutes(router, h, cfg, routes.Dependencies{
		Logger:         log,
		Metrics:        httpMetrics,
		Gatherer:       prometheus.DefaultGatherer,
		RateLimitStore: rateLimitStore,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Dashboard Service listening",
			logger.Field{Key: "port", Value: cfg.App.Port},
			logger.Field{Key: "student_service", Value: cfg.Services.StudentServiceURL},
			logger.Field{Key: "drive_service", Value: cfg.Services.DriveServiceURL},
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Err(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", logger.Err(err))
	}

	log.Info("Server exited")
}

func newRateLimitStore(ctx context.Context, cfg *config.Config, log logger.Logger) (middleware.Store, func()) {
	if !cfg.RateLimit.Enabled {
		return nil, func() {}
	}

	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		client, err := middleware.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", logger.Err(err), logger.Field{Key: "addr", Value: cfg.Redis.Addr})
		}
		log.Info("Using Redis rate limit store", logger.Field{Key: "addr", Value: cfg.Redis.Addr})
		store := middleware.NewRedisStore(client, "dashboard:ratelimit:", cfg.RateLimit.Requests, cfg.RateLimit.Window)
		return store, func() { _ = client.Close() }
	}

	store := middleware.NewMemoryStore(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	return store, store.Close
}
