package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/common/version"
	"github.com/schoolvax/portal/pkg/config"
	"github.com/schoolvax/portal/pkg/logger"
	"github.com/schoolvax/portal/services/dashboard-service/internal/docs"
	"github.com/schoolvax/portal/services/dashboard-service/internal/models"
)

// Dashboard is the aggregation backend used by the HTTP handlers.
type Dashboard interface {
	GetOverview(ctx context.Context, credential string) (*models.Overview, error)
	GetStats(ctx context.Context, credential string) (*models.Stats, error)
}

type Handler struct {
	dashboard Dashboard
	config    *config.Config
	logger    logger.Logger
}

func NewHandler(dashboard Dashboard, cfg *config.Config, log logger.Logger) *Handler {
	return &Handler{
		dashboard: dashboard,
		config:    cfg,
		logger:    log,
	}
}

// GetOverview handles GET /dashboard/overview.
func (h *Handler) GetOverview(c *gin.Context) {
	overview, err := h.dashboard.GetOverview(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		h.fail(c, err, operationOverview)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetStats handles GET /dashboard/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.GetStats(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		h.fail(c, err, operationStats)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) fail(c *gin.Context, err error, operation string) {
	status, body := classifyError(err, operation)

	log := h.logger.WithField("operation", operation).WithError(err)
	fields := []logger.Field{{Key: "status", Value: status}}
	if body.Source != "" {
		fields = append(fields, logger.Field{Key: "source", Value: body.Source})
	}
	if id, ok := c.Get("request_id"); ok {
		fields = append(fields, logger.Field{Key: "request_id", Value: id})
	}

	if status == http.StatusUnauthorized {
		log.Warn("Dashboard request without credential", fields...)
	} else {
		log.Error("Failed to build dashboard "+operation, fields...)
	}

	c.JSON(status, body)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "OK",
		"service":           h.config.App.Name,
		"environment":       h.config.App.Env,
		"studentServiceUrl": h.config.Services.StudentServiceURL,
		"driveServiceUrl":   h.config.Services.DriveServiceURL,
		"version":           version.Version,
		"timestamp":         time.Now().Unix(),
	})
}

// APIDocs serves the OpenAPI document as JSON.
func (h *Handler) APIDocs(c *gin.Context) {
	doc, err := docs.JSON()
	if err != nil {
		h.logger.Error("Failed to render API docs", logger.Err(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to render API docs",
			Details: err.Error(),
		})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

func (h *Handler) APIDocsYAML(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", docs.YAML())
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "Route not found",
		"details": "No route matches " + c.Request.Method + " " + c.Request.URL.Path,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	})
}

func (h *Handler) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error":   "Method not allowed",
		"details": "Method " + c.Request.Method + " is not supported for " + c.Request.URL.Path,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	})
}
