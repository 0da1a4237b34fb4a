package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig mirrors an open cors() setup: any origin, no credentials.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        24 * time.Hour,
	}
}

func CORS(config CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     config.AllowMethods,
		AllowHeaders:     config.AllowHeaders,
		ExposeHeaders:    config.ExposeHeaders,
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	}
	if len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*" {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = config.AllowOrigins
		cc.AllowWildcard = true
	}
	return cors.New(cc)
}
