package main

import (
	"fmt"
	"time"

	"codeberg.org/federate/server/api/rest/auth"
	"codeberg.org/federate/server/api/rest/health"
	"codeberg.org/federate/server/api/rest/users"
	"codeberg.org/federate/server/internal/logger"
	"codeberg.org/federate/server/internal/metrics"
	"codeberg.org/federate/server/internal/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(corsMiddleware(server.config.CORSOrigins))
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	router.GET("/health", health.Handler)
	router.GET("/ping", health.PingHandler)
	router.GET("/metrics", gin.WrapH(metricsHandler))

	limit, err := ratelimit.Middleware(server.config.RateLimit, server.redis)
	if err != nil {
		return err
	}

	auth.RegisterRoutes(router, server.federation, server.issuer, server.config.RedirectFlowEnabled(), limit)
	users.RegisterRoutes(router, server.resolver, server.issuer)

	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}
