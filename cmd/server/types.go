package main

import (
	"codeberg.org/federate/server/internal/auth"
	"codeberg.org/federate/server/internal/config"
	"codeberg.org/federate/server/internal/federation"
	"codeberg.org/federate/server/internal/identity"
	"codeberg.org/federate/server/internal/providers"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// holds all dependencies and state for the API server
type Server struct {
	db         *pgxpool.Pool // nil with the in-memory store
	redis      *redis.Client // nil without REDIS_URL
	config     *config.Config
	issuer     *auth.TokenIssuer
	registry   *providers.Registry
	resolver   *identity.Resolver
	federation *federation.Orchestrator
	router     *gin.Engine
	closers    []func() error
}
