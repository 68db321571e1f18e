package main

import (
	"context"
	"fmt"
	"net/http"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/auth"
	"codeberg.org/federate/server/internal/config"
	"codeberg.org/federate/server/internal/federation"
	"codeberg.org/federate/server/internal/identity"
	"codeberg.org/federate/server/internal/lock"
	"codeberg.org/federate/server/internal/logger"
	"codeberg.org/federate/server/internal/providers"
	"codeberg.org/federate/server/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	server := &Server{config: cfg}

	issuer, err := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	server.issuer = issuer

	var store identity.Store

	if cfg.DatabaseURL != "" {
		db, err := storage.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		server.db = db
		server.closers = append(server.closers, func() error { db.Close(); return nil })
		store = users.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, users are kept in memory")
		store = users.NewMemoryRepository()
	}

	lockOpts := lock.Options{Wait: cfg.LockTimeout}

	var (
		locker     lock.Locker
		tokenStore providers.RequestTokenStore
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}

		client := redis.NewClient(opts)
		server.closers = append(server.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			server.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		server.redis = client
		locker = lock.NewRedisLocker(client, lockOpts)
		tokenStore = providers.NewRedisRequestTokenStore(client)
	} else {
		// single-instance only: locks do not span processes
		logger.Warn("REDIS_URL not set, using in-process locks")

		memLocker := lock.NewMemoryLocker(lockOpts)
		server.closers = append(server.closers, memLocker.Close)

		locker = memLocker
		tokenStore = providers.NewMemoryRequestTokenStore()
	}

	server.registry = providers.NewRegistryFromConfig(cfg, tokenStore, &http.Client{})
	server.resolver = identity.NewResolver(store, locker)
	server.federation = federation.New(federation.Deps{
		Providers: server.registry,
		Resolver:  server.resolver,
		Sessions:  issuer,
	})

	logger.Info("oauth providers configured", "providers", server.registry.Enabled())

	if cfg.RedirectFlowEnabled() {
		names, err := auth.InitializeProviders(cfg)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("failed to initialize redirect providers: %w", err)
		}

		logger.Info("redirect login enabled", "providers", names)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if err := RegisterRoutes(router, server); err != nil {
		server.Close()
		return nil, err
	}

	server.router = router

	return server, nil
}

// releases connections in reverse order of acquisition
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.ErrorErr(err, "failed to close server resource")
		}
	}

	s.closers = nil
}
