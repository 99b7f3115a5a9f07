// Command server runs the transparency-ledger HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"afr/internal/auditlog"
	"afr/internal/auth"
	"afr/internal/httpapi"
	"afr/internal/mirror"
	"afr/internal/ratelimit"
	"afr/internal/transparency"
	"afr/internal/zkproof"
	"afr/pkg/config"
	"afr/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("transparency-ledger")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		log.Fatal("failed to create storage directory", map[string]interface{}{"error": err.Error()})
	}

	auditSvc, err := auditlog.NewService(cfg.Storage.Dir)
	if err != nil {
		log.Fatal("failed to initialize audit log", map[string]interface{}{"error": err.Error()})
	}

	transparencySvc, err := transparency.NewService(cfg.Storage.Dir, auditSvc)
	if err != nil {
		log.Fatal("failed to initialize transparency store", map[string]interface{}{"error": err.Error()})
	}

	zkSvc, err := zkproof.NewService(cfg.Storage.Dir)
	if err != nil {
		log.Fatal("failed to initialize zk store", map[string]interface{}{"error": err.Error()})
	}

	authSvc, err := auth.NewService(cfg.Storage.Dir)
	if err != nil {
		log.Fatal("failed to initialize auth store", map[string]interface{}{"error": err.Error()})
	}

	mirrorSvc, err := mirror.NewService(cfg.Storage.Dir, transparencySvc)
	if err != nil {
		log.Fatal("failed to initialize mirror store", map[string]interface{}{"error": err.Error()})
	}

	registerLimiter := buildRegisterLimiter(cfg, log)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Audit:           auditSvc,
		Transparency:    transparencySvc,
		ZK:              zkSvc,
		Auth:            authSvc,
		Mirror:          mirrorSvc,
		RegisterLimiter: registerLimiter,
		Anon:            cfg.Anon,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("transparency ledger started", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down transparency ledger...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
}

// buildRegisterLimiter wires the registration rate limiter from
// config: the in-memory backend is the default; a Redis-backed
// limiter is used when RateLimit.Backend is explicitly set to
// "redis", exercising the substitutable Limiter port.
func buildRegisterLimiter(cfg *config.Config, log logger.Logger) ratelimit.Limiter {
	if cfg.RateLimit.Backend == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unreachable, falling back to in-memory rate limiter", map[string]interface{}{"error": err.Error()})
		} else {
			log.Info("using redis-backed registration rate limiter", nil)
			return ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, "afr:register")
		}
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
}
