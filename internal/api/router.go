// Package api wires together the HTTP routes of the connected registry.
//
// The query route is anonymous and read-only. Health, readiness and version
// endpoints sit outside the rate limiter so probes are never throttled.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connected-registry/connected-registry/internal/api/connected"
	"github.com/connected-registry/connected-registry/internal/cache"
	"github.com/connected-registry/connected-registry/internal/config"
	"github.com/connected-registry/connected-registry/internal/db"
	"github.com/connected-registry/connected-registry/internal/db/repositories"
	"github.com/connected-registry/connected-registry/internal/middleware"
	"github.com/connected-registry/connected-registry/internal/registry"
)

// Version is reported by /version. Overridden at build time with
// -ldflags "-X github.com/connected-registry/connected-registry/internal/api.Version=...".
var Version = "dev"

const probeTimeout = 2 * time.Second

// pinger is satisfied by *sql.DB.
type pinger interface {
	PingContext(ctx context.Context) error
}

// healthChecker is satisfied by *cache.Client.
type healthChecker interface {
	Health(ctx context.Context) error
}

// BackgroundServices holds resources with goroutines that must be stopped
// during graceful shutdown. The caller (cmd/server) calls Shutdown after the
// HTTP server has drained.
type BackgroundServices struct {
	rateLimiter *middleware.RateLimiter
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.rateLimiter != nil {
		bg.rateLimiter.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. rdb may be nil when Redis
// is not configured.
func NewRouter(cfg *config.Config, sqlDB *sql.DB, rdb *cache.Client) (*gin.Engine, *BackgroundServices) {
	handler := newQueryHandler(cfg, sqlDB, rdb)

	var redisCheck healthChecker
	if rdb != nil {
		redisCheck = rdb
	}

	limiter, bg := newLimiter(cfg, rdb)

	return newEngine(cfg, sqlDB, redisCheck, handler, limiter), bg
}

// newQueryHandler builds the repository-backed handler, wrapped in the Redis
// read-through cache when both Redis and the cache are enabled.
func newQueryHandler(cfg *config.Config, sqlDB *sql.DB, rdb *cache.Client) registry.QueryHandler {
	var handler registry.QueryHandler = registry.NewRepositoryQueryHandler(
		repositories.NewConnectionRepository(db.Wrap(sqlDB)),
	)

	if rdb != nil && cfg.Cache.Enabled {
		slog.Info("register cache enabled", "ttl", cfg.Cache.TTL)
		handler = registry.NewCachedQueryHandler(handler, rdb, cfg.Cache.TTL)
	}
	return handler
}

// newLimiter selects the rate limiting backend. The in-memory limiter is
// returned in BackgroundServices so its cleanup goroutine can be stopped.
func newLimiter(cfg *config.Config, rdb *cache.Client) (middleware.Limiter, *BackgroundServices) {
	bg := &BackgroundServices{}
	rl := cfg.Security.RateLimiting
	if !rl.Enabled {
		return nil, bg
	}

	limitCfg := middleware.DefaultRateLimitConfig()
	limitCfg.RequestsPerMinute = rl.RequestsPerMinute
	limitCfg.BurstSize = rl.Burst

	if rl.Backend == middleware.BackendRedis {
		if rdb != nil {
			slog.Info("rate limiting enabled", "backend", middleware.BackendRedis, "requests_per_minute", rl.RequestsPerMinute)
			return middleware.NewRedisRateLimiter(rdb.Client, limitCfg), bg
		}
		slog.Warn("redis rate limiting requested without a redis client, using in-memory limiter")
	}

	slog.Info("rate limiting enabled", "backend", middleware.BackendMemory, "requests_per_minute", rl.RequestsPerMinute)
	bg.rateLimiter = middleware.NewRateLimiter(limitCfg)
	return bg.rateLimiter, bg
}

func newEngine(cfg *config.Config, db pinger, redisCheck healthChecker, handler registry.QueryHandler, limiter middleware.Limiter) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.RedirectTrailingSlash = false
	// The rate limit key is the client IP, so X-Forwarded-For is only honoured
	// from configured proxies.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		slog.Error("invalid trusted proxies, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.CustomRecovery(recoveryHandler))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware(nil))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS.AllowedOrigins))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, redisCheck))
	router.GET("/version", versionHandler())

	queries := router.Group("/")
	if limiter != nil {
		queries.Use(middleware.RateLimitMiddleware(limiter))
	}
	queries.GET(connected.Route, connected.NewResource(handler).Handler())

	return router
}

// recoveryHandler turns a panic into the same 500 body as a handler fault.
func recoveryHandler(c *gin.Context, recovered any) {
	slog.ErrorContext(c.Request.Context(), "panic serving request",
		"request_id", middleware.RequestID(c),
		"panic", recovered,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// healthCheckHandler returns the liveness status of the service
func healthCheckHandler(db pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns whether the service can answer queries. Redis is
// checked only when configured.
func readinessHandler(db pinger, redisCheck healthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		checks := gin.H{}

		if err := db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if redisCheck != nil {
			if err := redisCheck.Health(ctx); err != nil {
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the build version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
