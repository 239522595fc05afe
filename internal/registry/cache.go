package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/connected-registry/connected-registry/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

// cacheKeyPrefix namespaces cached registers; bump the version when the
// cached JSON shape changes.
const cacheKeyPrefix = "connected:register:v2:"

// CachedQueryHandler is a read-through Redis cache in front of another
// QueryHandler. Redis failures never fail a query: a broken cache degrades to
// calling the wrapped handler directly.
type CachedQueryHandler struct {
	next   QueryHandler
	client redis.Cmdable
	ttl    time.Duration
}

// NewCachedQueryHandler wraps next with a Redis cache whose entries expire after ttl.
func NewCachedQueryHandler(next QueryHandler, client redis.Cmdable, ttl time.Duration) *CachedQueryHandler {
	return &CachedQueryHandler{next: next, client: client, ttl: ttl}
}

// CacheKey returns the Redis key under which the register for q is stored.
// Handles are query-escaped, which encodes ':' as %3A, so a ':' inside a
// handle can never be mistaken for the separator.
func CacheKey(q ConnectedRegistryQuery) string {
	return cacheKeyPrefix + url.QueryEscape(q.First()) + ":" + url.QueryEscape(q.Second())
}

// Handle implements QueryHandler.
func (h *CachedQueryHandler) Handle(ctx context.Context, q ConnectedRegistryQuery) (RegisterFor, error) {
	key := CacheKey(q)

	if register, ok := h.lookup(ctx, key); ok {
		return register, nil
	}

	register, err := h.next.Handle(ctx, q)
	if err != nil {
		return RegisterFor{}, err
	}

	h.store(ctx, key, register)
	return register, nil
}

func (h *CachedQueryHandler) lookup(ctx context.Context, key string) (RegisterFor, bool) {
	data, err := h.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		telemetry.RegistryCacheRequestsTotal.WithLabelValues("miss").Inc()
		return RegisterFor{}, false
	}
	if err != nil {
		telemetry.RegistryCacheRequestsTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "register cache read failed", "key", key, "error", err)
		return RegisterFor{}, false
	}

	var register RegisterFor
	if err := json.Unmarshal(data, &register); err != nil {
		telemetry.RegistryCacheRequestsTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "discarding undecodable cached register", "key", key, "error", err)
		return RegisterFor{}, false
	}
	if register.Entries == nil {
		register.Entries = []Entry{}
	}

	telemetry.RegistryCacheRequestsTotal.WithLabelValues("hit").Inc()
	return register, true
}

func (h *CachedQueryHandler) store(ctx context.Context, key string, register RegisterFor) {
	data, err := json.Marshal(register)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode register for cache", "key", key, "error", err)
		return
	}
	if err := h.client.Set(ctx, key, data, h.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "register cache write failed", "key", key, "error", err)
	}
}
