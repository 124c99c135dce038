// Package cache stores computed report aggregates per tenant. Entries of a
// tenant are dropped together whenever its sales or catalog change.
package cache

import (
	"context"
	"time"

	"go-pos-ws/internal/config"

	"go.uber.org/zap"
)

// ReportCache is implemented by the Redis and in-memory stores.
type ReportCache interface {
	// Get decodes the entry into dest and reports whether it was found.
	Get(ctx context.Context, tenantID, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, tenantID, key string, value interface{}, ttl time.Duration) error
	// Invalidate drops every entry of the tenant.
	Invalidate(ctx context.Context, tenantID string) error
	Close() error
}

const defaultTenantKey = "default"

func tenantKey(tenantID string) string {
	if tenantID == "" {
		return defaultTenantKey
	}
	return tenantID
}

// New picks Redis when an address is configured and falls back to memory
// when it is not or Redis cannot be reached.
func New(cfg config.RedisConfig, log *zap.Logger) ReportCache {
	if cfg.Addr == "" {
		log.Info("report cache: in-memory")
		return NewMemory()
	}

	rc, err := NewRedis(cfg, log)
	if err != nil {
		log.Warn("report cache: redis unavailable, falling back to in-memory",
			zap.String("addr", cfg.Addr), zap.Error(err))
		return NewMemory()
	}
	log.Info("report cache: redis", zap.String("addr", cfg.Addr))
	return rc
}
