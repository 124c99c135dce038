package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-pos-ws/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis stores entries under a per-tenant generation number. Invalidate
// bumps the generation so old keys become unreachable and expire on their
// own TTL.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedis(cfg config.RedisConfig, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, logger: log.Named("report_cache")}, nil
}

func generationKey(tenantID string) string {
	return fmt.Sprintf("report:%s:gen", tenantKey(tenantID))
}

func entryKey(tenantID string, gen int64, key string) string {
	return fmt.Sprintf("report:%s:%d:%s", tenantKey(tenantID), gen, key)
}

func (r *Redis) generation(ctx context.Context, tenantID string) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) Get(ctx context.Context, tenantID, key string, dest interface{}) (bool, error) {
	gen, err := r.generation(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to read cache generation: %w", err)
	}

	data, err := r.client.Get(ctx, entryKey(tenantID, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("cache miss", zap.String("tenant_id", tenantID), zap.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get report from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		_ = r.client.Del(ctx, entryKey(tenantID, gen, key))
		return false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, tenantID, key string, value interface{}, ttl time.Duration) error {
	gen, err := r.generation(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to read cache generation: %w", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := r.client.Set(ctx, entryKey(tenantID, gen, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set report in cache: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, tenantID string) error {
	if err := r.client.Incr(ctx, generationKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
