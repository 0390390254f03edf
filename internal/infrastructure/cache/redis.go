package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"permguard-lab/internal/config"
	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
	"permguard-lab/pkg/logger"
)

// Cache key prefixes
const (
	KeyReportPrefix    = "report:"
	KeyRateLimitPrefix = "rate_limit:"
	KeyStatsReports    = "stats:reports"
)

// RedisCache wraps the Redis client with typed operations
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

// NewRedis creates a new Redis client and verifies the connection
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		logger:    log,
	}, nil
}

// Client returns the underlying Redis client
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// ReportKey returns the unprefixed cache key for a report ID
func ReportKey(id string) string {
	return KeyReportPrefix + id
}

// SetJSON marshals and stores a value with a TTL
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// GetJSON retrieves and unmarshals a JSON value. A missing key returns redis.Nil.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SaveReport implements services.ReportStore
func (c *RedisCache) SaveReport(ctx context.Context, id string, report *models.Report, ttl time.Duration) error {
	if err := c.SetJSON(ctx, ReportKey(id), report, ttl); err != nil {
		return fmt.Errorf("failed to cache report %s: %w", id, err)
	}
	if err := c.client.Incr(ctx, c.key(KeyStatsReports)).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("failed to bump report counter")
	}
	return nil
}

// GetReport implements services.ReportStore
func (c *RedisCache) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := c.GetJSON(ctx, ReportKey(id), &report); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, services.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}
	return &report, nil
}

// ReportsGenerated returns how many reports have been cached since the counter was created
func (c *RedisCache) ReportsGenerated(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.key(KeyStatsReports)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// CheckRateLimit checks and increments a fixed-window counter.
// Returns (allowed, remaining, resetTime, error).
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	now := time.Now()
	bucket := now.Unix() / int64(window.Seconds())
	windowKey := c.key(fmt.Sprintf("%s%s:%d", KeyRateLimitPrefix, key, bucket))

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := incr.Val()
	remaining := max(limit-count, 0)
	resetTime := time.Unix((bucket+1)*int64(window.Seconds()), 0)

	return count <= limit, remaining, resetTime, nil
}
