package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace = "notifyd"
	queuePrefix  = "queue"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	ZAdd(context.Context, string, ...redis.Z) *redis.IntCmd
	ZRangeByScore(context.Context, string, *redis.ZRangeBy) *redis.StringSliceCmd
	ZRem(context.Context, string, ...any) *redis.IntCmd
	ZCard(context.Context, string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the delivery queue.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// SortedSetStore is the subset of sorted-set operations the queue relies on.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key string, max float64, limit int64) ([]string, error)
	ZRem(ctx context.Context, key string, member string) (bool, error)
	ZCard(ctx context.Context, key string) (int64, error)
	QueueKey(lane string) string
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Debug(logg.WithField(ctx, "addr", opts.Addr), "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// ZAdd inserts or rescores a member.
func (c *Client) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZRangeByScore returns up to limit members scored at or below max, lowest first.
func (c *Client) ZRangeByScore(ctx context.Context, key string, max float64, limit int64) ([]string, error) {
	if c.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.store.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", max),
		Count: limit,
	}).Result()
}

// ZRem removes a member and reports whether this call removed it.
func (c *Client) ZRem(ctx context.Context, key string, member string) (bool, error) {
	if c.store == nil {
		return false, errors.New("redis client not initialized")
	}
	n, err := c.store.ZRem(ctx, key, member).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ZCard returns the number of members in the set.
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	if c.store == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.store.ZCard(ctx, key).Result()
}

// QueueKey returns the namespaced sorted-set key for a delivery lane.
func (c *Client) QueueKey(lane string) string {
	return c.buildKey(queuePrefix, lane)
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
