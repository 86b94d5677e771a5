package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/pkg/logger"
)

// Client is a thin cache layer over Redis. All methods are safe to call on a
// nil receiver, which keeps the cache strictly optional.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

// Ping reports whether the cache is reachable, for health checks.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// SetDashboard caches a dashboard aggregate under a short TTL.
func (c *Client) SetDashboard(ctx context.Context, key string, stats interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard stats: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("dashboard:%s", key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set dashboard cache: %w", err)
	}

	logger.Debug("Dashboard cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetDashboard(ctx context.Context, key string, stats interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, fmt.Sprintf("dashboard:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get dashboard cache: %w", err)
	}

	if err := json.Unmarshal(data, stats); err != nil {
		return false, fmt.Errorf("failed to unmarshal dashboard stats: %w", err)
	}

	logger.Debug("Dashboard cache hit", zap.String("key", key))
	return true, nil
}

// SetClassification caches a classifier result keyed by boundary hash.
func (c *Client) SetClassification(ctx context.Context, boundaryHash string, result interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal classification result: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("classification:%s", boundaryHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set classification cache: %w", err)
	}

	logger.Debug("Classification cached", zap.String("boundary_hash", boundaryHash))
	return nil
}

func (c *Client) GetClassification(ctx context.Context, boundaryHash string, result interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, fmt.Sprintf("classification:%s", boundaryHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get classification cache: %w", err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal classification result: %w", err)
	}

	logger.Debug("Classification cache hit", zap.String("boundary_hash", boundaryHash))
	return true, nil
}

// InvalidateDashboard drops every cached dashboard aggregate. Called after
// any claim mutation so aggregates never go stale for long.
func (c *Client) InvalidateDashboard(ctx context.Context) error {
	if c == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, "dashboard:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Debug("Dashboard cache invalidated")
	return nil
}
