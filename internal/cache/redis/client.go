// Package redis caches finished review results so identical report text is
// not re-evaluated against an unchanged checklist.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soc-review/backend/pkg/logger"
)

const connectTimeout = 5 * time.Second

type Client struct {
	rdb *redis.Client
}

// NewClient connects and verifies the server answers before returning.
// The cache is optional; callers treat an error here as a reason to run
// uncached, not to abort.
func NewClient(host string, port int, password string, db int) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: connectTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetReview stores a finished review under the report hash. The hash must
// already incorporate the checklist fingerprint and model name so stale
// entries cannot be served after either changes.
func (c *Client) SetReview(ctx context.Context, reviewHash string, result interface{}, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal review result: %w", err)
	}

	if err := c.rdb.Set(ctx, reviewKey(reviewHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set review cache: %w", err)
	}

	logger.Debug("Review cached", zap.String("review_hash", reviewHash), zap.Duration("ttl", ttl))
	return nil
}

// GetReview loads a cached review into result. A missing key is not an
// error; it reports found=false.
func (c *Client) GetReview(ctx context.Context, reviewHash string, result interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, reviewKey(reviewHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get review cache: %w", err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal review result: %w", err)
	}

	logger.Debug("Review cache hit", zap.String("review_hash", reviewHash))
	return true, nil
}

func reviewKey(hash string) string {
	return "review:" + hash
}
