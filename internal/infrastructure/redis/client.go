package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupClient is the duplicate-suppression contract the consumer depends on.
type DedupClient interface {
	// FirstSeen marks an event ID and reports whether this is its first
	// occurrence within the TTL window.
	FirstSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	Close() error
}

type Client struct {
	client *redis.Client
}

func NewClient(addr string, logger *slog.Logger) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Error("failed to connect to Redis", "addr", addr, "error", err)
		return nil, err
	}

	logger.Info("connected to Redis", "addr", addr)
	return &Client{client: client}, nil
}

func (c *Client) FirstSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, "event:"+eventID, 1, ttl).Result()
}

func (c *Client) Close() error {
	return c.client.Close()
}
