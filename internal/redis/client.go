package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chapacerto/internal/events"

	"github.com/go-redis/redis/v8"
)

const changeChannel = "chapacerto:changes"

// Client is the redis-backed realtime transport. Every persistence mutation
// is published on a single pub/sub channel and fanned out to all server
// instances; the notification service does user scoping and dedupe on top.
type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Publish(ctx context.Context, event events.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	return c.rdb.Publish(ctx, changeChannel, payload).Err()
}

func (c *Client) Subscribe(ctx context.Context) (<-chan events.ChangeEvent, func(), error) {
	sub := c.rdb.Subscribe(ctx, changeChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to change channel: %w", err)
	}

	out := make(chan events.ChangeEvent, 64)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event events.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("dropping malformed change event", "error", err)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { sub.Close() }
	return out, cancel, nil
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
