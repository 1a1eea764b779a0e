package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter for the current window and sets its
// expiry on first hit. Returns 1 when the call is allowed.
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

// Client wraps go-redis for the few operations the service needs
type Client struct {
	client *redis.Client
}

// NewClient connects to addr, which may be host:port or a redis:// URL
func NewClient(addr, password string, db int) (*Client, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, Password: password, DB: db}
	}
	return &Client{client: redis.NewClient(opts)}, nil
}

// Ping checks connectivity
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Allow applies a fixed-window counter of limit hits per window to key
func (r *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	seconds := int(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	result, err := fixedWindow.Run(ctx, r.client, []string{key}, limit, seconds).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Close releases the connection pool
func (r *Client) Close() error {
	return r.client.Close()
}
