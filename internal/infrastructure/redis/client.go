package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
}

// New connects and pings. It returns nil when no URL is configured.
func New(ctx context.Context, o Options) (*Client, error) {
	if o.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if o.PoolSize > 0 {
		opts.PoolSize = o.PoolSize
	}
	if o.DialTimeout > 0 {
		opts.DialTimeout = o.DialTimeout
	}
	if o.ReadTimeout > 0 {
		opts.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout > 0 {
		opts.WriteTimeout = o.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
