package sink

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/health"
)

// RedisChannel returns the pub/sub channel an event is published on: prefix:event.
func RedisChannel(prefix, event string) string {
	if prefix == "" {
		return event
	}
	return prefix + ":" + event
}

// RedisPublisher publishes on Redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// ConnectRedis creates a client for addr and checks it with PING.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.WrapTransient(err, "redis", "Connect", "ping")
	}
	return rdb, nil
}

// Publish sends data to channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, data []byte) error {
	return p.client.Publish(ctx, channel, data).Err()
}

// Health pings the server.
func (p *RedisPublisher) Health(ctx context.Context) health.Status {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return health.FromError("redis", err)
	}
	return health.NewHealthy("redis", "connected")
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NewRedis creates a bridge publishing on prefix:<event>.
func NewRedis(pub Publisher, prefix string, opts ...Option) (*Bridge, error) {
	return NewBridge("redis", pub, func(event string) string {
		return RedisChannel(prefix, event)
	}, opts...)
}
