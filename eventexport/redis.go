package eventexport

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisExporter publishes lifecycle events on a Redis pub/sub channel,
// configured via PIPELESS_REDIS_URL / PIPELESS_REDIS_CHANNEL.
type RedisExporter struct {
	client  *redis.Client
	channel string
}

func NewRedisExporter(url, channel string) (*RedisExporter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisExporter{client: redis.NewClient(opts), channel: channel}, nil
}

func (r *RedisExporter) Publish(jsonPayload string) error {
	return r.client.Publish(context.Background(), r.channel, jsonPayload).Err()
}

func (r *RedisExporter) Close() error {
	return r.client.Close()
}
