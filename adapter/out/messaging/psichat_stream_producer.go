// Package messaging carries tutor alerts over Redis Streams.
package messaging

import (
	"context"
	"fmt"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultMaxLen caps the alert stream; trimming is approximate.
const DefaultMaxLen = 100000

// RedisProducer implements out.AlertPublisher using Redis Streams.
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

var _ out.AlertPublisher = (*RedisProducer)(nil)

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client, maxLen: DefaultMaxLen}
}

// PublishAlert appends an alert to the tutor alert stream.
func (p *RedisProducer) PublishAlert(ctx context.Context, alert *domain.AlertEvent) error {
	return p.publish(ctx, out.StreamTutorAlerts, alert)
}

func (p *RedisProducer) publish(ctx context.Context, stream string, job any) error {
	values, err := encodeValues(job)
	if err != nil {
		return err
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

func encodeValues(job any) (map[string]any, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return map[string]any{"data": string(data)}, nil
}
