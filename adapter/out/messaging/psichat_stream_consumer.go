package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// JobHandler processes entries read from a stream.
type JobHandler interface {
	Handle(ctx context.Context, stream string, data []byte) error
}

// Consumer reads streams through a consumer group. Entries whose handler
// fails stay pending, are reclaimed after PendingIdleTime and move to the
// dead letter stream once they were delivered MaxRetries times.
type Consumer struct {
	client   *redis.Client
	group    string
	consumer string
	streams  []string
	handler  JobHandler
	log      zerolog.Logger

	batchSize            int64
	block                time.Duration
	pendingCheckInterval time.Duration
	pendingIdleTime      time.Duration
	maxRetries           int
}

// ConsumerConfig holds consumer configuration. Zero values take defaults.
type ConsumerConfig struct {
	Group    string
	Consumer string
	Streams  []string
	Handler  JobHandler
	Logger   zerolog.Logger

	BatchSize            int64
	Block                time.Duration
	PendingCheckInterval time.Duration
	PendingIdleTime      time.Duration
	MaxRetries           int
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *redis.Client, cfg *ConsumerConfig) *Consumer {
	c := &Consumer{
		client:               client,
		group:                cfg.Group,
		consumer:             cfg.Consumer,
		streams:              cfg.Streams,
		handler:              cfg.Handler,
		log:                  cfg.Logger,
		batchSize:            cfg.BatchSize,
		block:                cfg.Block,
		pendingCheckInterval: cfg.PendingCheckInterval,
		pendingIdleTime:      cfg.PendingIdleTime,
		maxRetries:           cfg.MaxRetries,
	}
	if c.batchSize <= 0 {
		c.batchSize = 10
	}
	if c.block <= 0 {
		c.block = 5 * time.Second
	}
	if c.pendingCheckInterval <= 0 {
		c.pendingCheckInterval = 30 * time.Second
	}
	if c.pendingIdleTime <= 0 {
		c.pendingIdleTime = 2 * time.Minute
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	return c
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().
		Str("group", c.group).
		Str("consumer", c.consumer).
		Strs("streams", c.streams).
		Msg("starting consumer")

	for _, stream := range c.streams {
		if err := c.createConsumerGroup(ctx, stream); err != nil {
			return err
		}
	}

	go c.processPendingMessages(ctx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := c.readMessages(ctx)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("error reading from streams")
			sleep(ctx, time.Second)
			continue
		}

		c.handleBatch(ctx, result)
	}
}

// handleBatch processes one XREADGROUP result concurrently and returns once every entry is done.
func (c *Consumer) handleBatch(ctx context.Context, result []redis.XStream) {
	var g errgroup.Group
	g.SetLimit(int(c.batchSize))
	for _, stream := range result {
		for _, msg := range stream.Messages {
			g.Go(func() error {
				c.handleAndAck(ctx, stream.Stream, msg)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (c *Consumer) handleAndAck(ctx context.Context, stream string, msg redis.XMessage) {
	if err := c.processMessage(ctx, stream, msg); err != nil {
		c.log.Error().
			Err(err).
			Str("stream", stream).
			Str("id", msg.ID).
			Msg("error processing message")
		return
	}

	if err := c.client.XAck(ctx, stream, c.group, msg.ID).Err(); err != nil {
		c.log.Error().
			Err(err).
			Str("stream", stream).
			Str("id", msg.ID).
			Msg("error acknowledging message")
	}
}

func (c *Consumer) processPendingMessages(ctx context.Context) {
	ticker := time.NewTicker(c.pendingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, stream := range c.streams {
				c.claimAndProcessPending(ctx, stream)
			}
		}
	}
}

func (c *Consumer) claimAndProcessPending(ctx context.Context, stream string) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.group,
		Idle:   c.pendingIdleTime,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Error().Err(err).Str("stream", stream).Msg("error getting pending messages")
		}
		return
	}

	for _, p := range pending {
		if int(p.RetryCount) >= c.maxRetries {
			c.log.Warn().
				Str("stream", stream).
				Str("id", p.ID).
				Int64("retries", p.RetryCount).
				Msg("message exceeded max retries, moving to DLQ")

			if err := c.moveToDeadLetterQueue(ctx, stream, p.ID); err != nil {
				c.log.Error().Err(err).Str("id", p.ID).Msg("error moving message to DLQ")
				continue
			}
			c.client.XAck(ctx, stream, c.group, p.ID)
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.pendingIdleTime,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			c.log.Error().Err(err).Str("id", p.ID).Msg("error claiming message")
			continue
		}

		for _, msg := range claimed {
			c.handleAndAck(ctx, stream, msg)
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context, stream string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, c.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", c.group, stream, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (c *Consumer) readMessages(ctx context.Context) ([]redis.XStream, error) {
	if len(c.streams) == 0 {
		return nil, redis.Nil
	}

	return c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  readGroupStreams(c.streams),
		Count:    c.batchSize,
		Block:    c.block,
	}).Result()
}

// readGroupStreams lays out XREADGROUP arguments: every stream, then one ">" per stream.
func readGroupStreams(streams []string) []string {
	args := make([]string, len(streams)*2)
	for i, stream := range streams {
		args[i] = stream
		args[len(streams)+i] = ">"
	}
	return args
}

func (c *Consumer) processMessage(ctx context.Context, stream string, msg redis.XMessage) error {
	data, err := messageData(msg)
	if err != nil {
		return err
	}
	return c.handler.Handle(ctx, stream, data)
}

func messageData(msg redis.XMessage) ([]byte, error) {
	data, ok := msg.Values["data"]
	if !ok {
		return nil, fmt.Errorf("invalid message format: missing data field")
	}
	dataStr, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format: data is not a string")
	}
	return []byte(dataStr), nil
}

// DeadLetterStream names the stream failed entries of stream move to.
func DeadLetterStream(stream string) string {
	return "dlq:" + stream
}

func (c *Consumer) moveToDeadLetterQueue(ctx context.Context, stream, msgID string) error {
	messages, err := c.client.XRange(ctx, stream, msgID, msgID).Result()
	if err != nil {
		return fmt.Errorf("failed to read message for DLQ: %w", err)
	}
	if len(messages) == 0 {
		// Trimmed away; nothing left to keep.
		return nil
	}

	values := deadLetterValues(stream, c.group, c.consumer, messages[0], time.Now().UTC())
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: DeadLetterStream(stream), Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to add message to DLQ: %w", err)
	}

	c.log.Info().
		Str("dlq_stream", DeadLetterStream(stream)).
		Str("original_id", msgID).
		Msg("message moved to DLQ")
	return nil
}

func deadLetterValues(stream, group, consumer string, msg redis.XMessage, failedAt time.Time) map[string]any {
	values := map[string]any{
		"original_stream": stream,
		"original_id":     msg.ID,
		"failed_at":       failedAt.Format(time.RFC3339),
		"consumer":        consumer,
		"group":           group,
	}
	for k, v := range msg.Values {
		values["original_"+k] = v
	}
	return values
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
