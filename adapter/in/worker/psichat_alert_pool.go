// Package worker delivers tutor alerts read from the alert stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"psichat_server/core/domain"
	"psichat_server/pkg/metrics"

	"github.com/go-pkgz/pool"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrPoolStopped is returned for work submitted outside Start and Stop.
var ErrPoolStopped = errors.New("alert pool is not running")

// AlertDeliverer hands an alert to tutors.
type AlertDeliverer interface {
	Deliver(ctx context.Context, event *domain.AlertEvent) error
}

// PoolConfig holds alert pool configuration.
type PoolConfig struct {
	Workers        int
	WorkerChanSize int
	JobTimeout     time.Duration
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:        4,
		WorkerChanSize: 16,
		JobTimeout:     30 * time.Second,
	}
}

// PoolMetrics holds pool counters.
type PoolMetrics struct {
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
	InFlight      int32 `json:"in_flight"`
}

type job struct {
	stream string
	alert  *domain.AlertEvent
	done   chan error
}

// Pool delivers alerts on a bounded go-pkgz/pool worker group. It implements
// the stream consumer's handler, so an entry is acknowledged only after its
// delivery succeeded.
type Pool struct {
	deliverer AlertDeliverer
	config    *PoolConfig
	log       zerolog.Logger

	group   *pool.WorkerGroup[*job]
	metrics PoolMetrics

	started bool
	mu      sync.RWMutex
}

// NewPool creates an alert pool. Call Start before handling entries.
func NewPool(deliverer AlertDeliverer, config *PoolConfig, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultPoolConfig().Workers
	}
	if config.WorkerChanSize <= 0 {
		config.WorkerChanSize = DefaultPoolConfig().WorkerChanSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultPoolConfig().JobTimeout
	}
	return &Pool{
		deliverer: deliverer,
		config:    config,
		log:       log.With().Str("component", "alert_pool").Logger(),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	// Batching holds items back until a batch fills, a caller waiting on
	// its result would stall, so items go to workers one at a time.
	p.group = pool.New[*job](p.config.Workers, pool.WorkerFunc[*job](p.process)).
		WithBatchSize(1).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.group.Go(ctx); err != nil {
		return fmt.Errorf("failed to start alert pool: %w", err)
	}
	p.started = true

	p.log.Info().
		Int("workers", p.config.Workers).
		Dur("job_timeout", p.config.JobTimeout).
		Msg("alert pool started")
	return nil
}

// Stop waits for queued deliveries and stops the workers.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	group := p.group
	p.mu.Unlock()

	// Close also reports delivery failures, which were already logged.
	if err := group.Close(ctx); err != nil && ctx.Err() != nil {
		return fmt.Errorf("failed to drain alert pool: %w", err)
	}
	p.log.Info().
		Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
		Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
		Msg("alert pool stopped")
	return nil
}

// Handle decodes a stream entry and blocks until its alert was delivered.
func (p *Pool) Handle(ctx context.Context, stream string, data []byte) error {
	var alert domain.AlertEvent
	if err := json.Unmarshal(data, &alert); err != nil {
		return fmt.Errorf("failed to decode alert from %s: %w", stream, err)
	}
	return p.Submit(ctx, stream, &alert)
}

// Submit queues an alert and waits for the delivery result.
func (p *Pool) Submit(ctx context.Context, stream string, alert *domain.AlertEvent) error {
	j := &job{stream: stream, alert: alert, done: make(chan error, 1)}

	// The read lock keeps Stop from closing the group under a Submit.
	p.mu.RLock()
	if !p.started {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	atomic.AddInt32(&p.metrics.InFlight, 1)
	p.group.Submit(j)
	p.mu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) process(ctx context.Context, j *job) error {
	start := time.Now()
	defer atomic.AddInt32(&p.metrics.InFlight, -1)

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	err := p.deliverer.Deliver(jobCtx, j.alert)
	metrics.Since("alert.deliver", start)

	if err != nil {
		atomic.AddInt64(&p.metrics.JobsFailed, 1)
		p.log.Error().
			Err(err).
			Str("stream", j.stream).
			Str("alert_id", j.alert.ID.String()).
			Str("priority", string(j.alert.Priority)).
			Msg("alert delivery failed")
	} else {
		atomic.AddInt64(&p.metrics.JobsProcessed, 1)
		p.log.Debug().
			Str("alert_id", j.alert.ID.String()).
			Str("user_id", j.alert.UserID.String()).
			Dur("took", time.Since(start)).
			Msg("alert delivered")
	}

	j.done <- err
	return err
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() PoolMetrics {
	return PoolMetrics{
		JobsProcessed: atomic.LoadInt64(&p.metrics.JobsProcessed),
		JobsFailed:    atomic.LoadInt64(&p.metrics.JobsFailed),
		InFlight:      atomic.LoadInt32(&p.metrics.InFlight),
	}
}
