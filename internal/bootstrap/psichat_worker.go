package bootstrap

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"psichat_server/adapter/in/worker"
	"psichat_server/adapter/out/messaging"
	"psichat_server/core/port/out"
	"psichat_server/pkg/logger"

	"github.com/rs/zerolog"
)

const consumerGroup = "psichat-alert-workers"

// Worker consumes tutor alerts from the stream and delivers them through the pool.
type Worker struct {
	pool     *worker.Pool
	consumer *messaging.Consumer
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	zlog     zerolog.Logger
}

// NewWorker builds the alert worker. It needs Redis for the stream.
func NewWorker(deps *Dependencies) (*Worker, error) {
	cfg := deps.Config
	if deps.Redis == nil {
		return nil, errors.New("worker mode requires REDIS_URL")
	}

	zlog := newZerolog(cfg.IsDevelopment()).With().
		Str("component", "worker").
		Str("worker_id", cfg.WorkerID).
		Logger()

	poolConfig := worker.DefaultPoolConfig()
	poolConfig.Workers = cfg.AlertWorkers
	alertPool := worker.NewPool(deps.AlertService, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		pool:   alertPool,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	w.consumer = messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
		Group:      consumerGroup,
		Consumer:   cfg.WorkerID,
		Streams:    []string{out.StreamTutorAlerts},
		Handler:    alertPool,
		Logger:     zlog,
		BatchSize:  int64(cfg.ConsumerBatchSize),
		Block:      time.Duration(cfg.ConsumerBlockMS) * time.Millisecond,
		MaxRetries: cfg.ConsumerMaxRetries,
	})
	logger.Info("Alert consumer configured (group=%s, consumer=%s, workers=%d)",
		consumerGroup, cfg.WorkerID, poolConfig.Workers)

	return w, nil
}

func newZerolog(development bool) zerolog.Logger {
	if development {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Start runs the pool and the consumer and blocks until Stop is called.
func (w *Worker) Start() error {
	// The pool outlives w.ctx so Stop can drain queued deliveries.
	if err := w.pool.Start(context.Background()); err != nil {
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.zlog.Info().Msg("Starting alert stream consumer...")
		if err := w.consumer.Run(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.zlog.Error().Err(err).Msg("Alert stream consumer stopped")
			w.cancel()
		}
	}()

	<-w.ctx.Done()
	return nil
}

// Stop cancels the consumer and drains the pool within timeout.
func (w *Worker) Stop(timeout time.Duration) {
	w.cancel()
	w.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := w.pool.Stop(ctx); err != nil {
		w.zlog.Warn().Err(err).Msg("Alert pool did not drain in time")
	}
}

// Metrics returns the pool counters.
func (w *Worker) Metrics() worker.PoolMetrics {
	return w.pool.Metrics()
}
