// Package worker consumes triggered videos from RabbitMQ and runs them
// through the coordinator's processing path on a bounded goroutine pool,
// separate from any request-serving process.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/quickscale/upscaler/shared/rabbitmq"
)

// Processor runs the background completion path for one video. The
// coordinator implements it.
type Processor interface {
	Process(ctx context.Context, videoID string) error
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	RabbitClient *rabbitmq.Client
	Processor    Processor
	Concurrency  int
}

// task carries one delivery through the pool, with its acknowledgment
// decoupled from the AMQP types for testability.
type task struct {
	videoID string
	ack     func() error
	nack    func(requeue bool) error
}

// Worker owns the consumer loop and the processing pool.
type Worker struct {
	logger      *slog.Logger
	rabbit      *rabbitmq.Client
	processor   Processor
	concurrency int
	workerID    string

	tasks    chan *task
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a worker instance.
func New(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Worker{
		logger:      cfg.Logger,
		rabbit:      cfg.RabbitClient,
		processor:   cfg.Processor,
		concurrency: concurrency,
		workerID:    fmt.Sprintf("upscale-worker-%s", uuid.New().String()[:8]),
		tasks:       make(chan *task),
		stopChan:    make(chan struct{}),
	}
}

// Start subscribes to the queue and spawns the pool. It returns once
// consumption is running; processing continues until Stop or context
// cancellation.
func (w *Worker) Start(ctx context.Context) error {
	deliveries, err := w.rabbit.Consume(w.workerID)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	w.spawnPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatchDeliveries(ctx, deliveries)
	}()

	w.logger.Info("Worker started",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	return nil
}

// Stop drains the pool. In-flight transcodes finish their terminal write
// before the worker exits.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// dispatchDeliveries turns AMQP deliveries into pool tasks.
func (w *Worker) dispatchDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var msg VideoMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				w.logger.Error("Failed to parse message JSON",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				w.rejectDelivery(delivery)
				continue
			}

			if _, err := uuid.Parse(msg.VideoID); err != nil {
				w.logger.Error("Invalid video_id in message",
					slog.String("video_id", msg.VideoID),
				)
				w.rejectDelivery(delivery)
				continue
			}

			t := &task{
				videoID: msg.VideoID,
				ack:     func() error { return delivery.Ack(false) },
				nack:    func(requeue bool) error { return delivery.Nack(false, requeue) },
			}

			select {
			case w.tasks <- t:
			case <-w.stopChan:
				// Requeue so another worker picks it up after shutdown.
				if err := t.nack(true); err != nil {
					w.logger.Error("Failed to requeue message on shutdown",
						slog.String("video_id", msg.VideoID),
						slog.String("error", err.Error()),
					)
				}
				return
			case <-ctx.Done():
				if err := t.nack(true); err != nil {
					w.logger.Error("Failed to requeue message on shutdown",
						slog.String("video_id", msg.VideoID),
						slog.String("error", err.Error()),
					)
				}
				return
			}
		}
	}
}

// rejectDelivery drops a malformed message without requeueing it.
func (w *Worker) rejectDelivery(delivery amqp.Delivery) {
	if err := delivery.Nack(false, false); err != nil {
		w.logger.Error("Failed to NACK malformed message",
			slog.String("error", err.Error()),
		)
	}
}
