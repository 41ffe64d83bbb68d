package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quickscale/upscaler/internal/domain"
)

// spawnPool starts the processing goroutines.
func (w *Worker) spawnPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(slot int) {
			defer w.wg.Done()
			w.workerLoop(ctx, slot)
		}(i)
	}
}

// workerLoop pulls tasks and runs them until shutdown.
func (w *Worker) workerLoop(ctx context.Context, slot int) {
	logger := w.logger.With(slog.Int("worker_slot", slot))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case t := <-w.tasks:
			w.runTask(ctx, logger, t)
		}
	}
}

// runTask processes one video and settles its delivery. A nil result, an
// invalid-state skip, or an unknown id means the message is consumed;
// anything else is an infrastructure failure and the message goes back to
// the queue.
func (w *Worker) runTask(ctx context.Context, logger *slog.Logger, t *task) {
	logger.Info("Processing video",
		slog.String("video_id", t.videoID),
	)

	err := w.processor.Process(ctx, t.videoID)
	if err == nil ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrVideoNotFound) {
		if ackErr := t.ack(); ackErr != nil {
			logger.Error("Failed to ACK message",
				slog.String("video_id", t.videoID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	logger.Error("Processing failed, requeueing",
		slog.String("video_id", t.videoID),
		slog.String("error", err.Error()),
	)
	if nackErr := t.nack(true); nackErr != nil {
		logger.Error("Failed to NACK message",
			slog.String("video_id", t.videoID),
			slog.String("error", nackErr.Error()),
		)
	}
}
