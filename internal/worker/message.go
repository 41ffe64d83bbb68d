package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quickscale/upscaler/shared/rabbitmq"
)

// VideoMessage is the wire contract between the trigger side and the
// worker: just the id, the repository holds everything else.
type VideoMessage struct {
	VideoID string `json:"video_id"`
}

// QueueDispatcher hands claimed videos to the worker service by publishing
// their ids to RabbitMQ. It implements coordinator.Dispatcher.
type QueueDispatcher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewQueueDispatcher wraps a connected RabbitMQ client.
func NewQueueDispatcher(client *rabbitmq.Client, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{client: client, logger: logger}
}

// Dispatch publishes the video id. Returns as soon as the broker accepts
// the message; it never waits for processing.
func (d *QueueDispatcher) Dispatch(ctx context.Context, videoID string) error {
	body, err := json.Marshal(VideoMessage{VideoID: videoID})
	if err != nil {
		return fmt.Errorf("failed to marshal video message: %w", err)
	}

	if err := d.client.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to publish video %s: %w", videoID, err)
	}

	d.logger.Debug("Video dispatched to queue",
		slog.String("video_id", videoID),
	)

	return nil
}
