// Package coordinator orchestrates the video job lifecycle: upload, the
// at-most-once processing trigger, background completion, and the read
// paths. All state decisions go through the repository's atomic updates;
// the coordinator itself holds no job state.
package coordinator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickscale/upscaler/internal/blob"
	"github.com/quickscale/upscaler/internal/domain"
	"github.com/quickscale/upscaler/internal/media"
	"github.com/quickscale/upscaler/internal/storage"
)

// ListLimit caps the number of records returned by List.
const ListLimit = 100

// Prober extracts media properties from a local file.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.MediaInfo, error)
}

// Upscaler runs the transcode pipeline for one input locator.
type Upscaler interface {
	Upscale(ctx context.Context, inputLocator string) (*media.UpscaleResult, error)
}

// Dispatcher hands a claimed video off to the background processing side.
// Dispatch must return quickly; it never waits for the transcode.
type Dispatcher interface {
	Dispatch(ctx context.Context, videoID string) error
}

// Config wires the coordinator's collaborators. Prober and Dispatcher are
// used on the upload/trigger side; Upscaler on the processing side. A
// deployment that only serves one side may leave the others nil.
type Config struct {
	Store      storage.VideoStore
	Blobs      blob.Store
	Prober     Prober
	Upscaler   Upscaler
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

// Coordinator enforces the uploaded -> processing -> completed|error state
// machine.
type Coordinator struct {
	store      storage.VideoStore
	blobs      blob.Store
	prober     Prober
	upscaler   Upscaler
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New builds a Coordinator.
func New(cfg *Config) *Coordinator {
	return &Coordinator{
		store:      cfg.Store,
		blobs:      cfg.Blobs,
		prober:     cfg.Prober,
		upscaler:   cfg.Upscaler,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}
}

// Create stores the uploaded bytes, probes them best-effort, and inserts a
// new record in the uploaded state. Returns domain.ErrEmptyUpload when the
// reader carries no content; storage failures propagate to the caller.
func (c *Coordinator) Create(ctx context.Context, filename string, r io.Reader) (*domain.Video, error) {
	buffered := bufio.NewReader(r)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrEmptyUpload
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	locator, err := c.blobs.Put(ctx, blob.BucketIncoming, blob.GenerateName(filename), buffered)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	// Probing needs a local file. Remote backends skip it here; the
	// resolution is backfilled when processing completes.
	resolution := ""
	if c.prober != nil && !blob.IsRemote(locator) {
		info, err := c.prober.Probe(ctx, locator)
		if err != nil {
			c.logger.Warn("Upload probe failed, continuing without resolution",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
		} else {
			resolution = info.Resolution()
		}
	}

	video := &domain.Video{
		ID:                 uuid.New().String(),
		Filename:           filename,
		OriginalResolution: resolution,
		TargetResolution:   domain.TargetResolution,
		Status:             domain.StatusUploaded,
		UploadTime:         time.Now().UTC(),
		SourceLocator:      locator,
	}

	if err := c.store.Insert(ctx, video); err != nil {
		return nil, fmt.Errorf("failed to insert video record: %w", err)
	}

	c.logger.Info("Video uploaded",
		slog.String("video_id", video.ID),
		slog.String("filename", filename),
		slog.String("resolution", resolution),
	)

	return video, nil
}

// Trigger transitions the video to processing and dispatches background
// work. The claim is a single atomic repository update, so of two
// concurrent triggers exactly one wins; the other sees
// domain.ErrInvalidState. Trigger returns as soon as the work is queued.
func (c *Coordinator) Trigger(ctx context.Context, id string) error {
	if err := c.store.ClaimForProcessing(ctx, id); err != nil {
		return err
	}

	if err := c.dispatcher.Dispatch(ctx, id); err != nil {
		// The claim went through but the work will never run. Record the
		// terminal error now so the job cannot sit in processing forever.
		if markErr := c.store.MarkFailed(context.WithoutCancel(ctx), id,
			"failed to queue for processing: "+err.Error()); markErr != nil {
			c.logger.Error("Failed to record dispatch failure",
				slog.String("video_id", id),
				slog.String("error", markErr.Error()),
			)
		}
		return fmt.Errorf("failed to dispatch video %s: %w", id, err)
	}

	c.logger.Info("Video processing triggered",
		slog.String("video_id", id),
	)

	return nil
}

// Process is the background completion path: it runs the upscale pipeline
// and writes exactly one terminal state. Every exit, including a panic in
// the pipeline, ends in a terminal write; the write uses a non-cancelable
// context so a closed trigger connection or a shutdown cannot abandon it.
//
// A transcode failure is not an error from Process's perspective: it is
// captured into the job's terminal error state, the only channel by which
// background failures reach clients. Process returns an error only when the
// job's state could not be read or written, so callers can redeliver.
func (c *Coordinator) Process(ctx context.Context, id string) (err error) {
	video, err := c.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if video.Status != domain.StatusProcessing {
		// Duplicate delivery or a late message for an already-finished
		// job. The terminal-write guards would reject any update anyway.
		c.logger.Warn("Skipping video not in processing state",
			slog.String("video_id", id),
			slog.String("status", video.Status),
		)
		return domain.ErrInvalidState
	}

	defer func() {
		if r := recover(); r != nil {
			err = c.fail(ctx, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	result, upErr := c.upscaler.Upscale(ctx, video.SourceLocator)
	if upErr != nil {
		return c.fail(ctx, id, upErr.Error())
	}

	if err := c.store.MarkCompleted(context.WithoutCancel(ctx), id, result.Locator, result.SourceResolution); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			// Lost a race against another terminal write; the record is
			// already final.
			return nil
		}
		return fmt.Errorf("failed to record completion for video %s: %w", id, err)
	}

	c.logger.Info("Video processing completed",
		slog.String("video_id", id),
		slog.String("result", result.Locator),
	)

	return nil
}

// fail records the terminal error state. Only a failure to write that state
// is reported back.
func (c *Coordinator) fail(ctx context.Context, id, message string) error {
	if err := c.store.MarkFailed(context.WithoutCancel(ctx), id, message); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return nil
		}
		c.logger.Error("Failed to record terminal error state",
			slog.String("video_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to record error state for video %s: %w", id, err)
	}

	c.logger.Warn("Video processing failed",
		slog.String("video_id", id),
		slog.String("error", message),
	)

	return nil
}

// Get returns the record for one video.
func (c *Coordinator) Get(ctx context.Context, id string) (*domain.Video, error) {
	return c.store.FindByID(ctx, id)
}

// List returns the most recent videos, newest upload first.
func (c *Coordinator) List(ctx context.Context) ([]domain.Video, error) {
	return c.store.ListRecent(ctx, ListLimit)
}

// DownloadInfo describes how to deliver a processed video to the client.
type DownloadInfo struct {
	// Filename is the suggested client-side name, derived from the
	// original upload's name.
	Filename string
	// Locator points at the processed bytes.
	Locator string
	// Remote is true when the client should be redirected to the locator
	// instead of streamed the bytes.
	Remote bool
}

// Download resolves the processed bytes for a completed video. Returns
// domain.ErrNotReady unless the video has completed, and
// domain.ErrVideoNotFound when the result bytes are unexpectedly absent.
// For local results the returned reader streams the file; for remote
// results the reader is nil and Info.Remote is set.
func (c *Coordinator) Download(ctx context.Context, id string) (*DownloadInfo, io.ReadCloser, error) {
	video, err := c.store.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if video.Status != domain.StatusCompleted {
		return nil, nil, domain.ErrNotReady
	}

	info := &DownloadInfo{
		Filename: downloadName(video.Filename, video.ResultLocator),
		Locator:  video.ResultLocator,
		Remote:   blob.IsRemote(video.ResultLocator),
	}

	if info.Remote {
		return info, nil, nil
	}

	rc, err := c.blobs.Open(ctx, video.ResultLocator)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Completed status but no bytes: external deletion or
			// corruption. Surface as not found rather than a 500.
			return nil, nil, domain.ErrVideoNotFound
		}
		return nil, nil, fmt.Errorf("failed to open result for video %s: %w", id, err)
	}

	return info, rc, nil
}

// downloadName builds "<original stem>_1080p<result ext>".
func downloadName(originalFilename, resultLocator string) string {
	stem := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	if stem == "" {
		stem = "video"
	}

	ext := filepath.Ext(resultLocator)
	if ext == "" {
		ext = ".mp4"
	}

	return stem + "_1080p" + ext
}
