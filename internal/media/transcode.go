package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/quickscale/upscaler/internal/blob"
)

// Upscale target. The service supports exactly one output resolution.
const (
	targetWidth  = 1920
	targetHeight = 1080
)

// UpscaleResult is what a successful transcode produces.
type UpscaleResult struct {
	// Locator points at the processed bytes in the blob store.
	Locator string
	// SourceResolution is the input's WIDTHxHEIGHT, reported so the
	// coordinator can backfill records whose upload-time probe was skipped.
	SourceResolution string
}

// Transcoder invokes ffmpeg to upscale a video to 1920x1080. Video is always
// re-encoded (libx264, crf 18, preset medium, bicubic scaling); audio is
// copied through untouched when present.
type Transcoder struct {
	ffmpegPath string
	blobs      blob.Store
	prober     *Prober
	logger     *slog.Logger
}

// NewTranscoder returns a Transcoder writing results through the given blob
// store.
func NewTranscoder(ffmpegPath string, blobs blob.Store, prober *Prober, logger *slog.Logger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		blobs:      blobs,
		prober:     prober,
		logger:     logger,
	}
}

// Upscale runs the full pipeline: localize input, probe it, encode, upload
// the output to the processed bucket. The per-job temp directory is removed
// on every exit path.
func (t *Transcoder) Upscale(ctx context.Context, inputLocator string) (*UpscaleResult, error) {
	workDir, err := os.MkdirTemp("", "upscale-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath, err := t.localize(ctx, inputLocator, workDir)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	info, err := t.prober.Probe(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext == "" {
		ext = ".mp4"
	}
	outputPath := filepath.Join(workDir, "output"+ext)

	args := upscaleArgs(inputPath, outputPath, info.HasAudio)

	t.logger.Info("Starting ffmpeg encode",
		slog.String("input", inputLocator),
		slog.String("source_resolution", info.Resolution()),
		slog.Bool("has_audio", info.HasAudio),
	)

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("encode failed: %w: %s", err, tail(stderr.String(), 400))
	}

	stat, err := os.Stat(outputPath)
	if err != nil || stat.Size() == 0 {
		return nil, fmt.Errorf("encode failed: ffmpeg produced no output")
	}

	out, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("encode failed: cannot read output: %w", err)
	}
	defer out.Close()

	locator, err := t.blobs.Put(ctx, blob.BucketProcessed, blob.GenerateName(outputPath), out)
	if err != nil {
		return nil, fmt.Errorf("failed to store processed video: %w", err)
	}

	t.logger.Info("Encode finished",
		slog.String("input", inputLocator),
		slog.String("result", locator),
		slog.Int64("size_bytes", stat.Size()),
	)

	return &UpscaleResult{
		Locator:          locator,
		SourceResolution: info.Resolution(),
	}, nil
}

// localize makes the input available as a local file. Remote locators are
// downloaded into the work dir; path locators are used in place.
func (t *Transcoder) localize(ctx context.Context, locator, workDir string) (string, error) {
	if !blob.IsRemote(locator) {
		return locator, nil
	}

	rc, err := t.blobs.Open(ctx, locator)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	ext := strings.ToLower(filepath.Ext(locator))
	path := filepath.Join(workDir, "input"+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp input: %w", err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to download input: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to flush temp input: %w", err)
	}

	return path, nil
}

// upscaleArgs builds the ffmpeg argument list. Audio is never re-encoded:
// copied when present, omitted when absent.
func upscaleArgs(inputPath, outputPath string, hasAudio bool) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d:flags=bicubic", targetWidth, targetHeight),
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "medium",
	}

	if hasAudio {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-an")
	}

	return append(args, outputPath)
}
