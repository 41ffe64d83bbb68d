// Package media wraps the external ffmpeg/ffprobe tools: read-only metadata
// probing and the 1080p upscale pipeline.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned when the probed file carries no video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// Rational is an exact frame rate as reported by ffprobe ("30000/1001").
// The ratio is parsed explicitly; malformed input is rejected, never
// evaluated.
type Rational struct {
	Num int64
	Den int64
}

// ParseRational parses "N/D" or a bare integer "N". Fails closed on
// anything else.
func ParseRational(s string) (Rational, error) {
	num, den, found := strings.Cut(s, "/")

	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("invalid frame rate numerator %q: %w", s, err)
	}

	if !found {
		return Rational{Num: n, Den: 1}, nil
	}

	d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("invalid frame rate denominator %q: %w", s, err)
	}
	if d == 0 {
		return Rational{}, fmt.Errorf("zero frame rate denominator in %q", s)
	}

	return Rational{Num: n, Den: d}, nil
}

// Float returns the frame rate in frames per second.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// MediaInfo holds the intrinsic properties of a media file.
type MediaInfo struct {
	Width           int
	Height          int
	CodecName       string
	FrameRate       Rational
	DurationSeconds float64
	HasAudio        bool
}

// Resolution returns the WIDTHxHEIGHT string used in video records.
func (m *MediaInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Prober extracts media properties by shelling out to ffprobe. It never
// mutates the file.
type Prober struct {
	ffprobePath string
	logger      *slog.Logger
}

// NewProber returns a Prober using the given ffprobe binary.
func NewProber(ffprobePath string, logger *slog.Logger) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath, logger: logger}
}

// Probe inspects the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Warn("ffprobe failed",
			slog.String("path", path),
			slog.String("stderr", strings.TrimSpace(stderr.String())),
		)
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, tail(stderr.String(), 200))
	}

	return parseProbeOutput(stdout.Bytes())
}

// probeOutput mirrors the subset of ffprobe's JSON we consume. Numeric
// fields under format arrive as strings.
type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	foundVideo := false

	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.CodecName = stream.CodecName

			if stream.RFrameRate != "" {
				rate, err := ParseRational(stream.RFrameRate)
				if err != nil {
					return nil, err
				}
				info.FrameRate = rate
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if !foundVideo {
		return nil, ErrNoVideoStream
	}

	if out.Format.Duration != "" {
		duration, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", out.Format.Duration, err)
		}
		info.DurationSeconds = duration
	}

	return info, nil
}

// tail returns the last n bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
