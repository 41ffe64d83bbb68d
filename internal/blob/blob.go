// Package blob abstracts where video bytes live. Implementations store bytes
// under a generated name in a logical bucket and hand back an opaque locator,
// which may be a filesystem path or a fully-qualified URL.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Bucket is a logical grouping of stored objects.
type Bucket string

const (
	// BucketIncoming holds original uploads.
	BucketIncoming Bucket = "incoming"
	// BucketProcessed holds upscaled outputs.
	BucketProcessed Bucket = "processed"
)

// ErrNotFound is returned when a locator's bytes are absent from the backend.
var ErrNotFound = errors.New("blob not found")

// Store is the capability every component uses to persist and read file
// bytes. Locators returned by Put are opaque to callers.
type Store interface {
	// Put stores the reader's bytes under name in the given bucket and
	// returns a locator from which the bytes can be read back.
	Put(ctx context.Context, bucket Bucket, name string, r io.Reader) (string, error)

	// Open returns a reader for a locator previously returned by Put.
	// Returns ErrNotFound when the bytes are absent.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// Config selects and configures a storage backend. The backend is chosen
// once at startup; business logic never branches on the type.
type Config struct {
	Type  string      `yaml:"type"` // local, s3 or cdn
	Local LocalConfig `yaml:"local"`
	S3    S3Config    `yaml:"s3"`
	CDN   CDNConfig   `yaml:"cdn"`
}

// New builds the Store named by cfg.Type.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStore(&cfg.Local, logger)
	case "s3":
		return NewS3Store(ctx, &cfg.S3, logger)
	case "cdn":
		return NewCDNStore(&cfg.CDN, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// GenerateName produces a collision-free object name. The client-supplied
// filename contributes only its extension, never its path or stem.
func GenerateName(originalFilename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalFilename))
}

// IsRemote reports whether a locator points at a remote backend rather than
// the local filesystem.
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// openRemote fetches a remote locator over HTTP. Used by the URL-locator
// backends, whose objects are publicly addressable.
func openRemote(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s returned status %d", url, resp.StatusCode)
	}

	return resp.Body, nil
}
