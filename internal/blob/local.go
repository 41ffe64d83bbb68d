package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalConfig holds local filesystem backend settings.
type LocalConfig struct {
	// BaseDir is the directory under which one subdirectory per bucket is
	// created.
	BaseDir string `yaml:"base_dir"`
}

// LocalStore keeps objects on the local filesystem, one directory per
// bucket. Locators are absolute paths.
type LocalStore struct {
	baseDir string
	logger  *slog.Logger
}

// NewLocalStore creates the bucket directories and returns the store.
func NewLocalStore(cfg *LocalConfig, logger *slog.Logger) (*LocalStore, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "data"
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}

	for _, bucket := range []Bucket{BucketIncoming, BucketProcessed} {
		if err := os.MkdirAll(filepath.Join(abs, string(bucket)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create bucket dir %s: %w", bucket, err)
		}
	}

	logger.Info("Local blob store initialized",
		slog.String("base_dir", abs),
	)

	return &LocalStore{baseDir: abs, logger: logger}, nil
}

// Put writes the bytes to <base>/<bucket>/<name> and returns the absolute path.
func (s *LocalStore) Put(ctx context.Context, bucket Bucket, name string, r io.Reader) (string, error) {
	path := filepath.Join(s.baseDir, string(bucket), name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	s.logger.Debug("Blob stored",
		slog.String("bucket", string(bucket)),
		slog.String("locator", path),
	)

	return path, nil
}

// Open opens the file at the locator path.
func (s *LocalStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	f, err := os.Open(locator)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", locator, err)
	}
	return f, nil
}
