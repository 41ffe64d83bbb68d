package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// CDNConfig holds settings for an HTTP-ingest CDN backend.
type CDNConfig struct {
	// UploadURL is the CDN ingest endpoint accepting multipart uploads.
	UploadURL string `yaml:"upload_url"`
	// APIKey authenticates the upload request.
	APIKey string `yaml:"api_key"`
	// Timeout bounds a single upload request.
	Timeout time.Duration `yaml:"timeout"`
}

// CDNStore pushes objects to a CDN over a multipart HTTP upload and reads
// them back through the returned delivery URL.
type CDNStore struct {
	uploadURL string
	apiKey    string
	httpc     *http.Client
	logger    *slog.Logger
}

// NewCDNStore validates the configuration and returns the store.
func NewCDNStore(cfg *CDNConfig, logger *slog.Logger) (*CDNStore, error) {
	if cfg.UploadURL == "" {
		return nil, fmt.Errorf("cdn upload_url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	logger.Info("CDN blob store initialized",
		slog.String("upload_url", cfg.UploadURL),
	)

	return &CDNStore{
		uploadURL: cfg.UploadURL,
		apiKey:    cfg.APIKey,
		httpc:     &http.Client{Timeout: timeout},
		logger:    logger,
	}, nil
}

// cdnUploadResponse is the subset of the ingest response we care about.
type cdnUploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Put streams the bytes as a multipart upload and returns the delivery URL.
func (s *CDNStore) Put(ctx context.Context, bucket Bucket, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("folder", string(bucket)); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("public_id", strings.TrimSuffix(name, filepath.Ext(name))); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("failed to build cdn upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn upload failed: %w", err)
	}
	defer resp.Body.Close()

	var body cdnUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode cdn response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := body.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("cdn upload rejected: %s", msg)
	}

	if body.SecureURL == "" {
		return "", fmt.Errorf("cdn response missing secure_url")
	}

	s.logger.Debug("Blob stored",
		slog.String("bucket", string(bucket)),
		slog.String("locator", body.SecureURL),
	)

	return body.SecureURL, nil
}

// Open fetches the object through its delivery URL.
func (s *CDNStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return openRemote(ctx, s.httpc, locator)
}
