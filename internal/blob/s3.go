package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the S3 backend settings. Credentials come from the default
// AWS credential chain (environment, shared config, instance role).
type S3Config struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`
}

// S3Store keeps objects in a single S3 bucket, with the logical bucket as a
// key prefix. Locators are public object URLs.
type S3Store struct {
	client *s3.Client
	httpc  *http.Client
	bucket string
	region string
	logger *slog.Logger
}

// NewS3Store loads the AWS configuration and returns the store.
func NewS3Store(ctx context.Context, cfg *S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("S3 blob store initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("region", cfg.Region),
	)

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		httpc:  http.DefaultClient,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// Put uploads the bytes under <bucket-prefix>/<name> and returns the public
// object URL.
func (s *S3Store) Put(ctx context.Context, bucket Bucket, name string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%s/%s", bucket, name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3: %w", key, err)
	}

	locator := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)

	s.logger.Debug("Blob stored",
		slog.String("bucket", string(bucket)),
		slog.String("locator", locator),
	)

	return locator, nil
}

// Open fetches the object through its public URL.
func (s *S3Store) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return openRemote(ctx, s.httpc, locator)
}
