package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quickscale/upscaler/internal/domain"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	video_id            TEXT PRIMARY KEY,
	filename            TEXT NOT NULL,
	original_resolution TEXT NOT NULL DEFAULT '',
	target_resolution   TEXT NOT NULL,
	status              TEXT NOT NULL,
	error_message       TEXT NOT NULL DEFAULT '',
	upload_time         TIMESTAMPTZ NOT NULL,
	processed_time      TIMESTAMPTZ,
	source_locator      TEXT NOT NULL,
	result_locator      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_videos_upload_time ON videos (upload_time DESC, video_id DESC);
`

// PostgresStore is the durable VideoStore backed by Postgres.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureSchema creates the videos table and index if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure videos schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, video *domain.Video) error {
	query := `
		INSERT INTO videos (
			video_id, filename, original_resolution, target_resolution,
			status, error_message, upload_time, processed_time,
			source_locator, result_locator
		) VALUES (
			:video_id, :filename, :original_resolution, :target_resolution,
			:status, :error_message, :upload_time, :processed_time,
			:source_locator, :result_locator
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, video); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert video: %w", err)
	}

	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*domain.Video, error) {
	query := `
		SELECT video_id, filename, original_resolution, target_resolution,
		       status, error_message, upload_time, processed_time,
		       source_locator, result_locator
		FROM videos
		WHERE video_id = $1
	`

	var video domain.Video
	if err := s.db.GetContext(ctx, &video, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &video, nil
}

// ClaimForProcessing performs the uploaded -> processing transition as one
// conditional UPDATE. Two concurrent triggers race on this statement; the
// loser sees zero rows and a follow-up read tells not-found apart from
// wrong-state.
func (s *PostgresStore) ClaimForProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE videos
		SET status = $1
		WHERE video_id = $2
		  AND status = $3
	`

	res, err := s.db.ExecContext(ctx, query, domain.StatusProcessing, id, domain.StatusUploaded)
	if err != nil {
		return fmt.Errorf("failed to claim video: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read claim result: %w", err)
	}

	if rows == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
		s.logger.Warn("Video claim rejected - not in uploaded state",
			slog.String("video_id", id),
		)
		return domain.ErrInvalidState
	}

	s.logger.Info("Video claimed for processing",
		slog.String("video_id", id),
	)

	return nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id, resultLocator, resolution string) error {
	query := `
		UPDATE videos
		SET status = $1,
		    processed_time = NOW(),
		    result_locator = $2,
		    original_resolution = CASE
				WHEN original_resolution = '' THEN $3
				ELSE original_resolution
		    END
		WHERE video_id = $4
		  AND status = $5
	`

	return s.terminalUpdate(ctx, id, domain.StatusCompleted, query,
		domain.StatusCompleted, resultLocator, resolution, id, domain.StatusProcessing)
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id, message string) error {
	query := `
		UPDATE videos
		SET status = $1,
		    error_message = $2
		WHERE video_id = $3
		  AND status = $4
	`

	return s.terminalUpdate(ctx, id, domain.StatusError, query,
		domain.StatusError, message, id, domain.StatusProcessing)
}

// terminalUpdate runs a processing-guarded terminal write. Zero rows means
// the video was not processing: either unknown or already terminal.
func (s *PostgresStore) terminalUpdate(ctx context.Context, id, status, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark video %s: %w", status, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if rows == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidState
	}

	s.logger.Info("Video status updated",
		slog.String("video_id", id),
		slog.String("status", status),
	)

	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]domain.Video, error) {
	query := `
		SELECT video_id, filename, original_resolution, target_resolution,
		       status, error_message, upload_time, processed_time,
		       source_locator, result_locator
		FROM videos
		ORDER BY upload_time DESC, video_id DESC
		LIMIT $1
	`

	videos := []domain.Video{}
	if err := s.db.SelectContext(ctx, &videos, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	return videos, nil
}
