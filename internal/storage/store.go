// Package storage persists video job records. The store's atomic updates are
// the only serialization point for the job state machine; callers never
// read-modify-write whole records.
package storage

import (
	"context"

	"github.com/quickscale/upscaler/internal/domain"
)

// VideoStore is the repository capability the coordinator depends on. A
// Postgres implementation backs production; an in-memory implementation
// backs tests.
type VideoStore interface {
	// Insert adds a new record. Returns domain.ErrDuplicateID when the id
	// already exists.
	Insert(ctx context.Context, video *domain.Video) error

	// FindByID returns the record or domain.ErrVideoNotFound.
	FindByID(ctx context.Context, id string) (*domain.Video, error)

	// ClaimForProcessing atomically transitions uploaded -> processing.
	// Returns domain.ErrVideoNotFound when the id is unknown and
	// domain.ErrInvalidState when the video is not in the uploaded state.
	// This single atomic step is what makes concurrent triggers safe.
	ClaimForProcessing(ctx context.Context, id string) error

	// MarkCompleted writes the terminal completed state: result locator,
	// processed time, and the source resolution when it was unknown at
	// upload. Only applies to videos currently processing; returns
	// domain.ErrInvalidState otherwise so terminal states stay terminal.
	MarkCompleted(ctx context.Context, id, resultLocator, resolution string) error

	// MarkFailed writes the terminal error state. Same processing-only
	// guard as MarkCompleted.
	MarkFailed(ctx context.Context, id, message string) error

	// ListRecent returns up to limit records, newest upload first.
	ListRecent(ctx context.Context, limit int) ([]domain.Video, error)
}
