package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickscale/upscaler/internal/domain"
)

func newVideo(id string, uploadTime time.Time) *domain.Video {
	return &domain.Video{
		ID:                 id,
		Filename:           "clip.mp4",
		OriginalResolution: "1280x720",
		TargetResolution:   domain.TargetResolution,
		Status:             domain.StatusUploaded,
		UploadTime:         uploadTime,
		SourceLocator:      "/data/incoming/" + id + ".mp4",
	}
}

func TestInsertAndFindRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	uploadTime := time.Date(2025, 6, 14, 10, 30, 0, 123456000, time.UTC)
	video := newVideo("vid-1", uploadTime)

	require.NoError(t, store.Insert(ctx, video))

	got, err := store.FindByID(ctx, "vid-1")
	require.NoError(t, err)

	assert.Equal(t, video.ID, got.ID)
	assert.Equal(t, video.Filename, got.Filename)
	assert.Equal(t, video.Status, got.Status)
	assert.True(t, got.UploadTime.Equal(uploadTime), "upload time must round-trip")
	assert.Nil(t, got.ProcessedTime)
}

func TestInsertDuplicateID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newVideo("vid-1", time.Now())))
	err := store.Insert(ctx, newVideo("vid-1", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}

func TestFindByIDUnknown(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrVideoNotFound)
}

func TestClaimForProcessing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newVideo("vid-1", time.Now())))

	require.NoError(t, store.ClaimForProcessing(ctx, "vid-1"))

	got, err := store.FindByID(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	// Second claim must observe the state change and fail.
	assert.ErrorIs(t, store.ClaimForProcessing(ctx, "vid-1"), domain.ErrInvalidState)

	assert.ErrorIs(t, store.ClaimForProcessing(ctx, "missing"), domain.ErrVideoNotFound)
}

func TestClaimForProcessingConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newVideo("vid-1", time.Now())))

	const attempts = 16
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.ClaimForProcessing(ctx, "vid-1")
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			assert.ErrorIs(t, err, domain.ErrInvalidState)
			rejected++
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one claim must win")
	assert.Equal(t, attempts-1, rejected)
}

func TestMarkCompleted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	video := newVideo("vid-1", time.Now())
	video.OriginalResolution = ""
	require.NoError(t, store.Insert(ctx, video))
	require.NoError(t, store.ClaimForProcessing(ctx, "vid-1"))

	require.NoError(t, store.MarkCompleted(ctx, "vid-1", "/data/processed/out.mp4", "1280x720"))

	got, err := store.FindByID(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "/data/processed/out.mp4", got.ResultLocator)
	require.NotNil(t, got.ProcessedTime)
	assert.Empty(t, got.ErrorMessage)
	// The unknown resolution is backfilled from the transcode probe.
	assert.Equal(t, "1280x720", got.OriginalResolution)
}

func TestMarkCompletedKeepsKnownResolution(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newVideo("vid-1", time.Now())))
	require.NoError(t, store.ClaimForProcessing(ctx, "vid-1"))
	require.NoError(t, store.MarkCompleted(ctx, "vid-1", "loc", "640x480"))

	got, err := store.FindByID(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, "1280x720", got.OriginalResolution)
}

func TestMarkFailed(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newVideo("vid-1", time.Now())))
	require.NoError(t, store.ClaimForProcessing(ctx, "vid-1"))

	require.NoError(t, store.MarkFailed(ctx, "vid-1", "encode failed: exit status 1"))

	got, err := store.FindByID(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, "encode failed: exit status 1", got.ErrorMessage)
	assert.Empty(t, got.ResultLocator)
	assert.Nil(t, got.ProcessedTime)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	tests := []struct {
		name     string
		finish   func(s *MemoryStore) error
		wantStat string
	}{
		{
			name: "completed stays completed",
			finish: func(s *MemoryStore) error {
				return s.MarkCompleted(context.Background(), "vid-1", "loc", "")
			},
			wantStat: domain.StatusCompleted,
		},
		{
			name: "error stays error",
			finish: func(s *MemoryStore) error {
				return s.MarkFailed(context.Background(), "vid-1", "boom")
			},
			wantStat: domain.StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			ctx := context.Background()

			require.NoError(t, store.Insert(ctx, newVideo("vid-1", time.Now())))
			require.NoError(t, store.ClaimForProcessing(ctx, "vid-1"))
			require.NoError(t, tt.finish(store))

			// No further transition may touch the record.
			assert.ErrorIs(t, store.ClaimForProcessing(ctx, "vid-1"), domain.ErrInvalidState)
			assert.ErrorIs(t, store.MarkCompleted(ctx, "vid-1", "other", ""), domain.ErrInvalidState)
			assert.ErrorIs(t, store.MarkFailed(ctx, "vid-1", "late"), domain.ErrInvalidState)

			got, err := store.FindByID(ctx, "vid-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStat, got.Status)
		})
	}
}

func TestListRecent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		video := newVideo(fmt.Sprintf("vid-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Insert(ctx, video))
	}

	videos, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, videos, 3)

	assert.Equal(t, "vid-4", videos[0].ID)
	assert.Equal(t, "vid-3", videos[1].ID)
	assert.Equal(t, "vid-2", videos[2].ID)
}

func TestListRecentEmpty(t *testing.T) {
	store := NewMemoryStore()

	videos, err := store.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, videos)
}
