package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quickscale/upscaler/internal/domain"
)

// MemoryStore is an in-memory VideoStore with the same contract as the
// Postgres implementation. It backs tests and lets the coordinator be
// exercised without a database.
type MemoryStore struct {
	mu     sync.Mutex
	videos map[string]*domain.Video
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{videos: make(map[string]*domain.Video)}
}

func (s *MemoryStore) Insert(ctx context.Context, video *domain.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.videos[video.ID]; exists {
		return domain.ErrDuplicateID
	}

	copied := *video
	s.videos[video.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}

	copied := *video
	return &copied, nil
}

func (s *MemoryStore) ClaimForProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return domain.ErrVideoNotFound
	}

	if video.Status != domain.StatusUploaded {
		return domain.ErrInvalidState
	}

	video.Status = domain.StatusProcessing
	return nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, id, resultLocator, resolution string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return domain.ErrVideoNotFound
	}

	if video.Status != domain.StatusProcessing {
		return domain.ErrInvalidState
	}

	now := time.Now().UTC()
	video.Status = domain.StatusCompleted
	video.ProcessedTime = &now
	video.ResultLocator = resultLocator
	if video.OriginalResolution == "" {
		video.OriginalResolution = resolution
	}

	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return domain.ErrVideoNotFound
	}

	if video.Status != domain.StatusProcessing {
		return domain.ErrInvalidState
	}

	video.Status = domain.StatusError
	video.ErrorMessage = message

	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := make([]domain.Video, 0, len(s.videos))
	for _, video := range s.videos {
		videos = append(videos, *video)
	}

	sort.Slice(videos, func(i, j int) bool {
		if !videos[i].UploadTime.Equal(videos[j].UploadTime) {
			return videos[i].UploadTime.After(videos[j].UploadTime)
		}
		return videos[i].ID > videos[j].ID
	})

	if len(videos) > limit {
		videos = videos[:limit]
	}

	return videos, nil
}
