package handler

import (
	"log/slog"

	"github.com/quickscale/upscaler/internal/coordinator"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Coordinator *coordinator.Coordinator
}

// VideoHandler handles video-related HTTP requests
type VideoHandler struct {
	logger      *slog.Logger
	coordinator *coordinator.Coordinator
}

// NewVideoHandler creates a new VideoHandler instance
func NewVideoHandler(deps *Dependencies) *VideoHandler {
	return &VideoHandler{
		logger:      deps.Logger,
		coordinator: deps.Coordinator,
	}
}
