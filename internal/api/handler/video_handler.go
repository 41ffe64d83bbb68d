package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quickscale/upscaler/internal/api/dto"
	"github.com/quickscale/upscaler/internal/domain"
)

// UploadVideo handles POST /api/upload
// Accepts a multipart file and creates a new video job in the uploaded state.
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing file in upload request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No file provided",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read upload",
		})
		return
	}
	defer file.Close()

	// Base strips any client-supplied directory components.
	filename := filepath.Base(fileHeader.Filename)

	video, err := h.coordinator.Create(c.Request.Context(), filename, file)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyUpload) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Uploaded file is empty",
			})
			return
		}
		h.logger.Error("Failed to create video", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store upload",
		})
		return
	}

	c.JSON(http.StatusOK, dto.UploadResponse{
		VideoID:            video.ID,
		Filename:           video.Filename,
		OriginalResolution: video.OriginalResolution,
		TargetResolution:   video.TargetResolution,
		Status:             video.Status,
	})
}

// TriggerProcessing handles POST /api/process/:video_id
// Transitions the video to processing and queues the background upscale.
func (h *VideoHandler) TriggerProcessing(c *gin.Context) {
	videoID := c.Param("video_id")
	if _, err := uuid.Parse(videoID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "video_id must be a valid UUID",
		})
		return
	}

	if err := h.coordinator.Trigger(c.Request.Context(), videoID); err != nil {
		switch {
		case errors.Is(err, domain.ErrVideoNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Video not found",
			})
		case errors.Is(err, domain.ErrInvalidState):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Video is not in uploaded state",
			})
		default:
			h.logger.Error("Failed to trigger processing",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to start processing",
			})
		}
		return
	}

	c.JSON(http.StatusOK, dto.TriggerResponse{
		Message: "Processing started",
		VideoID: videoID,
	})
}

// GetStatus handles GET /api/status/:video_id
func (h *VideoHandler) GetStatus(c *gin.Context) {
	videoID := c.Param("video_id")

	video, err := h.coordinator.Get(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, domain.ErrVideoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Video not found",
			})
			return
		}
		h.logger.Error("Failed to get video",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get video",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromVideo(video))
}

// ListVideos handles GET /api/videos
// Returns the most recent videos, newest upload first.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := h.coordinator.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list videos", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list videos",
		})
		return
	}

	response := make([]dto.VideoDTO, len(videos))
	for i := range videos {
		response[i] = dto.FromVideo(&videos[i])
	}

	c.JSON(http.StatusOK, dto.ListVideosResponse{
		Videos: response,
		Count:  len(response),
	})
}

// DownloadVideo handles GET /api/download/:video_id
// Streams a locally stored result, or redirects to a remote one.
func (h *VideoHandler) DownloadVideo(c *gin.Context) {
	videoID := c.Param("video_id")

	info, reader, err := h.coordinator.Download(c.Request.Context(), videoID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVideoNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Video not found",
			})
		case errors.Is(err, domain.ErrNotReady):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Video is not ready for download",
			})
		default:
			h.logger.Error("Failed to resolve download",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to download video",
			})
		}
		return
	}

	if info.Remote {
		c.Redirect(http.StatusFound, info.Locator)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+info.Filename+`"`)
	c.Header("Content-Type", "video/mp4")
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		h.logger.Error("Failed while streaming video",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
	}
}
