package dto

import (
	"time"

	"github.com/quickscale/upscaler/internal/domain"
)

// VideoDTO is the JSON representation of a video job.
type VideoDTO struct {
	VideoID            string `json:"video_id"`
	Filename           string `json:"filename"`
	OriginalResolution string `json:"original_resolution,omitempty"`
	TargetResolution   string `json:"target_resolution"`
	Status             string `json:"status"`
	ErrorMessage       string `json:"error_message,omitempty"`
	UploadTime         string `json:"upload_time"`
	ProcessedTime      string `json:"processed_time,omitempty"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	VideoID            string `json:"video_id"`
	Filename           string `json:"filename"`
	OriginalResolution string `json:"original_resolution,omitempty"`
	TargetResolution   string `json:"target_resolution"`
	Status             string `json:"status"`
}

// TriggerResponse is returned by POST /api/process/:video_id.
type TriggerResponse struct {
	Message string `json:"message"`
	VideoID string `json:"video_id"`
}

// ListVideosResponse is returned by GET /api/videos.
type ListVideosResponse struct {
	Videos []VideoDTO `json:"videos"`
	Count  int        `json:"count"`
}

// FromVideo converts a domain record to its JSON shape. Timestamps are
// rendered in RFC 3339 so they round-trip through clients unchanged.
func FromVideo(v *domain.Video) VideoDTO {
	dto := VideoDTO{
		VideoID:            v.ID,
		Filename:           v.Filename,
		OriginalResolution: v.OriginalResolution,
		TargetResolution:   v.TargetResolution,
		Status:             v.Status,
		ErrorMessage:       v.ErrorMessage,
		UploadTime:         v.UploadTime.Format(time.RFC3339),
	}
	if v.ProcessedTime != nil {
		dto.ProcessedTime = v.ProcessedTime.Format(time.RFC3339)
	}
	return dto
}
