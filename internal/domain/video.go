package domain

import "time"

// Video status values. A video only ever moves forward:
// uploaded -> processing -> completed | error.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// TargetResolution is the single upscale target supported by the service.
const TargetResolution = "1920x1080"

// Video is the persisted job record. The repository owns this state; the
// coordinator never keeps a long-lived copy and always re-reads or updates
// the authoritative row.
type Video struct {
	ID                 string     `db:"video_id"`
	Filename           string     `db:"filename"`
	OriginalResolution string     `db:"original_resolution"`
	TargetResolution   string     `db:"target_resolution"`
	Status             string     `db:"status"`
	ErrorMessage       string     `db:"error_message"`
	UploadTime         time.Time  `db:"upload_time"`
	ProcessedTime      *time.Time `db:"processed_time"`
	SourceLocator      string     `db:"source_locator"`
	ResultLocator      string     `db:"result_locator"`
}

// IsTerminal reports whether the status permits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}
