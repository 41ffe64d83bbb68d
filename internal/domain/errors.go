package domain

import "errors"

var (
	// ErrVideoNotFound is returned when a video id has no record.
	ErrVideoNotFound = errors.New("video not found")

	// ErrDuplicateID is returned when inserting a record whose id already
	// exists. Ids are generated, so seeing this indicates an internal bug.
	ErrDuplicateID = errors.New("duplicate video id")

	// ErrInvalidState is returned when an operation is not valid for the
	// video's current status, e.g. triggering processing twice.
	ErrInvalidState = errors.New("operation not valid for current video status")

	// ErrEmptyUpload is returned when an upload carries no file content.
	ErrEmptyUpload = errors.New("no file content supplied")

	// ErrNotReady is returned when a download is requested before the video
	// has completed processing.
	ErrNotReady = errors.New("video not ready for download")
)
