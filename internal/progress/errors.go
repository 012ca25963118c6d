package progress

import "errors"

var (
	// ErrCorrupt indicates the progress file exists but is not valid JSON.
	ErrCorrupt = errors.New("progress: file is corrupt")

	// ErrPersist indicates progress could not be written to disk.
	// The run must stop: continuing would import days it cannot record.
	ErrPersist = errors.New("progress: cannot persist")

	// ErrLocked indicates another process owns the progress file.
	ErrLocked = errors.New("progress: already in use by another process")
)
