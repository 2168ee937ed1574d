package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrDuplicateJob = errors.New("person is already being verified")
	ErrQueueFull    = errors.New("job queue is full")
	ErrNoDataDir    = errors.New("no data directory configured for jobs")
	ErrOutsideData  = errors.New("source is outside the data directory")
)
