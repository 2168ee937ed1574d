package queue

import "errors"

// ErrQueueClosed is returned when enqueuing into a closed queue.
var ErrQueueClosed = errors.New("queue closed")
