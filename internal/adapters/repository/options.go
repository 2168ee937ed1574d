package repository

import "time"

type options struct {
	capacity    int
	busyTimeout time.Duration
}

// Option configures a store.
type Option func(*options)

// WithCapacity pre-sizes the in-memory store for the expected number of persons.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}
