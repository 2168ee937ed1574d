// Package queue defines the contract for enqueuing and consuming verification
// jobs. The in-memory implementation is a bounded buffered channel.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job asks a worker to verify one person. Reply, when set, receives the
// finished record exactly once and must be buffered. Key, when set, is the
// deduplication key released once the job is finished.
type Job struct {
	ID         string
	Index      int
	Key        string
	Group      model.PersonGroup
	Reply      chan<- model.PersonVerificationRecord
	EnqueuedAt time.Time
}

// NewJob builds a job with a fresh id for the given person group.
func NewJob(index int, g model.PersonGroup, reply chan<- model.PersonVerificationRecord) Job {
	return Job{
		ID:         uuid.NewString(),
		Index:      index,
		Group:      g,
		Reply:      reply,
		EnqueuedAt: time.Now(),
	}
}

// Queue provides non-blocking and blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a job without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// EnqueueWait blocks until the job is accepted, ctx is done or the queue
	// is closed.
	EnqueueWait(ctx context.Context, j Job) error

	// Dequeue returns a channel that will receive jobs as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting jobs. Already queued jobs are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a job to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected("closed")
		return false
	}

	select {
	case <-ctx.Done():
		q.rejected("context_cancelled")
		return false
	default:
	}

	select {
	case q.jobs <- j:
		q.accepted()
		return true
	default:
		q.rejected("queue_full")
		return false
	}
}

// EnqueueWait adds a job, waiting for room.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected("closed")
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		q.rejected("context_cancelled")
		return err
	}

	select {
	case q.jobs <- j:
		q.accepted()
		return nil
	case <-ctx.Done():
		q.rejected("context_cancelled")
		return ctx.Err()
	case <-q.done:
		q.rejected("closed")
		return ErrQueueClosed
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				q.updateGauges()
			case <-ctx.Done():
				q.requeue(j)
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.updateGauges()
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		// release blocked EnqueueWait callers before taking the write lock
		close(q.done)
		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed = true
		close(q.jobs)
	})
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// requeue hands a job taken by a cancelled consumer back to the queue so
// another consumer can take it. It is dropped if the queue is closed or full.
func (q *InMemoryQueue) requeue(j Job) { //nolint:gocritic // hugeParam
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.jobs <- j:
	default:
		metrics.RecordErrorByComponent("queue", "requeue_dropped")
	}
}

func (q *InMemoryQueue) accepted() {
	metrics.RecordQueueEnqueue()
	q.updateGauges()
}

func (q *InMemoryQueue) rejected(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

func (q *InMemoryQueue) updateGauges() int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}
