// Package worker runs verification jobs taken off the queue. Each job is
// processed start-to-finish by a single worker.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/doccheck/internal/adapters/mq/queue"
	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/logger"
	"github.com/okian/doccheck/pkg/metrics"
)

const (
	poolShutdownTimeout = 30 * time.Second
	panicReason         = "internal error"
)

// Processor verifies one person group. It never fails: problems are
// reported inside the record.
type Processor interface {
	Process(ctx context.Context, g model.PersonGroup) model.PersonVerificationRecord
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, g model.PersonGroup) model.PersonVerificationRecord

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, g model.PersonGroup) model.PersonVerificationRecord {
	return f(ctx, g)
}

// Recorder persists finished records.
type Recorder interface {
	Save(ctx context.Context, rec model.PersonVerificationRecord) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// FallbackFunc builds the record stored when processing panics.
type FallbackFunc func(personID, reason string) model.PersonVerificationRecord

// DoneFunc is called after a job's record has been saved and delivered.
type DoneFunc func(j queue.Job, rec model.PersonVerificationRecord)

// Worker processes jobs until its context is cancelled or the queue drains.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand is finished.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of a channel queue.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	recorder  Recorder
	name      string

	fallback FallbackFunc
	onDone   DoneFunc
	active   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, r Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		recorder:  r,
		name:      "worker",
		fallback: func(personID, reason string) model.PersonVerificationRecord {
			return model.DegenerateRecord(personID, reason, nil, nil)
		},
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. On shutdown the dequeue context is cancelled
// so a job the queue already handed out is put back instead of stranded.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	dequeueCtx, stop := context.WithCancel(ctx)
	defer stop()
	jobs := w.queue.Dequeue(dequeueCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.handle(ctx, j)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker. Jobs not yet taken stay in the queue
// for other workers.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// handle runs one job: process, save, reply, then notify.
func (w *InMemoryWorker) handle(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	rec := w.process(ctx, j)

	if w.recorder != nil {
		if err := w.recorder.Save(ctx, rec); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "store_error")
			w.logger.Error(ctx, "saving record failed",
				logger.String("job_id", j.ID),
				logger.String("person_id", j.Group.PersonID),
				logger.Error(err),
			)
		}
	}

	if j.Reply != nil {
		j.Reply <- rec
	}
	if w.onDone != nil {
		w.onDone(j, rec)
	}
}

// process calls the processor, turning a panic into a failed record so the
// batch keeps going.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) (rec model.PersonVerificationRecord) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic()
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Warn(ctx, "verification panicked",
				logger.String("job_id", j.ID),
				logger.String("person_id", j.Group.PersonID),
				logger.Any("panic", r),
			)
			rec = w.fallback(j.Group.PersonID, panicReason)
		}
	}()
	return w.processor.Process(ctx, j.Group)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	active    atomic.Int64
	processed atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses the
// number of CPUs.
func NewPool(workerCount int, q Queue, p Processor, r Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := make([]Option, 0, len(opts)+2)
		wopts = append(wopts, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)), pool.shared())
		pool.workers[i] = NewInMemoryWorker(q, p, r, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// shared points every worker at the pool's counters and wraps the done hook
// to count processed jobs.
func (p *Pool) shared() Option {
	return func(w *InMemoryWorker) {
		w.active = &p.active
		next := w.onDone
		w.onDone = func(j queue.Job, rec model.PersonVerificationRecord) {
			p.processed.Add(1)
			if next != nil {
				next(j, rec)
			}
		}
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs finished since the pool was created.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Active returns the number of jobs currently being processed.
func (p *Pool) Active() int64 { return p.active.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the run context is cancelled.
func (p *Pool) Wait(ctx context.Context) error {
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker did not finish", logger.Int("worker_id", i))
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown closes the queue when it supports it and waits for the workers to
// finish the jobs already queued.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	return p.Wait(shutdownCtx)
}
