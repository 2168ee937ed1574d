// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the batch runner.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	jobqueue "github.com/okian/doccheck/internal/adapters/mq/queue"
	workerpool "github.com/okian/doccheck/internal/adapters/mq/worker"
	repository "github.com/okian/doccheck/internal/adapters/repository"
	"github.com/okian/doccheck/internal/domain/dedupe"
	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/rules"
	"github.com/okian/doccheck/pkg/logger"
	"github.com/okian/doccheck/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service verifies persons through a bounded job queue and a worker pool and
// keeps every finished record in a store.
type Service struct {
	mu sync.RWMutex

	// Core components
	orchestrator *Orchestrator
	store        repository.Store
	deduper      dedupe.Deduper
	queue        jobqueue.Queue
	workerPool   *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	dataDir     string

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOrchestrator sets the per-person pipeline.
func WithOrchestrator(o *Orchestrator) Option {
	return func(s *Service) {
		if o != nil {
			s.orchestrator = o
		}
	}
}

// WithStore sets where finished records are kept.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many in-flight person ids are tracked.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDataDir confines Submit sources to root. Without it Submit is refused.
func WithDataDir(root string) Option {
	return func(s *Service) {
		s.dataDir = root
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  10_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. Workers keep running
// until Stop, even if ctx is cancelled earlier.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting verification service...")

	if s.orchestrator == nil {
		o, err := NewOrchestrator()
		if err != nil {
			return err
		}
		s.orchestrator = o
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory record store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.orchestrator, s.store,
		workerpool.WithFallback(s.orchestrator.Degenerate),
		workerpool.WithOnDone(s.release),
	)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "verification service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service: queued jobs are finished, then the
// store is closed.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping verification service...")

	if s.workerPool != nil {
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		if err := s.workerPool.Shutdown(stopCtx); err != nil {
			s.logger.Warn(ctx, "workers did not drain in time", logger.Error(err))
		}
		cancel()
	}
	if s.cancel != nil {
		s.cancel()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing record store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "verification service stopped")
}

// release frees the dedupe key of a finished asynchronous job.
func (s *Service) release(j jobqueue.Job, _ model.PersonVerificationRecord) { //nolint:gocritic // hugeParam
	if j.Key != "" {
		s.deduper.Unrecord(context.Background(), j.Key)
	}
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// RunBatch verifies every group and returns the records in input order. If
// ctx is cancelled no further groups are enqueued and the records completed
// so far are returned together with the context error.
func (s *Service) RunBatch(ctx context.Context, groups []model.PersonGroup) ([]model.PersonVerificationRecord, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}

	replies := make([]chan model.PersonVerificationRecord, 0, len(groups))
	var runErr error
	for i, g := range groups {
		reply := make(chan model.PersonVerificationRecord, 1)
		if err := s.queue.EnqueueWait(ctx, jobqueue.NewJob(i, g, reply)); err != nil {
			runErr = err
			break
		}
		replies = append(replies, reply)
	}

	out := make([]model.PersonVerificationRecord, 0, len(groups))
	for _, reply := range replies {
		if runErr == nil {
			select {
			case rec := <-reply:
				out = append(out, rec)
				continue
			case <-ctx.Done():
				runErr = ctx.Err()
			}
		}
		select {
		case rec := <-reply:
			out = append(out, rec)
		default:
		}
	}

	if runErr != nil {
		s.logger.Warn(ctx, "batch interrupted",
			logger.Int("groups", len(groups)),
			logger.Int("completed", len(out)),
			logger.Error(runErr),
		)
	}
	return out, runErr
}

// Submit queues a person for asynchronous verification and returns the job
// id. A person already queued or in progress is rejected with ErrDuplicateJob.
// Relative sources are taken relative to the data directory and every source
// must resolve inside it.
func (s *Service) Submit(ctx context.Context, g model.PersonGroup) (string, error) {
	if !s.running() {
		return "", ErrNotStarted
	}
	if g.PersonID == "" {
		return "", model.ErrEmptyPersonID
	}
	sources, err := confineSources(s.dataDir, g.Sources)
	if err != nil {
		s.logger.Warn(ctx, "rejected job sources", logger.String("person_id", g.PersonID), logger.Error(err))
		return "", err
	}
	g.Sources = sources

	if s.deduper.SeenAndRecord(ctx, g.PersonID) {
		metrics.RecordJobDuplicate()
		s.logger.Debug(ctx, "duplicate job detected, skipping", logger.String("person_id", g.PersonID))
		return "", ErrDuplicateJob
	}

	job := jobqueue.NewJob(0, g, nil)
	job.Key = g.PersonID
	if !s.queue.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, g.PersonID)
		if s.queue.IsClosed() {
			return "", jobqueue.ErrQueueClosed
		}
		return "", ErrQueueFull
	}
	return job.ID, nil
}

// Verify evaluates already-extracted documents synchronously and stores the
// record.
func (s *Service) Verify(ctx context.Context, personID string, docs []model.Document, opts ...rules.EvalOption) (model.PersonVerificationRecord, error) {
	if !s.running() {
		return model.PersonVerificationRecord{}, ErrNotStarted
	}

	rec, err := s.orchestrator.Verify(ctx, personID, docs, opts...)
	if err != nil {
		return model.PersonVerificationRecord{}, err
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error(ctx, "saving record failed", logger.String("person_id", personID), logger.Error(err))
		return rec, err
	}
	return rec, nil
}

// Record returns the stored record of a person.
func (s *Service) Record(ctx context.Context, personID string) (model.PersonVerificationRecord, error) {
	if !s.running() {
		return model.PersonVerificationRecord{}, ErrNotStarted
	}
	return s.store.Get(ctx, personID)
}

// Records returns every stored record in first-saved order.
func (s *Service) Records(ctx context.Context) ([]model.PersonVerificationRecord, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx)
}

// IsNotFound reports whether err means an unknown person.
func IsNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		records := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["inFlight"] = s.deduper.Size()
		stats["records"] = records
		stats["processed"] = s.workerPool.Processed()
		stats["active"] = s.workerPool.Active()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoreRecords(records)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
