package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/doccheck/internal/adapters/mq/queue"
	worker "github.com/okian/doccheck/internal/adapters/mq/worker"
	model "github.com/okian/doccheck/internal/domain/model"
	logging "github.com/okian/doccheck/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockRecorder struct {
	mu      sync.Mutex
	records map[string]model.PersonVerificationRecord
	err     error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{records: make(map[string]model.PersonVerificationRecord)}
}

func (r *mockRecorder) Save(_ context.Context, rec model.PersonVerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records[rec.PersonID] = rec
	return nil
}

func (r *mockRecorder) get(id string) (model.PersonVerificationRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

func (r *mockRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func verified(_ context.Context, g model.PersonGroup) model.PersonVerificationRecord {
	if g.PersonID == "boom" {
		panic("extractor exploded")
	}
	return model.PersonVerificationRecord{
		PersonID:            g.PersonID,
		VerificationResults: model.RuleResults{{Name: "name_match", Status: model.StatusPass}},
		OverallStatus:       model.Verified,
	}
}

func group(id string) model.PersonGroup {
	return model.PersonGroup{PersonID: id, Sources: []string{id + "_1.txt"}}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		rec := newMockRecorder()

		convey.Convey("When creating a worker with options", func() {
			w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(verified), rec, worker.WithName("test-worker"))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			var doneMu sync.Mutex
			var finished []string
			w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(verified), rec,
				worker.WithOnDone(func(j queue.Job, _ model.PersonVerificationRecord) {
					doneMu.Lock()
					finished = append(finished, j.Group.PersonID)
					doneMu.Unlock()
				}),
				worker.WithFallback(func(personID, reason string) model.PersonVerificationRecord {
					return model.DegenerateRecord(personID, reason, []string{"name_match"}, nil)
				}),
			)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job carries a reply channel", func() {
				reply := make(chan model.PersonVerificationRecord, 1)
				q.jobs <- queue.NewJob(0, group("john"), reply)

				var got model.PersonVerificationRecord
				select {
				case got = <-reply:
				case <-time.After(time.Second):
					t.Fatal("no reply")
				}

				convey.Convey("Then the record is saved before it is delivered", func() {
					convey.So(got.OverallStatus, convey.ShouldEqual, model.Verified)
					saved, ok := rec.get("john")
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(saved.OverallStatus, convey.ShouldEqual, model.Verified)
				})
			})

			convey.Convey("And processing panics", func() {
				reply := make(chan model.PersonVerificationRecord, 1)
				q.jobs <- queue.NewJob(0, group("boom"), reply)
				got := <-reply

				convey.Convey("Then a failed record is produced and the worker keeps going", func() {
					convey.So(got.OverallStatus, convey.ShouldEqual, model.Failed)
					convey.So(got.Error, convey.ShouldEqual, "internal error")
					convey.So(got.VerificationResults, convey.ShouldHaveLength, 1)

					next := make(chan model.PersonVerificationRecord, 1)
					q.jobs <- queue.NewJob(1, group("jane"), next)
					convey.So((<-next).OverallStatus, convey.ShouldEqual, model.Verified)
				})
			})

			convey.Convey("And the done hook runs after the reply", func() {
				reply := make(chan model.PersonVerificationRecord, 1)
				q.jobs <- queue.NewJob(0, group("hook"), reply)
				<-reply
				time.Sleep(20 * time.Millisecond)

				doneMu.Lock()
				defer doneMu.Unlock()
				convey.So(finished, convey.ShouldContain, "hook")
			})
		})

		convey.Convey("When the recorder fails", func() {
			rec.err = errors.New("disk full")
			w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(verified), rec)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			reply := make(chan model.PersonVerificationRecord, 1)
			q.jobs <- queue.NewJob(0, group("john"), reply)

			convey.Convey("Then the record is still delivered", func() {
				convey.So((<-reply).PersonID, convey.ShouldEqual, "john")
				convey.So(rec.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down", func() {
			w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(verified), rec)
			go w.Run(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then Shutdown returns once the loop exits", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestInMemoryWorkerShutdownKeepsJobs(t *testing.T) {
	convey.Convey("Given an idle worker on a real queue that is shut down", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		rec := newMockRecorder()
		first := worker.NewInMemoryWorker(q, worker.ProcessorFunc(verified), rec)
		go first.Run(context.Background())
		time.Sleep(20 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		convey.So(first.Shutdown(ctx), convey.ShouldBeNil)

		convey.Convey("When a job arrives afterwards", func() {
			reply := make(chan model.PersonVerificationRecord, 1)
			convey.So(q.EnqueueWait(ctx, queue.NewJob(0, group("late"), reply)), convey.ShouldBeNil)
			time.Sleep(20 * time.Millisecond)

			second := worker.NewInMemoryWorker(q, worker.ProcessorFunc(verified), rec)
			runCtx, stop := context.WithCancel(context.Background())
			defer stop()
			go second.Run(runCtx)

			convey.Convey("Then another worker still processes it and replies", func() {
				select {
				case got := <-reply:
					convey.So(got.PersonID, convey.ShouldEqual, "late")
				case <-time.After(2 * time.Second):
					t.Fatal("job was stranded by the stopped worker")
				}
				_, ok := rec.get("late")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := newMockRecorder()
		pool := worker.NewPool(4, q, worker.ProcessorFunc(verified), rec)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(ctx)

		convey.Convey("When many jobs are enqueued and the pool shuts down", func() {
			const n = 50
			for i := 0; i < n; i++ {
				convey.So(q.EnqueueWait(ctx, queue.NewJob(i, group(fmt.Sprintf("p-%02d", i)), nil)), convey.ShouldBeNil)
			}
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then every queued job is processed exactly once", func() {
				convey.So(rec.count(), convey.ShouldEqual, n)
				convey.So(pool.Processed(), convey.ShouldEqual, n)
				convey.So(pool.Active(), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), worker.ProcessorFunc(verified), nil)

		convey.Convey("Then it falls back to one worker per CPU", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
