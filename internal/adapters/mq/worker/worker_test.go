package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/petgotchi/petgotchi/internal/adapters/mq/queue"
	worker "github.com/petgotchi/petgotchi/internal/adapters/mq/worker"
	logging "github.com/petgotchi/petgotchi/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

type recordingProcessor struct {
	mu      sync.Mutex
	seen    []string
	fail    map[string]error
	delay   time.Duration
	running atomic.Int64
	peak    atomic.Int64
}

func (r *recordingProcessor) Process(ctx context.Context, job queue.Job) error {
	n := r.running.Add(1)
	defer r.running.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.seen = append(r.seen, job.UserID)
	r.mu.Unlock()
	return r.fail[job.UserID]
}

func fill(q *queue.InMemoryQueue, ids ...string) {
	for _, id := range ids {
		q.Enqueue(context.Background(), queue.Job{UserID: id, EnqueuedAt: time.Now()})
	}
	_ = q.Close()
}

func TestPool(t *testing.T) {
	convey.Convey("Given a closed queue of jobs and a pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		fill(q, "a", "b", "c", "d", "e", "f")
		proc := &recordingProcessor{
			fail:  map[string]error{"c": errors.New("feed down")},
			delay: 10 * time.Millisecond,
		}
		pool := worker.NewPool(2, q, proc)

		convey.Convey("When the pool runs to completion", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			pool.Start(ctx)
			err := pool.Wait(ctx)

			convey.Convey("Then every job ran once despite failures", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(proc.seen), convey.ShouldEqual, 6)
				convey.So(proc.seen, convey.ShouldContain, "f")
			})

			convey.Convey("Then parallelism stayed within the pool size", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 2)
				convey.So(proc.peak.Load(), convey.ShouldBeLessThanOrEqualTo, 2)
			})
		})
	})

	convey.Convey("Given a pool with a non-positive size", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, worker.ProcessorFunc(func(context.Context, queue.Job) error { return nil }))
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a worker on an open queue", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(func(context.Context, queue.Job) error { return nil }),
			worker.WithName("test-worker"))
		go w.Run(context.Background())

		convey.Convey("When it is shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}
