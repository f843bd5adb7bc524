package download

import (
	"sync"
	"time"

	"github.com/bowenkfan/multi-dl/internal/metrics"
	"github.com/bowenkfan/multi-dl/internal/model"
)

// queue is an unbounded FIFO of jobs shared by all workers.
//
// ready holds at most one pending wake-up. push always signals, and pop
// re-signals while items remain, so a burst of pushes wakes waiting workers
// one after another without any wake-up being lost.
type queue struct {
	mu    sync.Mutex
	items []*model.Job
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(job *model.Job) {
	q.mu.Lock()
	q.items = append(q.items, job)
	n := len(q.items)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(n))
	q.signal()
}

// pop removes the oldest job without blocking.
func (q *queue) pop() (*model.Job, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	n := len(q.items)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(n))
	if n > 0 {
		q.signal()
	}
	return job, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// drain removes and returns every queued job.
func (q *queue) drain() []*model.Job {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	metrics.QueueDepth.Set(0)
	return items
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// wait blocks until a job may be available, stop is closed, or timeout
// elapses, whichever comes first.
func (q *queue) wait(stop <-chan struct{}, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.ready:
	case <-stop:
	case <-timer.C:
	}
}
