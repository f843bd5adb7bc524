package download

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/metrics"
	"github.com/bowenkfan/multi-dl/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval bounds how long an idle worker blocks on the queue
// before checking again.
const DefaultPollInterval = 5 * time.Second

// runFunc executes one job. It must not return before the job is terminal.
type runFunc func(ctx context.Context, job *model.Job)

// pool is a resizable set of workers draining a shared queue.
//
// Growing spawns workers immediately. Shrinking signals the oldest workers
// to stop; a signalled worker finishes the job it is running and never
// claims another one.
type pool struct {
	queue    *queue
	run      runFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	group   *errgroup.Group
	started bool
	stopped bool
	target  int
	workers []*worker // active workers, oldest first
	nextID  int
	live    int
	running int
}

type worker struct {
	id       int
	stop     chan struct{}
	stopping bool
}

// newPool creates a pool of size workers. Workers are not started until
// Start is called.
func newPool(q *queue, size int, interval time.Duration, run runFunc, logger *slog.Logger) *pool {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &pool{
		queue:    q,
		run:      run,
		interval: interval,
		logger:   logger,
		target:   size,
	}
}

// Start spawns the workers. ctx is handed to every job run.
func (p *pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pool already started")
	}
	p.started = true
	p.ctx = ctx
	p.group = &errgroup.Group{}
	p.converge()
	return nil
}

// Resize changes the target worker count.
func (p *pool) Resize(n int) error {
	if err := config.ValidateWorkerCount(n); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.target != n {
		p.logger.Info("resizing worker pool", "from", p.target, "to", n)
	}
	p.target = n
	metrics.Workers.Set(float64(n))

	if p.started && !p.stopped {
		p.converge()
	}
	return nil
}

// converge spawns or signals workers until the active set matches the
// target. Callers hold p.mu.
func (p *pool) converge() {
	for len(p.workers) < p.target {
		p.spawn()
	}

	if excess := len(p.workers) - p.target; excess > 0 {
		for _, w := range p.workers[:excess] {
			p.signal(w)
		}
		p.workers = append([]*worker(nil), p.workers[excess:]...)
	}
}

func (p *pool) spawn() {
	w := &worker{id: p.nextID, stop: make(chan struct{})}
	p.nextID++
	p.workers = append(p.workers, w)
	p.live++

	p.group.Go(func() error {
		p.work(w)
		return nil
	})
}

func (p *pool) signal(w *worker) {
	if w.stopping {
		return
	}
	w.stopping = true
	close(w.stop)
}

func (p *pool) work(w *worker) {
	p.logger.Debug("worker started", "worker", w.id)
	defer func() {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		p.logger.Debug("worker stopped", "worker", w.id)
	}()

	for {
		job, alive := p.claim(w)
		if !alive {
			return
		}
		if job == nil {
			p.queue.wait(w.stop, p.interval)
			continue
		}

		p.run(p.ctx, job)

		p.mu.Lock()
		p.running--
		p.mu.Unlock()
		metrics.JobsRunning.Dec()
	}
}

// claim takes the next job for w. alive is false once w has been told to
// stop; the check and the pop happen under the same lock as Resize, so a
// signalled worker can never pick up another job.
func (p *pool) claim(w *worker) (job *model.Job, alive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w.stopping || p.stopped {
		// w may have consumed the queue's wake-up; hand it on.
		if !p.stopped && p.queue.len() > 0 {
			p.queue.signal()
		}
		return nil, false
	}

	job, ok := p.queue.pop()
	if !ok {
		return nil, true
	}
	p.running++
	metrics.JobsRunning.Inc()
	return job, true
}

// Stop signals every worker and waits for them to exit. Running jobs are
// allowed to finish; queued jobs stay in the queue. If ctx ends first its
// error is returned and the workers keep draining in the background.
func (p *pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	for _, w := range p.workers {
		p.signal(w)
	}
	p.workers = nil
	group := p.group
	p.mu.Unlock()

	if group == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the target worker count.
func (p *pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Active returns the number of workers that have not been told to stop.
func (p *pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Live returns the number of worker goroutines still running, including
// signalled workers finishing their last job.
func (p *pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Running returns the number of jobs currently executing.
func (p *pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
