package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/engine"
	"github.com/bowenkfan/multi-dl/internal/metrics"
	"github.com/bowenkfan/multi-dl/internal/model"
)

type managerState int

const (
	stateInitialized managerState = iota
	stateRunning
	stateClosed
)

// ConfigUpdate holds the fields to change. Nil fields are left as they are.
type ConfigUpdate struct {
	WorkerCount       *int
	DownloadDirectory *string
	WorkDirectory     *string
}

// Stats is a summary of the manager's jobs and workers.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Workers   int `json:"workers"`
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	pollInterval time.Duration
	post         []PostProcessor
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithPostProcessor adds a step that runs after each successful download.
func WithPostProcessor(p PostProcessor) Option {
	return func(o *options) { o.post = append(o.post, p) }
}

// Manager owns the job queue, the worker pool and the download
// configuration.
type Manager struct {
	exec   *Executor
	queue  *queue
	pool   *pool
	logger *slog.Logger

	mu       sync.RWMutex
	settings config.Settings
	state    managerState
	jobs     []*model.Job
	index    map[string]*model.Job
	pending  int
	idle     chan struct{}
	closed   chan struct{}
	cancel   context.CancelFunc

	// submits counts Submit calls between the closed check and the push.
	submits sync.WaitGroup

	subMu   sync.RWMutex
	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn func(model.Event)
}

// NewManager creates a manager from settings. The settings are copied;
// later changes go through UpdateConfiguration.
func NewManager(settings *config.Settings, eng engine.Engine, opts ...Option) (*Manager, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if eng == nil {
		return nil, errors.New("nil engine")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default(), pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	idle := make(chan struct{})
	close(idle)

	m := &Manager{
		exec:     NewExecutor(eng, o.logger, o.post...),
		queue:    newQueue(),
		logger:   o.logger,
		settings: *settings,
		index:    make(map[string]*model.Job),
		idle:     idle,
		closed:   make(chan struct{}),
	}
	m.settings.DownloadDirectory = config.ExpandPath(m.settings.DownloadDirectory)
	m.settings.WorkDirectory = config.ExpandPath(m.settings.WorkDirectory)
	m.pool = newPool(m.queue, settings.WorkerCount, o.pollInterval, m.execute, o.logger)
	metrics.Workers.Set(float64(settings.WorkerCount))

	return m, nil
}

// Start launches the workers. Jobs submitted before Start wait in the
// queue. Cancelling ctx aborts in-flight engine calls; use Close for a
// graceful shutdown.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateInitialized {
		return errors.New("download manager already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := m.pool.Start(runCtx); err != nil {
		cancel()
		return err
	}
	m.cancel = cancel
	m.state = stateRunning
	m.logger.Info("download manager started", "workers", m.settings.WorkerCount)
	return nil
}

// Submit queues a download of source and returns its job immediately.
// title is optional; when set it names the output file.
func (m *Manager) Submit(source, title string) (*model.Job, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: source is empty", ErrInvalidSource)
	}

	m.mu.Lock()
	if m.state == stateClosed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	job := model.NewJob(source, strings.TrimSpace(title), m.settings.DownloadDirectory, m.settings.WorkDirectory)
	m.jobs = append(m.jobs, job)
	m.index[job.ID] = job
	m.pending++
	if m.pending == 1 {
		m.idle = make(chan struct{})
	}
	m.submits.Add(1)
	m.mu.Unlock()
	defer m.submits.Done()

	m.logger.Info("job queued", "job_id", job.ID, "source", job.Source, "output_dir", job.OutputDir)
	metrics.JobsSubmittedTotal.Inc()

	m.publish(model.JobAdded{Job: job})
	m.queue.push(job)
	return job, nil
}

// UpdateConfiguration applies u atomically. If any field is invalid the
// whole update is rejected with ErrInvalidConfiguration. Directory changes
// only affect jobs submitted afterwards.
func (m *Manager) UpdateConfiguration(u ConfigUpdate) error {
	if u.WorkerCount != nil {
		if err := config.ValidateWorkerCount(*u.WorkerCount); err != nil {
			return err
		}
	}
	if u.DownloadDirectory != nil {
		if err := config.ValidateDirectory(*u.DownloadDirectory); err != nil {
			return fmt.Errorf("download directory: %w", err)
		}
	}
	if u.WorkDirectory != nil {
		if err := config.ValidateDirectory(*u.WorkDirectory); err != nil {
			return fmt.Errorf("work directory: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.settings
	if u.DownloadDirectory != nil {
		next.DownloadDirectory = config.ExpandPath(*u.DownloadDirectory)
	}
	if u.WorkDirectory != nil {
		next.WorkDirectory = config.ExpandPath(*u.WorkDirectory)
	}
	if u.WorkerCount != nil && *u.WorkerCount != m.settings.WorkerCount {
		if err := m.pool.Resize(*u.WorkerCount); err != nil {
			return err
		}
		next.WorkerCount = *u.WorkerCount
	}

	m.settings = next
	m.logger.Info("configuration updated",
		"workers", next.WorkerCount,
		"download_directory", next.DownloadDirectory,
		"work_directory", next.WorkDirectory)
	return nil
}

// Subscribe registers fn to receive every event for every job. Events of
// one job arrive in order; events of different jobs may interleave. fn is
// called synchronously from the goroutine producing the event and should
// return quickly. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(model.Event)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Manager) publish(ev model.Event) {
	m.subMu.RLock()
	subs := m.subs
	m.subMu.RUnlock()

	for _, s := range subs {
		m.deliver(s.fn, ev)
	}
}

func (m *Manager) deliver(fn func(model.Event), ev model.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("event subscriber panicked", "job_id", ev.JobID(), "kind", ev.Kind().String(), "panic", rec)
		}
	}()
	fn(ev)
}

func (m *Manager) execute(ctx context.Context, job *model.Job) {
	m.exec.Execute(ctx, job, m.publish)

	m.mu.Lock()
	m.pending--
	if m.pending == 0 {
		close(m.idle)
	}
	m.mu.Unlock()
}

// Jobs returns every job submitted this session, oldest first.
func (m *Manager) Jobs() []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*model.Job(nil), m.jobs...)
}

// Job looks up a job by ID.
func (m *Manager) Job(id string) (*model.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.index[id]
	return job, ok
}

// Settings returns a copy of the current configuration.
func (m *Manager) Settings() config.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Stats counts jobs by status.
func (m *Manager) Stats() Stats {
	var s Stats
	for _, job := range m.Jobs() {
		switch job.Status() {
		case model.StatusQueued:
			s.Queued++
		case model.StatusRunning:
			s.Running++
		case model.StatusCompleted:
			s.Completed++
		case model.StatusFailed:
			s.Failed++
		}
	}
	s.Workers = m.pool.Size()
	return s
}

// Wait blocks until every submitted job has reached a terminal status.
// It returns ErrClosed if the manager is closed while jobs are still
// queued, or ctx's error.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	idle := m.idle
	m.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-m.closed:
		select {
		case <-idle:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting submissions and waits for running jobs to finish.
// Jobs still in the queue are abandoned. Close must not be called from a
// JobAdded subscriber. If ctx ends first, in-flight
// engine calls are cancelled and ctx's error is returned.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.state == stateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = stateClosed
	close(m.closed)
	cancel := m.cancel
	m.mu.Unlock()

	// Submits past the closed check must land in the queue before it is
	// drained.
	m.submits.Wait()

	err := m.pool.Stop(ctx)
	if abandoned := m.queue.drain(); len(abandoned) > 0 {
		m.logger.Warn("abandoning queued jobs", "count", len(abandoned))
	}
	if cancel != nil {
		cancel()
	}
	if err != nil {
		return fmt.Errorf("drain workers: %w", err)
	}
	m.logger.Info("download manager closed")
	return nil
}
