package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bowenkfan/multi-dl/internal/engine"
	ioutils "github.com/bowenkfan/multi-dl/internal/io"
	"github.com/bowenkfan/multi-dl/internal/metrics"
	"github.com/bowenkfan/multi-dl/internal/model"
)

// PostProcessor runs after a job's engine call succeeded. A post-processing
// error is logged but does not fail the job.
type PostProcessor interface {
	Process(ctx context.Context, job *model.Job, files []string) error
}

// Executor runs a single job through the engine and reports what happens
// as model events.
type Executor struct {
	engine engine.Engine
	post   []PostProcessor
	logger *slog.Logger
}

// NewExecutor creates an Executor. A nil logger uses slog.Default().
func NewExecutor(eng engine.Engine, logger *slog.Logger, post ...PostProcessor) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{engine: eng, post: post, logger: logger}
}

// Execute runs job to completion. It emits StatusChanged(running), zero or
// more progress, speed and ETA events, then exactly one terminal
// StatusChanged. Nothing is emitted after the terminal event.
//
// Execute never returns an error and never panics because of the engine:
// every failure ends up as the job's failed status.
func (e *Executor) Execute(ctx context.Context, job *model.Job, emit func(model.Event)) {
	r := newReporter(job, emit)
	if err := r.start(); err != nil {
		e.logger.Error("job not runnable", "job_id", job.ID, "error", err)
		return
	}

	e.logger.Info("job started", "job_id", job.ID, "source", job.Source)
	started := time.Now()

	files, err := e.run(ctx, job, r)
	if err == nil {
		job.SetFiles(files)
		e.postProcess(ctx, job, files)
	}

	status := model.StatusCompleted
	if err != nil {
		status = model.StatusFailed
		e.logger.Warn("job failed", "job_id", job.ID, "source", job.Source, "error", err)
	} else {
		e.logger.Info("job completed", "job_id", job.ID, "files", len(files), "duration", time.Since(started).Round(time.Millisecond))
	}

	r.finish(status, err)
	metrics.JobsFinishedTotal.WithLabelValues(status.String()).Inc()
	metrics.JobDurationSeconds.WithLabelValues(status.String()).Observe(time.Since(started).Seconds())
}

func (e *Executor) run(ctx context.Context, job *model.Job, r *reporter) (files []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrEngine, rec)
		}
	}()

	for _, dir := range []string{job.OutputDir, job.WorkDir} {
		if err := ioutils.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDirectoryCreation, err)
		}
	}

	res, err := e.engine.Download(ctx, engine.Request{
		URL:            job.Source,
		OutputDir:      job.OutputDir,
		WorkDir:        job.WorkDir,
		OutputTemplate: OutputTemplate(job.Title),
		Quiet:          true,
		Progress:       r.progress,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngine, err)
	}
	return res.Files, nil
}

func (e *Executor) postProcess(ctx context.Context, job *model.Job, files []string) {
	for _, p := range e.post {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Warn("post-processing panicked", "job_id", job.ID, "panic", rec)
				}
			}()
			if err := p.Process(ctx, job, files); err != nil {
				e.logger.Warn("post-processing failed", "job_id", job.ID, "error", err)
			}
		}()
	}
}

// OutputTemplate returns the engine output template for a job title. An
// explicit title names the file literally; otherwise the engine's own
// title is used.
func OutputTemplate(title string) string {
	if title == "" {
		return engine.DefaultOutputTemplate
	}
	return ioutils.EscapeTemplate(ioutils.SanitizeFileName(title)) + ".%(ext)s"
}

// ProgressPercent computes floor(downloaded/total*100) from a raw report,
// falling back to the estimated total. ok is false unless both values are
// known and non-zero. The returned total is the one used.
func ProgressPercent(p engine.Progress) (percent int, total int64, ok bool) {
	if p.DownloadedBytes == nil || *p.DownloadedBytes <= 0 {
		return 0, 0, false
	}

	switch {
	case p.TotalBytes != nil && *p.TotalBytes > 0:
		total = *p.TotalBytes
	case p.TotalBytesEstimate != nil && *p.TotalBytesEstimate > 0:
		total = *p.TotalBytesEstimate
	default:
		return 0, 0, false
	}

	percent = int(*p.DownloadedBytes * 100 / total)
	return min(max(percent, 0), 100), total, true
}

// reporter serializes one job's events and applies them to the job.
type reporter struct {
	job  *model.Job
	emit func(model.Event)

	mu      sync.Mutex
	done    bool
	total   int64
	percent int
	speed   string
	eta     string
}

func newReporter(job *model.Job, emit func(model.Event)) *reporter {
	if emit == nil {
		emit = func(model.Event) {}
	}
	return &reporter{job: job, emit: emit, percent: -1}
}

func (r *reporter) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.job.Transition(model.StatusRunning, nil); err != nil {
		r.done = true
		return err
	}
	r.emit(model.StatusChanged{ID: r.job.ID, Status: model.StatusRunning})
	return nil
}

// progress is the engine callback. It runs on the engine's goroutine.
func (r *reporter) progress(p engine.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}

	if percent, total, ok := ProgressPercent(p); ok {
		if total != r.total {
			r.total = total
			r.percent = -1
		}
		if percent > r.percent {
			r.percent = percent
			r.job.SetProgress(percent)
			r.emit(model.ProgressChanged{ID: r.job.ID, Percent: percent})
		}
	}

	if p.Speed != nil && *p.Speed > 0 {
		r.job.SetSpeed(*p.Speed)
		if text := model.FormatSpeed(*p.Speed); text != r.speed {
			r.speed = text
			r.emit(model.SpeedChanged{ID: r.job.ID, BytesPerSec: *p.Speed, Text: text})
		}
	}

	if p.ETA != nil && *p.ETA >= 0 {
		seconds := int(*p.ETA)
		r.job.SetETA(seconds)
		if text := model.FormatETA(seconds); text != r.eta {
			r.eta = text
			r.emit(model.EtaChanged{ID: r.job.ID, Seconds: seconds, Text: text})
		}
	}
}

func (r *reporter) finish(status model.Status, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}
	r.done = true

	if status == model.StatusCompleted && r.percent < 100 {
		r.percent = 100
		r.job.SetProgress(100)
		r.emit(model.ProgressChanged{ID: r.job.ID, Percent: 100})
	}

	if err := r.job.Transition(status, cause); err != nil {
		return
	}

	var msg string
	if cause != nil {
		msg = cause.Error()
	}
	r.emit(model.StatusChanged{ID: r.job.ID, Status: status, Message: msg})
}
