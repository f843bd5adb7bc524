package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bowenkfan/multi-dl/internal/engine"
	"github.com/bowenkfan/multi-dl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *eventLog) emit(ev model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Event(nil), l.events...)
}

func (l *eventLog) statuses() []model.Status {
	var out []model.Status
	for _, ev := range l.snapshot() {
		if sc, ok := ev.(model.StatusChanged); ok {
			out = append(out, sc.Status)
		}
	}
	return out
}

func (l *eventLog) percents() []int {
	var out []int
	for _, ev := range l.snapshot() {
		if pc, ok := ev.(model.ProgressChanged); ok {
			out = append(out, pc.Percent)
		}
	}
	return out
}

func testJob(t *testing.T, title string) *model.Job {
	t.Helper()
	root := t.TempDir()
	return model.NewJob("https://example.com/v/1", title, filepath.Join(root, "out"), filepath.Join(root, "out", ".temp"))
}

func report(downloaded, total int64) engine.Progress {
	return engine.Progress{DownloadedBytes: engine.Int64(downloaded), TotalBytes: engine.Int64(total)}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name    string
		p       engine.Progress
		want    int
		wantOK  bool
		wantTot int64
	}{
		{"exact total", report(512000, 1000000), 51, true, 1000000},
		{"floor", report(999, 1000), 99, true, 1000},
		{"complete", report(1000, 1000), 100, true, 1000},
		{"over total clamps", report(1500, 1000), 100, true, 1000},
		{"estimate fallback", engine.Progress{DownloadedBytes: engine.Int64(250), TotalBytesEstimate: engine.Int64(1000)}, 25, true, 1000},
		{"zero total falls back", engine.Progress{DownloadedBytes: engine.Int64(250), TotalBytes: engine.Int64(0), TotalBytesEstimate: engine.Int64(500)}, 50, true, 500},
		{"no total", engine.Progress{DownloadedBytes: engine.Int64(250)}, 0, false, 0},
		{"zero downloaded", report(0, 1000), 0, false, 0},
		{"nothing", engine.Progress{}, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, ok := ProgressPercent(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantTot, total)
		})
	}
}

func TestOutputTemplate(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"", "%(title)s.%(ext)s"},
		{"My Clip", "My Clip.%(ext)s"},
		{"50% off: sale/promo", "50%% off_ sale_promo.%(ext)s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputTemplate(tt.title), "OutputTemplate(%q)", tt.title)
	}
}

func TestExecutor_Success(t *testing.T) {
	job := testJob(t, "Named")
	var got engine.Request

	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		got = req
		req.Progress(report(512000, 1000000))
		return engine.Result{Files: []string{filepath.Join(req.OutputDir, "Named.mp4")}}, nil
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	assert.Equal(t, []model.Status{model.StatusRunning, model.StatusCompleted}, log.statuses())
	assert.Equal(t, []int{51, 100}, log.percents())
	assert.Equal(t, model.StatusCompleted, job.Status())
	assert.Equal(t, []string{filepath.Join(job.OutputDir, "Named.mp4")}, job.Files())

	assert.Equal(t, job.Source, got.URL)
	assert.Equal(t, job.OutputDir, got.OutputDir)
	assert.Equal(t, job.WorkDir, got.WorkDir)
	assert.Equal(t, "Named.%(ext)s", got.OutputTemplate)
	assert.True(t, got.Quiet)

	for _, dir := range []string{job.OutputDir, job.WorkDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestExecutor_EngineError(t *testing.T) {
	job := testJob(t, "")
	var progress engine.ProgressFunc

	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		progress = req.Progress
		req.Progress(report(10, 100))
		return engine.Result{}, errors.New("unsupported URL")
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	assert.Equal(t, []model.Status{model.StatusRunning, model.StatusFailed}, log.statuses())
	assert.Equal(t, model.StatusFailed, job.Status())
	assert.Contains(t, job.Err(), "unsupported URL")
	assert.Contains(t, job.Err(), ErrEngine.Error())

	events := log.snapshot()
	last, ok := events[len(events)-1].(model.StatusChanged)
	require.True(t, ok, "last event should be the terminal status")
	assert.Equal(t, model.StatusFailed, last.Status)
	assert.Contains(t, last.Message, "unsupported URL")

	// A late callback from the engine must not produce events.
	progress(report(90, 100))
	assert.Len(t, log.snapshot(), len(events))
}

func TestExecutor_EnginePanic(t *testing.T) {
	job := testJob(t, "")
	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		panic("decoder exploded")
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	assert.Equal(t, []model.Status{model.StatusRunning, model.StatusFailed}, log.statuses())
	assert.Contains(t, job.Err(), "decoder exploded")
}

func TestExecutor_DirectoryCreationError(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	job := model.NewJob("https://example.com/v/1", "", filepath.Join(blocker, "out"), filepath.Join(root, "work"))
	called := false
	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		called = true
		return engine.Result{}, nil
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	assert.False(t, called, "engine must not run when directories cannot be created")
	assert.Equal(t, []model.Status{model.StatusRunning, model.StatusFailed}, log.statuses())
	assert.Contains(t, job.Err(), ErrDirectoryCreation.Error())
}

func TestExecutor_ProgressIsMonotonicPerTotal(t *testing.T) {
	job := testJob(t, "")
	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		req.Progress(report(10, 100))
		req.Progress(report(30, 100))
		req.Progress(report(20, 100)) // regression, dropped
		req.Progress(report(30, 100)) // duplicate, dropped
		req.Progress(report(10, 200)) // new total resets the baseline
		req.Progress(report(100, 200))
		return engine.Result{}, errors.New("stop before completion")
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	assert.Equal(t, []int{10, 30, 5, 50}, log.percents())
	for _, p := range log.percents() {
		assert.GreaterOrEqual(t, p, 0)
		assert.LessOrEqual(t, p, 100)
	}
}

func TestExecutor_SpeedAndETA(t *testing.T) {
	job := testJob(t, "")
	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		// zero speed is not reported
		req.Progress(engine.Progress{Speed: engine.Float64(0)})
		req.Progress(engine.Progress{Speed: engine.Float64(1.5 * 1024 * 1024), ETA: engine.Float64(75)})
		req.Progress(engine.Progress{ETA: engine.Float64(7300)})
		return engine.Result{}, nil
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	var speeds, etas []string
	for _, ev := range log.snapshot() {
		switch e := ev.(type) {
		case model.SpeedChanged:
			speeds = append(speeds, e.Text)
		case model.EtaChanged:
			etas = append(etas, e.Text)
		}
	}
	assert.Equal(t, []string{"1.5 MB/s"}, speeds)
	assert.Equal(t, []string{"01:15", "2 hrs+"}, etas)

	_, hasSpeed := job.Speed()
	_, hasETA := job.ETA()
	assert.False(t, hasSpeed, "speed is cleared once the job is terminal")
	assert.False(t, hasETA, "eta is cleared once the job is terminal")
}

type recordingPostProcessor struct {
	files []string
	err   error
}

func (p *recordingPostProcessor) Process(ctx context.Context, job *model.Job, files []string) error {
	p.files = files
	return p.err
}

func TestExecutor_PostProcessorFailureKeepsJobCompleted(t *testing.T) {
	job := testJob(t, "")
	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		return engine.Result{Files: []string{"a.mp3"}}, nil
	})

	post := &recordingPostProcessor{err: errors.New("bad tag")}
	NewExecutor(eng, nil, post).Execute(context.Background(), job, nil)

	assert.Equal(t, model.StatusCompleted, job.Status())
	assert.Equal(t, []string{"a.mp3"}, post.files)
}

func TestExecutor_RejectsNonQueuedJob(t *testing.T) {
	job := testJob(t, "")
	require.NoError(t, job.Transition(model.StatusRunning, nil))

	called := false
	eng := engine.Func(func(ctx context.Context, req engine.Request) (engine.Result, error) {
		called = true
		return engine.Result{}, nil
	})

	var log eventLog
	NewExecutor(eng, nil).Execute(context.Background(), job, log.emit)

	assert.False(t, called)
	assert.Empty(t, log.snapshot())
}
