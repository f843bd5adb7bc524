package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is a single download request.
//
// The exported fields are fixed at creation. OutputDir and WorkDir are the
// directory snapshot taken at submission, so later configuration changes
// never affect a job that already exists.
//
// The runtime state (status, progress, speed, ETA) is guarded by an internal
// mutex. Only the worker executing the job mutates it; observers read it
// through the getters or Snapshot.
type Job struct {
	ID        string
	Source    string
	Title     string
	OutputDir string
	WorkDir   string
	CreatedAt time.Time

	mu         sync.RWMutex
	status     Status
	progress   int
	speed      *float64
	eta        *int
	errMsg     string
	startedAt  time.Time
	finishedAt time.Time
	files      []string
}

// JobSnapshot is a point-in-time copy of a Job, safe to serialize.
type JobSnapshot struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Title       string     `json:"title,omitempty"`
	OutputDir   string     `json:"output_dir"`
	WorkDir     string     `json:"work_dir"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	BytesPerSec *float64   `json:"bytes_per_sec,omitempty"`
	ETASeconds  *int       `json:"eta_seconds,omitempty"`
	Error       string     `json:"error,omitempty"`
	Files       []string   `json:"files,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// NewJob creates a queued job with a fresh time-ordered ID.
func NewJob(source, title, outputDir, workDir string) *Job {
	return &Job{
		ID:        newID(),
		Source:    source,
		Title:     title,
		OutputDir: outputDir,
		WorkDir:   workDir,
		CreatedAt: time.Now(),
		status:    StatusQueued,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// DisplayTitle returns the title, or the source when no title was given.
// It is for display only and never used to name output files.
func (j *Job) DisplayTitle() string {
	if j.Title != "" {
		return j.Title
	}
	return j.Source
}

// Status returns the current status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Progress returns the last reported progress percentage (0-100).
func (j *Job) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// Speed returns the last reported speed in bytes per second.
func (j *Job) Speed() (float64, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.speed == nil {
		return 0, false
	}
	return *j.speed, true
}

// ETA returns the last reported remaining time in seconds.
func (j *Job) ETA() (int, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.eta == nil {
		return 0, false
	}
	return *j.eta, true
}

// Err returns the failure message of a failed job.
func (j *Job) Err() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.errMsg
}

// Files returns the output files reported by the engine.
func (j *Job) Files() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]string(nil), j.files...)
}

// Duration returns how long the job ran, or has been running so far.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch {
	case j.startedAt.IsZero():
		return 0
	case j.finishedAt.IsZero():
		return time.Since(j.startedAt)
	default:
		return j.finishedAt.Sub(j.startedAt)
	}
}

// Transition moves the job to the given status.
//
// Moving to a terminal status clears speed and ETA and records cause (if any)
// as the failure message.
func (j *Job) Transition(to Status, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !CanTransition(j.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.status, to)
	}

	j.status = to
	now := time.Now()
	switch {
	case to == StatusRunning:
		j.startedAt = now
	case to.IsTerminal():
		j.finishedAt = now
		j.speed = nil
		j.eta = nil
		if cause != nil {
			j.errMsg = cause.Error()
		}
	}
	return nil
}

// SetProgress records a progress percentage, clamped to 0-100.
func (j *Job) SetProgress(percent int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = min(max(percent, 0), 100)
}

// SetSpeed records the current transfer speed in bytes per second.
func (j *Job) SetSpeed(bytesPerSec float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.speed = &bytesPerSec
}

// SetETA records the estimated remaining time in seconds.
func (j *Job) SetETA(seconds int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.eta = &seconds
}

// SetFiles records the output files produced by the engine.
func (j *Job) SetFiles(files []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files = append([]string(nil), files...)
}

// Snapshot returns a consistent copy of the job's current state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snap := JobSnapshot{
		ID:        j.ID,
		Source:    j.Source,
		Title:     j.Title,
		OutputDir: j.OutputDir,
		WorkDir:   j.WorkDir,
		Status:    j.status,
		Progress:  j.progress,
		Error:     j.errMsg,
		Files:     append([]string(nil), j.files...),
		CreatedAt: j.CreatedAt,
	}
	if j.speed != nil {
		v := *j.speed
		snap.BytesPerSec = &v
	}
	if j.eta != nil {
		v := *j.eta
		snap.ETASeconds = &v
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		snap.StartedAt = &t
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		snap.FinishedAt = &t
	}
	return snap
}
