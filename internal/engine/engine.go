package engine

import (
	"context"
	"fmt"
	"strings"
)

// DefaultOutputTemplate names files after the title reported by the source.
const DefaultOutputTemplate = "%(title)s.%(ext)s"

// Engine downloads a single URL.
type Engine interface {
	Download(ctx context.Context, req Request) (Result, error)
}

// Func adapts an ordinary function to the Engine interface.
type Func func(ctx context.Context, req Request) (Result, error)

// Download calls f(ctx, req).
func (f Func) Download(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// ProgressFunc receives raw progress reports. It is called synchronously
// on the engine's goroutine and must return quickly.
type ProgressFunc func(Progress)

// Request is one engine invocation.
type Request struct {
	URL string

	// OutputDir is where finished files end up.
	OutputDir string

	// WorkDir holds intermediate files while downloading.
	WorkDir string

	// OutputTemplate is a yt-dlp style template, e.g. "%(title)s.%(ext)s".
	// A literal percent sign is written as "%%".
	OutputTemplate string

	// Quiet suppresses the engine's own console output.
	Quiet bool

	Progress ProgressFunc
}

// Progress is a raw progress report. Any field may be nil when the engine
// does not know it yet.
type Progress struct {
	DownloadedBytes    *int64
	TotalBytes         *int64
	TotalBytesEstimate *int64

	// Speed is in bytes per second.
	Speed *float64

	// ETA is the remaining time in seconds.
	ETA *float64
}

// Result describes a finished download.
type Result struct {
	Files []string
}

// Int64 returns a pointer to v. Handy for building Progress values.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Names lists the engines accepted by New.
var Names = []string{"ytdlp", "http"}

// New returns the engine registered under name. An empty name selects yt-dlp.
func New(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ytdlp", "yt-dlp":
		return NewYTDLP(), nil
	case "http", "direct":
		return NewDirect(nil), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (available: %s)", name, strings.Join(Names, ", "))
	}
}
