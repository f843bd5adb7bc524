package engine

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	dlhttp "github.com/bowenkfan/multi-dl/internal/http"
	ioutils "github.com/bowenkfan/multi-dl/internal/io"
)

// DirectProgressInterval throttles progress reports from Direct.
const DirectProgressInterval = 250 * time.Millisecond

// Direct downloads plain file URLs over HTTP.
//
// The body is streamed into a temporary file in WorkDir and moved into
// OutputDir once complete. The output template understands %(title)s (the
// server suggested name without extension) and %(ext)s.
type Direct struct {
	client   *dlhttp.Client
	interval time.Duration
}

// NewDirect creates a direct HTTP engine. A nil client uses dlhttp.NewClient().
func NewDirect(client *dlhttp.Client) *Direct {
	if client == nil {
		client = dlhttp.NewClient()
	}
	return &Direct{client: client, interval: DirectProgressInterval}
}

// Download implements Engine.
func (d *Direct) Download(ctx context.Context, req Request) (Result, error) {
	part, err := os.CreateTemp(req.WorkDir, "multidl-*.part")
	if err != nil {
		return Result{}, err
	}
	partName := part.Name()
	part.Close()
	defer os.Remove(partName)

	reporter := &throttledReporter{fn: req.Progress, interval: d.interval, start: time.Now()}
	info, err := d.client.DownloadFile(ctx, req.URL, partName, reporter.report)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	name := info.Name
	if name == "" {
		name = path.Base(strings.TrimRight(req.URL, "/"))
	}

	tmpl := req.OutputTemplate
	if tmpl == "" {
		tmpl = DefaultOutputTemplate
	}
	final := filepath.Join(req.OutputDir, RenderTemplate(tmpl, name))

	if err := ioutils.MoveFile(ctx, partName, final); err != nil {
		return Result{}, fmt.Errorf("move into %s: %w", req.OutputDir, err)
	}
	return Result{Files: []string{final}}, nil
}

type throttledReporter struct {
	fn       ProgressFunc
	interval time.Duration
	start    time.Time

	mu   sync.Mutex
	last time.Time
}

func (r *throttledReporter) report(written, total int64) {
	if r.fn == nil {
		return
	}

	now := time.Now()
	r.mu.Lock()
	if written != total && now.Sub(r.last) < r.interval {
		r.mu.Unlock()
		return
	}
	r.last = now
	r.mu.Unlock()

	p := Progress{DownloadedBytes: Int64(written)}
	if total > 0 {
		p.TotalBytes = Int64(total)
	}
	if elapsed := now.Sub(r.start).Seconds(); elapsed > 0 && written > 0 {
		speed := float64(written) / elapsed
		p.Speed = Float64(speed)
		if total > 0 {
			p.ETA = Float64(float64(total-written) / speed)
		}
	}
	r.fn(p)
}

// RenderTemplate expands a yt-dlp style output template for a file whose
// suggested name is given. Supported fields are %(title)s and %(ext)s; "%%"
// yields a literal percent sign and unknown fields are dropped.
//
//	RenderTemplate("%(title)s.%(ext)s", "clip.mp4")  // "clip.mp4"
//	RenderTemplate("My 100%% Mix.%(ext)s", "a.mp3") // "My 100% Mix.mp3"
func RenderTemplate(tmpl, suggested string) string {
	ext := strings.TrimPrefix(filepath.Ext(suggested), ".")
	title := ioutils.SanitizeFileName(strings.TrimSuffix(suggested, filepath.Ext(suggested)))

	var sb strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		rest := tmpl[i+1:]
		switch {
		case strings.HasPrefix(rest, "%"):
			sb.WriteByte('%')
			i++
		case strings.HasPrefix(rest, "(title)s"):
			sb.WriteString(title)
			i += len("(title)s")
		case strings.HasPrefix(rest, "(ext)s"):
			sb.WriteString(ext)
			i += len("(ext)s")
		case strings.HasPrefix(rest, "("):
			if end := strings.Index(rest, ")s"); end >= 0 {
				i += end + len(")s")
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}

	name := strings.TrimSuffix(sb.String(), ".")
	if name == "" {
		return "download"
	}
	return name
}
