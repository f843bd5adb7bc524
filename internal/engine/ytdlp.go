package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// DefaultProgressInterval is how often yt-dlp progress is reported.
const DefaultProgressInterval = 500 * time.Millisecond

// YTDLP runs downloads through the yt-dlp executable.
type YTDLP struct {
	interval time.Duration

	// executable overrides the yt-dlp binary. Empty resolves it from PATH or
	// the install cache.
	executable string
}

// NewYTDLP creates a yt-dlp engine with the default progress interval.
func NewYTDLP() *YTDLP {
	return &YTDLP{interval: DefaultProgressInterval}
}

// Install makes sure a usable yt-dlp binary is available, downloading one
// into the user cache directory when none is found on PATH.
func (y *YTDLP) Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// command builds the yt-dlp invocation for req.
//
// yt-dlp accepts a single --paths value per type here, so the final
// location is set through the working directory instead: the home path
// defaults to it. --print-json with --no-simulate makes yt-dlp report the
// finished file names.
func (y *YTDLP) command(req Request) *ytdlp.Command {
	tmpl := req.OutputTemplate
	if tmpl == "" {
		tmpl = DefaultOutputTemplate
	}

	cmd := ytdlp.New().
		SetWorkDir(req.OutputDir).
		Paths("temp:" + req.WorkDir).
		Output(tmpl).
		NoPlaylist().
		PrintJSON().
		NoSimulate()

	if y.executable != "" {
		cmd.SetExecutable(y.executable)
	}
	if req.Quiet {
		cmd.Quiet().NoWarnings()
	}
	return cmd
}

// Download implements Engine.
func (y *YTDLP) Download(ctx context.Context, req Request) (Result, error) {
	dl := y.command(req)

	if req.Progress != nil {
		dl.ProgressFunc(y.interval, func(update ytdlp.ProgressUpdate) {
			req.Progress(progressFromUpdate(update, time.Now()))
		})
	}

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		return Result{}, fmt.Errorf("yt-dlp %s: %w", req.URL, err)
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return Result{}, fmt.Errorf("yt-dlp %s: parse output: %w", req.URL, err)
	}
	return Result{Files: outputFiles(req.OutputDir, info)}, nil
}

// outputFiles lists the files yt-dlp reported, resolved against dir.
func outputFiles(dir string, info []*ytdlp.ExtractedInfo) []string {
	var files []string
	seen := make(map[string]bool)
	for _, i := range info {
		if i == nil {
			continue
		}
		name := i.Filename
		if name == nil || *name == "" {
			name = i.AltFilename
		}
		if name == nil || *name == "" {
			continue
		}

		file := *name
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		if !seen[file] {
			seen[file] = true
			files = append(files, file)
		}
	}
	return files
}

// progressFromUpdate converts a yt-dlp update into a Progress report.
// yt-dlp does not expose an instantaneous rate, so speed is the average
// since the download started.
func progressFromUpdate(update ytdlp.ProgressUpdate, now time.Time) Progress {
	var p Progress

	if update.DownloadedBytes > 0 {
		p.DownloadedBytes = Int64(int64(update.DownloadedBytes))
	}
	if update.TotalBytes > 0 {
		p.TotalBytes = Int64(int64(update.TotalBytes))
	}

	if !update.Started.IsZero() && update.DownloadedBytes > 0 {
		if elapsed := now.Sub(update.Started).Seconds(); elapsed > 0 {
			p.Speed = Float64(float64(update.DownloadedBytes) / elapsed)
		}
	}

	if update.TotalBytes > 0 {
		if eta := update.ETA(); eta > 0 {
			p.ETA = Float64(eta.Seconds())
		}
	}

	return p
}
