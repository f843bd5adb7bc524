// Package session assembles a download manager from persisted settings. The
// command line and the terminal UI share it so both honour the same
// settings.
package session

import (
	"context"
	"log/slog"

	"github.com/bowenkfan/multi-dl/internal/audio"
	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/download"
	"github.com/bowenkfan/multi-dl/internal/engine"
)

// installer is implemented by engines that fetch an external binary on
// first use.
type installer interface {
	Install(ctx context.Context) error
}

// NewManager builds a download manager for settings. The engine is
// installed when it needs to be, and downloaded MP3 files are tagged when
// settings.TagAudio is set. The manager is returned unstarted.
func NewManager(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*download.Manager, error) {
	eng, err := engine.New(settings.Engine)
	if err != nil {
		return nil, err
	}
	if inst, ok := eng.(installer); ok {
		if err := inst.Install(ctx); err != nil {
			return nil, err
		}
	}

	opts := []download.Option{download.WithLogger(logger)}
	if settings.TagAudio {
		opts = append(opts, download.WithPostProcessor(audio.NewTagger(nil)))
	}
	return download.NewManager(settings, eng, opts...)
}
