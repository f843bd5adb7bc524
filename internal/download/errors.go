package download

import (
	"errors"

	"github.com/bowenkfan/multi-dl/internal/config"
)

var (
	// ErrInvalidSource is returned by Submit for an empty source.
	ErrInvalidSource = errors.New("invalid source")

	// ErrClosed is returned when the manager no longer accepts work.
	ErrClosed = errors.New("download manager closed")

	// ErrDirectoryCreation marks a job that failed because its output or
	// work directory could not be created.
	ErrDirectoryCreation = errors.New("directory creation failed")

	// ErrEngine marks a job that failed inside the retrieval engine.
	ErrEngine = errors.New("engine failed")

	// ErrInvalidConfiguration is returned by UpdateConfiguration when the
	// update is rejected. The previous configuration stays in effect.
	ErrInvalidConfiguration = config.ErrInvalidSettings
)
