package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidSettings is returned when a setting fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	WorkerCount       int    `json:"worker_count"`
	DownloadDirectory string `json:"download_directory"`
	WorkDirectory     string `json:"work_directory"`
	Engine            string `json:"engine"` // ytdlp, http

	// Tag settings
	TagAudio bool `json:"tag_audio"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, "Downloads", "MultiDL")
	return &Settings{
		WorkerCount:       5,
		DownloadDirectory: base,
		WorkDirectory:     filepath.Join(base, ".temp"),
		Engine:            "ytdlp",

		TagAudio: false,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		LogLevel: "info",
	}
}

// DefaultPath returns the settings file location, normally
// ~/.config/multi-dl/settings.json on Linux.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, "multi-dl", "settings.json")
}

// Load reads settings from a JSON file.
//
// A missing file is not an error: the defaults are returned. Keys present in
// the file override the defaults; absent keys keep them.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	settings.DownloadDirectory = ExpandPath(settings.DownloadDirectory)
	settings.WorkDirectory = ExpandPath(settings.WorkDirectory)

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings the download manager depends on.
func (s *Settings) Validate() error {
	if err := ValidateWorkerCount(s.WorkerCount); err != nil {
		return err
	}
	if err := ValidateDirectory(s.DownloadDirectory); err != nil {
		return fmt.Errorf("download directory: %w", err)
	}
	if err := ValidateDirectory(s.WorkDirectory); err != nil {
		return fmt.Errorf("work directory: %w", err)
	}
	switch s.PlaylistFormat {
	case "", "m3u", "pls", "wpl", "zpl":
	default:
		return fmt.Errorf("%w: unknown playlist format %q", ErrInvalidSettings, s.PlaylistFormat)
	}
	return nil
}

// ValidateWorkerCount rejects worker counts below one.
func ValidateWorkerCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: worker count must be at least 1, got %d", ErrInvalidSettings, n)
	}
	return nil
}

// ValidateDirectory checks that path can be used as a download or work
// directory. The directory does not have to exist yet, but if something
// exists at path it must be a readable directory.
func ValidateDirectory(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: directory path is empty", ErrInvalidSettings)
	}

	info, err := os.Stat(ExpandPath(path))
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidSettings, path)
	}

	f, err := os.Open(ExpandPath(path))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return f.Close()
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
