package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Environment variables that override the settings file.
const (
	EnvWorkers     = "MULTIDL_WORKERS"
	EnvDownloadDir = "MULTIDL_DOWNLOAD_DIR"
	EnvWorkDir     = "MULTIDL_WORK_DIR"
	EnvEngine      = "MULTIDL_ENGINE"
	EnvLogLevel    = "MULTIDL_LOG_LEVEL"
	EnvLogFile     = "MULTIDL_LOG_FILE"
)

// ApplyEnv overlays MULTIDL_* environment variables onto s.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidSettings, EnvWorkers, v)
		}
		s.WorkerCount = n
	}

	s.DownloadDirectory = ExpandPath(getEnv(EnvDownloadDir, s.DownloadDirectory))
	s.WorkDirectory = ExpandPath(getEnv(EnvWorkDir, s.WorkDirectory))
	s.Engine = getEnv(EnvEngine, s.Engine)
	s.LogLevel = getEnv(EnvLogLevel, s.LogLevel)
	s.LogFile = getEnv(EnvLogFile, s.LogFile)
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
