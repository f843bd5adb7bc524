// Package config provides configuration management for multi-dl.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - MULTIDL_* environment overrides
//   - Validation of worker counts and directories
//   - Logger construction
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// 5 workers
//	// Downloads to ~/Downloads/MultiDL
//	// Intermediate files in ~/Downloads/MultiDL/.temp
//
// # Loading from File
//
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    // the file exists but could not be read or parsed
//	}
//	if err := settings.ApplyEnv(); err != nil { ... }
//
// # Saving Settings
//
//	settings.WorkerCount = 8
//	err := settings.Save(config.DefaultPath())
//
// # Logging
//
//	logger, cleanup := config.SetupLogger(settings.LogFile, config.ParseLogLevel(settings.LogLevel))
//	defer cleanup()
package config
