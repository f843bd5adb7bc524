// Package cli provides the multi-dl command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// ErrJobsFailed is returned when at least one download did not complete.
var ErrJobsFailed = errors.New("some downloads failed")

// app holds state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	verbose    bool

	settings *config.Settings
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCmd builds the multi-dl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "multi-dl",
		Short: "Concurrent media downloader",
		Long: `multi-dl queues media downloads and runs them on a bounded pool of
workers, reporting status, progress, speed and ETA as they go.

Settings are read from the config file (see "multi-dl config show") and
can be overridden with MULTIDL_* environment variables or flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				if err := a.closeLog(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
				}
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "settings file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print progress, speed and ETA updates")

	root.AddCommand(newGetCmd(a))
	root.AddCommand(newBatchCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}

// init loads settings, applies environment overrides and sets up logging.
func (a *app) init() error {
	if a.configPath == "" {
		a.configPath = config.DefaultPath()
	}

	settings, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := settings.ApplyEnv(); err != nil {
		return err
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}
	a.settings = settings

	a.logger, a.closeLog = config.SetupLogger(settings.LogFile, config.ParseLogLevel(settings.LogLevel))
	slog.SetDefault(a.logger)
	return nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so running downloads can wind down.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
