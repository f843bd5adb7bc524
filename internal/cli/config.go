package cli

import (
	"encoding/json"
	"fmt"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change saved settings",
	}
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigSetCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(a.settings, "", "  ")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", a.configPath)
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	var (
		workers        int
		downloadDir    string
		workDir        string
		engineName     string
		logFile        string
		tag            bool
		playlist       bool
		playlistFormat string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings and save them to the config file",
		Long: `Change one or more settings and save them.

Examples:
  multi-dl config set --workers 3
  multi-dl config set --download-dir ~/Videos --work-dir ~/Videos/.partial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment overrides are not persisted.
			settings, err := config.Load(a.configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			changed := false
			for _, name := range []string{"workers", "download-dir", "work-dir", "engine", "log-file", "tag", "playlist", "playlist-format"} {
				changed = changed || flags.Changed(name)
			}
			if !changed {
				return fmt.Errorf("nothing to set, see %q", cmd.CommandPath()+" --help")
			}
			if flags.Changed("workers") {
				settings.WorkerCount = workers
			}
			if flags.Changed("download-dir") {
				settings.DownloadDirectory = config.ExpandPath(downloadDir)
			}
			if flags.Changed("work-dir") {
				settings.WorkDirectory = config.ExpandPath(workDir)
			}
			if flags.Changed("engine") {
				settings.Engine = engineName
			}
			if flags.Changed("log-file") {
				settings.LogFile = logFile
			}
			if flags.Changed("tag") {
				settings.TagAudio = tag
			}
			if flags.Changed("playlist") {
				settings.CreatePlaylist = playlist
			}
			if flags.Changed("playlist-format") {
				settings.PlaylistFormat = playlistFormat
			}

			if err := settings.Validate(); err != nil {
				return err
			}
			if err := settings.Save(a.configPath); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", a.configPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "number of parallel downloads")
	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "download directory")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "directory for partial files")
	cmd.Flags().StringVar(&engineName, "engine", "", "retrieval engine: ytdlp, http")
	cmd.Flags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	cmd.Flags().BoolVar(&tag, "tag", false, "write ID3 tags to downloaded mp3 files")
	cmd.Flags().BoolVar(&playlist, "playlist", false, "write a playlist after each run")
	cmd.Flags().StringVar(&playlistFormat, "playlist-format", "", "playlist format: m3u, pls, wpl, zpl")
	return cmd
}
