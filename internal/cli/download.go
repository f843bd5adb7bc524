package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bowenkfan/multi-dl/internal/audio"
	"github.com/bowenkfan/multi-dl/internal/batch"
	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/download"
	"github.com/bowenkfan/multi-dl/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// closeTimeout bounds how long running jobs may take to finish after the
// command is interrupted.
const closeTimeout = 30 * time.Second

// downloadFlags are the settings overrides shared by get and batch.
type downloadFlags struct {
	workers  int
	output   string
	workDir  string
	engine   string
	playlist bool
	tag      bool
}

func (f *downloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "number of parallel downloads")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "download directory")
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "directory for partial files")
	cmd.Flags().StringVar(&f.engine, "engine", "", "retrieval engine: ytdlp, http")
	cmd.Flags().BoolVar(&f.playlist, "playlist", false, "write a playlist of the completed downloads")
	cmd.Flags().BoolVar(&f.tag, "tag", false, "write ID3 tags to downloaded mp3 files")
}

// apply copies the flags the user set onto s.
func (f *downloadFlags) apply(cmd *cobra.Command, s *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		s.WorkerCount = f.workers
	}
	if flags.Changed("output") {
		s.DownloadDirectory = config.ExpandPath(f.output)
		if !flags.Changed("work-dir") {
			s.WorkDirectory = filepath.Join(config.ExpandPath(f.output), ".temp")
		}
	}
	if flags.Changed("work-dir") {
		s.WorkDirectory = config.ExpandPath(f.workDir)
	}
	if flags.Changed("engine") {
		s.Engine = f.engine
	}
	if flags.Changed("playlist") {
		s.CreatePlaylist = f.playlist
	}
	if flags.Changed("tag") {
		s.TagAudio = f.tag
	}
	return s.Validate()
}

func newGetCmd(a *app) *cobra.Command {
	var (
		flags downloadFlags
		title string
	)

	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Download one or more URLs",
		Long: `Download one or more URLs and wait for all of them to finish.

Examples:
  multi-dl get https://example.com/watch?v=abc
  multi-dl get -w 3 -o ~/Music URL1 URL2 URL3
  multi-dl get --title "Live Set" URL`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title != "" && len(args) > 1 {
				return errors.New("--title can only be used with a single URL")
			}
			if err := flags.apply(cmd, a.settings); err != nil {
				return err
			}

			records := make([]batch.Record, 0, len(args))
			for _, url := range args {
				records = append(records, batch.Record{URL: url, Title: title})
			}
			return a.runDownloads(cmd.Context(), cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "output file name (single URL only)")
	flags.register(cmd)
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Download every URL listed in batch files",
		Long: `Download the URLs listed in one or more files. The format is chosen
from the file extension:

  .csv            header row with "url" and optional "title" columns
  .json           array of {"url": ..., "title": ...}
  .jsonl .ndjson  one JSON object per line
  .yaml .yml      list of url/title mappings`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.settings); err != nil {
				return err
			}

			records, err := parseBatchFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to download.")
				return nil
			}
			return a.runDownloads(cmd.Context(), cmd.OutOrStdout(), records)
		},
	}

	flags.register(cmd)
	return cmd
}

// parseBatchFiles parses files concurrently and returns their records in
// argument order.
func parseBatchFiles(ctx context.Context, paths []string) ([]batch.Record, error) {
	results := make([][]batch.Record, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := batch.ParseFile(path)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []batch.Record
	for _, records := range results {
		all = append(all, records...)
	}
	return all, nil
}

// newManager builds a download manager from the current settings.
func (a *app) newManager(ctx context.Context) (*download.Manager, error) {
	return session.NewManager(ctx, a.settings, a.logger)
}

// runDownloads submits records, waits for them and prints a summary. It
// returns ErrJobsFailed if any record was rejected or any job failed.
func (a *app) runDownloads(ctx context.Context, out io.Writer, records []batch.Record) error {
	mgr, err := a.newManager(ctx)
	if err != nil {
		return err
	}

	printer := newEventPrinter(out, a.verbose)
	unsubscribe := mgr.Subscribe(printer.handle)
	defer unsubscribe()

	if err := mgr.Start(ctx); err != nil {
		return err
	}

	rejected := 0
	for i, rec := range records {
		if _, err := mgr.Submit(rec.URL, rec.Title); err != nil {
			fmt.Fprintf(out, "!! record %d: %v\n", i+1, err)
			rejected++
		}
	}

	waitErr := mgr.Wait(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := mgr.Close(closeCtx); err != nil {
		a.logger.Warn("download manager did not close cleanly", "error", err)
	}

	if a.settings.CreatePlaylist {
		if err := a.writePlaylist(out, mgr); err != nil {
			a.logger.Error("failed to write playlist", "error", err)
		}
	}

	stats := mgr.Stats()
	fmt.Fprintf(out, "\nDone: %d completed, %d failed", stats.Completed, stats.Failed+rejected)
	if stats.Queued > 0 {
		fmt.Fprintf(out, ", %d not started", stats.Queued)
	}
	fmt.Fprintln(out)

	if waitErr != nil && !errors.Is(waitErr, download.ErrClosed) {
		return waitErr
	}
	if stats.Failed+rejected+stats.Queued > 0 {
		return fmt.Errorf("%w: %d of %d", ErrJobsFailed, stats.Failed+rejected+stats.Queued, len(records))
	}
	return nil
}

func (a *app) writePlaylist(out io.Writer, mgr *download.Manager) error {
	entries := audio.EntriesFromJobs(mgr.Jobs())
	if len(entries) == 0 {
		return nil
	}

	format, err := audio.ParsePlaylistFormat(a.settings.PlaylistFormat)
	if err != nil {
		return err
	}

	name := "multi-dl " + time.Now().Format("2006-01-02 15-04-05")
	path, err := audio.NewPlaylistCreator(format, a.settings.M3UExtended).
		WritePlaylist(mgr.Settings().DownloadDirectory, name, entries)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Playlist: %s\n", path)
	return nil
}
