package cli

import (
	"context"
	"fmt"

	"github.com/bowenkfan/multi-dl/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Long: `Run the download manager behind an HTTP API.

Jobs are submitted with POST /api/jobs and observed through GET /api/jobs
or the websocket stream at /api/events. Prometheus metrics are served at
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			mgr, err := a.newManager(ctx)
			if err != nil {
				return err
			}
			if err := mgr.Start(ctx); err != nil {
				return err
			}

			runErr := server.New(mgr, addr, a.logger).Run(ctx)

			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := mgr.Close(closeCtx); err != nil {
				a.logger.Warn("download manager did not close cleanly", "error", err)
			}

			if runErr != nil {
				return fmt.Errorf("serve: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	return cmd
}
