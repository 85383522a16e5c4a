package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alexanderramin/arbor/internal/cli/formatter"
	"github.com/alexanderramin/arbor/internal/metrics"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect and drive the remote sync queue",
	}
	cmd.AddCommand(
		newSyncStatusCmd(app),
		newSyncDrainCmd(app),
		newSyncRunCmd(app),
		newSyncQueueCmd(app),
		newSyncRetryCmd(app),
	)
	return cmd
}

func newSyncStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the aggregate sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.ws().SyncStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSyncStatus(st, app.ws().RemoteEnabled(), app.now()))
			return nil
		},
	}
}

func newSyncDrainCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Push queued writes now",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.ws().Drain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDrainResult(res))
			return nil
		},
	}
}

func newSyncRunCmd(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drain continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = app.session.MetricsAddr
			}
			if addr != "" {
				srv := serveMetrics(ctx, addr)
				defer srv.Close()
				fmt.Fprintf(cmd.ErrOrStderr(), "metrics on http://%s/metrics\n", addr)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "syncing, press Ctrl-C to stop")
			return app.ws().Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func serveMetrics(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv
}

func newSyncQueueCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List pending remote writes of the selected project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			projectID := ""
			if !all {
				p, err := app.project(ctx)
				if err != nil {
					return err
				}
				projectID = p.ID
			}
			entries, err := app.ws().Queue(ctx, projectID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatQueue(entries, app.now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include every project")
	return cmd
}

func newSyncRetryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ENTRY_ID",
		Short: "Un-park a queue entry and clear its backoff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			if err := app.ws().RetryEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %d will be retried on the next drain.\n", id)
			return nil
		},
	}
}
