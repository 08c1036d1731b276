package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/creation-sync/internal/events"
	"github.com/PratikDhanave/creation-sync/internal/reconcile"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Interval time.Duration
	Listen   string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the pending list continuously",
		Long: `Poll the server, garbage-collect landed and expired pending entries, and
print the merged view whenever it changes. With --listen, bus events are also
streamed to websocket clients at /events.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSync(ctx, opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 5*time.Second, "poll interval")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "address for the /events websocket stream (disabled when empty)")

	return cmd
}

func runSync(ctx context.Context, opts *SyncOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	// Sentinel so that an empty first view still prints.
	last := "\x00"
	rec, err := s.reconciler(opts.RootOptions, func(view []reconcile.Item) {
		key := viewKey(view)
		if key == last {
			return
		}
		last = key
		if err := writeRows(cmd.OutOrStdout(), opts.Format, rowsFromView(view)); err != nil {
			s.logger.Printf("print view: %v", err)
		}
	})
	if err != nil {
		return err
	}

	if opts.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/events", events.Handler(s.bus, s.logger))
		srv := &http.Server{Addr: opts.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Printf("events server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		s.logger.Printf("streaming events on %s/events", opts.Listen)
	}

	err = rec.Run(ctx, opts.Interval)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func viewKey(view []reconcile.Item) string {
	key := make([]byte, 0, len(view)*24)
	for _, it := range view {
		if it.Pending() {
			key = append(key, 'p')
		} else {
			key = append(key, 'c')
		}
		key = append(key, it.Token...)
		key = append(key, ',')
	}
	return string(key)
}
