package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/creation-sync/internal/client"
	"github.com/PratikDhanave/creation-sync/internal/dispatch"
	"github.com/PratikDhanave/creation-sync/internal/events"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	TargetID    string
	Method      string
	Args        []string
	MutateOfID  string
	Unload      bool
	Destination string
	Timeout     time.Duration
}

// submitResult is printed after the submission settles.
type submitResult struct {
	Token            string `json:"token"`
	Mode             string `json:"mode"`
	Outcome          string `json:"outcome"`
	CreationID       string `json:"creation_id,omitempty"`
	CreditsRemaining *int64 `json:"credits_remaining,omitempty"`
	Duplicate        bool   `json:"duplicate,omitempty"`
	Error            string `json:"error,omitempty"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a creation request",
		Long: `Submit a creation request with a fresh creation token.

The request is recorded in the session's pending list before it is sent.
With --unload the request is handed to a delivery that outlives the command
and the pending entry is left for the next reconcile pass.

Example:
  creationctl submit --target img_42 --method upscale --arg scale=2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TargetID, "target", "", "target id (required)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "creation method (required)")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "method argument as key=value; JSON values are decoded")
	cmd.Flags().StringVar(&opts.MutateOfID, "mutate-of", "", "id of the creation this one derives from")
	cmd.Flags().BoolVar(&opts.Unload, "unload", false, "use unload-safe delivery and skip local cleanup")
	cmd.Flags().StringVar(&opts.Destination, "destination", "/creations", "view to navigate to after submitting")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", time.Minute, "how long to wait for delivery before exiting")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

func runSubmit(ctx context.Context, opts *SubmitOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		return err
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	if opts.Format == "text" {
		s.bus.Subscribe(func(e events.Event) {
			if e.Kind == events.BalanceUpdated && e.Amount != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "balance: %d\n", *e.Amount)
			}
		})
	}

	rec, err := s.reconciler(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	beaconer := client.NewBeaconer(s.client, 0, s.logger)

	d, err := dispatch.New(dispatch.Options{
		Creator:     s.client,
		Beacon:      beaconer,
		Store:       s.store,
		Bus:         s.bus,
		Destination: opts.Destination,
		Navigate: func(dest string) {
			s.logger.Printf("navigate to %s", dest)
		},
		Refresh: func(ctx context.Context) {
			if _, err := rec.Sync(ctx); err != nil {
				s.logger.Printf("refresh failed: %v", err)
			}
		},
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	mode := dispatch.ModeForeground
	if opts.Unload {
		mode = dispatch.ModeUnload
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	sub := d.Submit(ctx, dispatch.Payload{
		TargetID:   opts.TargetID,
		Method:     opts.Method,
		Args:       args,
		MutateOfID: opts.MutateOfID,
	}, mode, dispatch.Hooks{})

	outcome, err := sub.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", sub.Token, err)
	}

	// Let detached deliveries finish before the process goes away.
	if err := beaconer.Close(waitCtx); err != nil {
		s.logger.Printf("beacon drain: %v", err)
	}
	if err := d.Wait(waitCtx); err != nil {
		s.logger.Printf("dispatcher drain: %v", err)
	}

	result := submitResult{
		Token:            outcome.Token,
		Mode:             mode.String(),
		Outcome:          outcome.Kind.String(),
		CreationID:       outcome.CreationID,
		CreditsRemaining: outcome.CreditsRemaining,
		Duplicate:        outcome.Duplicate,
	}
	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
	}
	if err := printSubmitResult(cmd, opts.Format, result); err != nil {
		return err
	}

	if outcome.Kind == dispatch.OutcomeFailed {
		var ice *dispatch.InsufficientCreditsError
		if errors.As(outcome.Err, &ice) {
			return fmt.Errorf("not enough credits (balance %d): %w", ice.Current, outcome.Err)
		}
		return outcome.Err
	}
	return nil
}

func printSubmitResult(cmd *cobra.Command, format string, r submitResult) error {
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "token: %s\n", r.Token)
	fmt.Fprintf(w, "mode: %s\n", r.Mode)
	fmt.Fprintf(w, "outcome: %s\n", r.Outcome)
	if r.CreationID != "" {
		fmt.Fprintf(w, "creation: %s\n", r.CreationID)
	}
	if r.Duplicate {
		fmt.Fprintln(w, "duplicate: true")
	}
	if r.Error != "" {
		fmt.Fprintf(w, "error: %s\n", r.Error)
	}
	return nil
}

// parseArgs turns key=value pairs into a map. Values that parse as JSON are
// decoded; anything else is kept as a string.
func parseArgs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", p)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}
