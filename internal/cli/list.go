package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Limit int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show pending and confirmed creations merged",
		Long: `Fetch the server's creations, drop pending entries that have landed or
expired, and print the merged view: pending entries first, then confirmed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := openSession(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			rec, err := s.reconciler(opts.RootOptions, nil)
			if err != nil {
				return err
			}
			view, err := rec.Sync(ctx)
			if err != nil {
				return err
			}
			if opts.Limit > 0 && len(view) > opts.Limit {
				view = view[:opts.Limit]
			}
			return writeRows(cmd.OutOrStdout(), opts.Format, rowsFromView(view))
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to print (0 = all)")

	return cmd
}
