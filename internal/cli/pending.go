package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	Clear bool
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show the session's pending entries without contacting the server",
		Long: `Show the session's pending entries without contacting the server.

With --clear the session file is deleted instead, ending the session. Entries
that have not landed yet will then only show up once the server lists them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			if opts.Clear {
				if err := s.storage.Clear(); err != nil {
					return fmt.Errorf("clear %s: %w", s.storage.Path(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", s.storage.Path())
				return nil
			}
			return writeRows(cmd.OutOrStdout(), opts.Format, rowsFromEntries(s.store.List()))
		},
	}

	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "delete the session file")

	return cmd
}
