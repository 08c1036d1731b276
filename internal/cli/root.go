package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/creation-sync/internal/reconcile"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server    string
	APIKey    string
	StateFile string
	TTL       time.Duration
	Format    string // "json" | "text"
	Verbose   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for creationctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "creationctl",
		Short: "Submit creations and reconcile them against the server",
		Long: `creationctl submits creation requests with client-generated tokens, keeps the
in-flight ones in a session-scoped pending list, and merges that list with the
server's authoritative records.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.TTL <= 0 {
				return fmt.Errorf("invalid ttl %s: must be positive", opts.TTL)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("CREATION_SERVER", "http://127.0.0.1:8080"), "creation service base URL")
	cmd.PersistentFlags().StringVar(&opts.APIKey, "api-key", envOr("CREATION_API_KEY", "user-key-123"), "API key")
	cmd.PersistentFlags().StringVar(&opts.StateFile, "state-file", envOr("CREATION_STATE_FILE", defaultStateFile()), "session file holding pending entries")
	cmd.PersistentFlags().DurationVar(&opts.TTL, "ttl", durationEnvOr("CREATION_PENDING_TTL", reconcile.DefaultTTL), "how long unconfirmed entries stay visible")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// defaultStateFile scopes the pending list to the invoking shell, the
// closest thing a CLI has to a browser tab.
func defaultStateFile() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("creationctl-session-%d.json", os.Getppid()))
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func durationEnvOr(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
