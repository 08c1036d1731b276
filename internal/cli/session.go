package cli

import (
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/creation-sync/internal/client"
	"github.com/PratikDhanave/creation-sync/internal/events"
	"github.com/PratikDhanave/creation-sync/internal/pending"
	"github.com/PratikDhanave/creation-sync/internal/reconcile"
)

// session is everything one command invocation needs, wired explicitly.
type session struct {
	logger  *log.Logger
	bus     *events.Bus
	storage *pending.FileStorage
	store   *pending.Store
	client  *client.HTTPClient
}

func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := io.Discard
	if opts.Verbose {
		out = cmd.ErrOrStderr()
	}
	logger := log.New(out, "creationctl: ", log.LstdFlags)

	storage, err := pending.NewFileStorage(opts.StateFile)
	if err != nil {
		return nil, err
	}
	bus := events.NewBus()
	return &session{
		logger:  logger,
		bus:     bus,
		storage: storage,
		store:   pending.NewStore(storage, bus, logger),
		client:  client.NewHTTPClient(opts.Server, opts.APIKey, nil),
	}, nil
}

func (s *session) reconciler(opts *RootOptions, onView func([]reconcile.Item)) (*reconcile.Reconciler, error) {
	return reconcile.New(s.store, s.client, reconcile.Options{
		TTL:    opts.TTL,
		OnView: onView,
		Logger: s.logger,
	})
}
