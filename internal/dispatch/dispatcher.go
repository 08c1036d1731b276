package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PratikDhanave/creation-sync/internal/client"
	"github.com/PratikDhanave/creation-sync/internal/events"
	"github.com/PratikDhanave/creation-sync/internal/models"
	"github.com/PratikDhanave/creation-sync/internal/pending"
	"github.com/PratikDhanave/creation-sync/internal/token"
)

// Mode selects the delivery transport.
type Mode int

const (
	// ModeForeground sends a normal request and cleans up the pending entry
	// when it completes.
	ModeForeground Mode = iota
	// ModeUnload is for submissions made right before the process (page) goes
	// away. Delivery survives teardown; the pending entry is left for the
	// reconciler's TTL sweep.
	ModeUnload
)

func (m Mode) String() string {
	switch m {
	case ModeForeground:
		return "foreground"
	case ModeUnload:
		return "unload"
	default:
		return "unknown"
	}
}

// Payload is what the caller wants created.
type Payload struct {
	TargetID   string
	Method     string
	Args       map[string]any
	MutateOfID string
}

// Creator issues a foreground creation request.
type Creator interface {
	CreateCreation(ctx context.Context, req models.CreationRequest) (client.CreateResult, error)
}

// BeaconSender queues a request that outlives its caller. It reports false
// when the transport is unavailable.
type BeaconSender interface {
	SendBeacon(req models.CreationRequest) bool
}

type Logger interface {
	Printf(format string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

// Hooks are optional callbacks fired once per foreground submission.
type Hooks struct {
	OnError   func(err error)
	OnSuccess func(o Outcome)
}

type Options struct {
	Creator Creator
	Beacon  BeaconSender
	Store   *pending.Store
	// Bus defaults to the store's bus.
	Bus    *events.Bus
	Tokens *token.Generator
	// Navigate is called with Destination once per submission.
	Navigate    func(destination string)
	Destination string
	// Refresh asks authoritative-list consumers to reload. Best effort; never awaited.
	Refresh func(ctx context.Context)
	Now     func() time.Time
	Logger  Logger
	// KeepaliveTimeout bounds the unload fallback request.
	KeepaliveTimeout time.Duration
}

// Dispatcher issues each creation exactly once and turns every outcome into
// pending-store mutations and bus events.
type Dispatcher struct {
	creator     Creator
	beacon      BeaconSender
	store       *pending.Store
	bus         *events.Bus
	tokens      *token.Generator
	navigate    func(string)
	destination string
	refresh     func(context.Context)
	now         func() time.Time
	logger      Logger
	keepalive   time.Duration

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

func New(opts Options) (*Dispatcher, error) {
	if opts.Creator == nil {
		return nil, errors.New("creator is required")
	}
	if opts.Store == nil {
		return nil, errors.New("pending store is required")
	}
	d := &Dispatcher{
		creator:     opts.Creator,
		beacon:      opts.Beacon,
		store:       opts.Store,
		bus:         opts.Bus,
		tokens:      opts.Tokens,
		navigate:    opts.Navigate,
		destination: opts.Destination,
		refresh:     opts.Refresh,
		now:         opts.Now,
		logger:      opts.Logger,
		keepalive:   opts.KeepaliveTimeout,
	}
	if d.bus == nil {
		d.bus = opts.Store.Bus()
	}
	if d.tokens == nil {
		d.tokens = token.NewGenerator()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		d.logger = discardLogger{}
	}
	if d.keepalive <= 0 {
		d.keepalive = 30 * time.Second
	}
	return d, nil
}

// Submit records a pending entry and dispatches the request. It never
// blocks on the network and never returns an error: outcomes arrive through
// the pending store, the bus, hooks and the returned Submission.
func (d *Dispatcher) Submit(ctx context.Context, p Payload, mode Mode, hooks Hooks) *Submission {
	tok := d.tokens.Token()
	sub := newSubmission(tok, d.tokens.EntryID(), mode)

	// The entry exists before any I/O starts.
	d.store.Add(pending.Entry{
		ID:        sub.EntryID,
		Token:     tok,
		Status:    pending.StatusPending,
		TargetID:  p.TargetID,
		Method:    p.Method,
		CreatedAt: d.now(),
	})

	if d.refresh != nil {
		d.goTracked(func() {
			d.refresh(context.WithoutCancel(ctx))
		})
	}

	req := models.CreationRequest{
		TargetID:      p.TargetID,
		Method:        p.Method,
		Args:          p.Args,
		CreationToken: tok,
		MutateOfID:    p.MutateOfID,
	}

	if mode == ModeUnload {
		// Hand the request off before navigating: navigation tears the caller down.
		d.deliverUnload(ctx, req)
		d.navigateAway()
		sub.finish(Outcome{Kind: OutcomeUnobserved, Token: tok})
		return sub
	}

	d.navigateAway()

	d.goTracked(func() {
		outcome := d.deliverForeground(ctx, req)
		d.store.Remove(tok)
		d.fireHooks(hooks, outcome)
		sub.finish(outcome)
	})
	return sub
}

// Wait blocks until all foreground requests, refreshes and unload fallbacks
// started before it was called have finished, or ctx is done. Submit keeps
// working after Wait, but its goroutines are no longer waited for.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// goTracked runs fn in a goroutine that Wait waits for, unless Wait has
// already started.
func (d *Dispatcher) goTracked(fn func()) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		go fn()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		fn()
	}()
}

func (d *Dispatcher) navigateAway() {
	if d.navigate != nil {
		d.navigate(d.destination)
	}
}

func (d *Dispatcher) deliverForeground(ctx context.Context, req models.CreationRequest) Outcome {
	res, err := d.creator.CreateCreation(ctx, req)
	if err != nil {
		classified := d.classify(err)
		d.logger.Printf("dispatch: creation %s failed: %v", req.CreationToken, classified)
		return Outcome{Kind: OutcomeFailed, Token: req.CreationToken, Err: classified}
	}

	if res.CreditsRemaining != nil {
		d.bus.Publish(events.Balance(*res.CreditsRemaining))
	}
	return Outcome{
		Kind:             OutcomeSucceeded,
		Token:            req.CreationToken,
		CreationID:       res.Creation.ID,
		CreditsRemaining: res.CreditsRemaining,
		Duplicate:        res.Duplicate,
	}
}

// classify maps a transport/HTTP error onto the two caller-facing kinds.
// Insufficient-credit rejections publish the balance the server reported;
// a rejection without one publishes nothing.
func (d *Dispatcher) classify(err error) error {
	httpErr, ok := client.AsHTTPError(err)
	if !ok {
		return &FailureError{Message: err.Error(), Err: err}
	}
	if httpErr.InsufficientCredits() {
		ice := &InsufficientCreditsError{Message: httpErr.Message}
		if httpErr.Required != nil {
			ice.Required = *httpErr.Required
		}
		if httpErr.Current != nil {
			ice.Current = *httpErr.Current
			d.bus.Publish(events.Balance(ice.Current))
		}
		return ice
	}
	return &FailureError{StatusCode: httpErr.StatusCode, Message: httpErr.Message, Err: err}
}

// deliverUnload prefers the beacon transport and falls back to a request
// detached from ctx. Neither path touches the pending store.
func (d *Dispatcher) deliverUnload(ctx context.Context, req models.CreationRequest) {
	if d.beacon != nil && d.beacon.SendBeacon(req) {
		return
	}

	d.goTracked(func() {
		kctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.keepalive)
		defer cancel()
		if _, err := d.creator.CreateCreation(kctx, req); err != nil {
			d.logger.Printf("dispatch: unload fallback for %s failed: %v", req.CreationToken, err)
		}
	})
}

func (d *Dispatcher) fireHooks(hooks Hooks, o Outcome) {
	switch o.Kind {
	case OutcomeFailed:
		if hooks.OnError != nil {
			hooks.OnError(o.Err)
		}
	case OutcomeSucceeded:
		if hooks.OnSuccess != nil {
			hooks.OnSuccess(o)
		}
	}
}
