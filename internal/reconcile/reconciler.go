package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/PratikDhanave/creation-sync/internal/models"
	"github.com/PratikDhanave/creation-sync/internal/pending"
)

// Lister fetches the authoritative records, newest first.
type Lister interface {
	ListCreations(ctx context.Context, limit int) ([]models.Creation, error)
}

type Logger interface {
	Printf(format string, args ...any)
}

type Options struct {
	TTL   time.Duration
	Limit int
	Now   func() time.Time
	// OnView receives the merged view after every successful Sync.
	OnView func([]Item)
	Logger Logger
}

// Reconciler garbage-collects the pending store against the server's list.
// Removal is idempotent, so it is safe to run alongside the dispatcher.
type Reconciler struct {
	store  *pending.Store
	lister Lister
	ttl    time.Duration
	limit  int
	now    func() time.Time
	onView func([]Item)
	logger Logger
}

func New(store *pending.Store, lister Lister, opts Options) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("pending store is required")
	}
	if lister == nil {
		return nil, errors.New("lister is required")
	}
	r := &Reconciler{
		store:  store,
		lister: lister,
		ttl:    opts.TTL,
		limit:  opts.Limit,
		now:    opts.Now,
		onView: opts.OnView,
		logger: opts.Logger,
	}
	if r.ttl <= 0 {
		r.ttl = DefaultTTL
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

func (r *Reconciler) TTL() time.Duration {
	return r.ttl
}

// Sweep drops stale entries and reports how many were removed.
func (r *Reconciler) Sweep() int {
	now := r.now()
	return r.store.RemoveWhere(func(e pending.Entry) bool { return Stale(e, now, r.ttl) })
}

// Sync fetches the confirmed list, drops entries that have landed or gone
// stale, and returns the merged view.
func (r *Reconciler) Sync(ctx context.Context) ([]Item, error) {
	confirmed, err := r.lister.ListCreations(ctx, r.limit)
	if err != nil {
		// Staleness does not depend on the server.
		r.Sweep()
		return nil, err
	}

	now := r.now()
	landed := confirmedTokens(confirmed)
	r.store.RemoveWhere(func(e pending.Entry) bool {
		if _, ok := landed[e.Token]; ok {
			return true
		}
		return Stale(e, now, r.ttl)
	})

	view := Merge(confirmed, r.store.List(), now, r.ttl)
	if r.onView != nil {
		r.onView(view)
	}
	return view, nil
}

// View merges without touching the store.
func (r *Reconciler) View(confirmed []models.Creation) []Item {
	return Merge(confirmed, r.store.List(), r.now(), r.ttl)
}

// Run calls Sync every interval until ctx is done. Sync errors are logged
// and the loop continues.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sync(ctx); err != nil && ctx.Err() == nil && r.logger != nil {
			r.logger.Printf("reconcile: sync failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
