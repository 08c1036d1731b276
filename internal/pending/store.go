package pending

import (
	"sync"

	"github.com/PratikDhanave/creation-sync/internal/events"
	"github.com/PratikDhanave/creation-sync/internal/token"
)

type Logger interface {
	Printf(format string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

// Store is the ordered cache of in-flight creations, newest first, keyed by
// token. It is best-effort: storage failures are logged and swallowed, and
// the in-memory list is used whenever storage cannot be read or written.
//
// With a SharedStorage every read reloads the stored list and every mutation
// is applied to the stored list under its lock, so stores in different
// processes sharing one session file see each other's changes.
//
// Every mutation publishes events.PendingListChanged on the bus.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	storage Storage
	bus     *events.Bus
	logger  Logger
}

// NewStore loads any entries already in storage. A failing load starts the
// store empty.
func NewStore(storage Storage, bus *events.Bus, logger Logger) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = discardLogger{}
	}
	s := &Store{storage: storage, bus: bus, logger: logger}

	entries, err := storage.Load()
	if err != nil {
		logger.Printf("pending: load failed, starting empty: %v", err)
		entries = nil
	}
	s.entries = normalize(entries)
	return s
}

// Bus returns the bus mutations are announced on.
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// Add prepends entry. An existing entry with the same token is replaced so
// that at most one entry exists per token.
func (s *Store) Add(entry Entry) {
	if entry.Status == "" {
		entry.Status = StatusPending
	}

	s.mu.Lock()
	s.mutateLocked(func(entries []Entry) ([]Entry, bool) {
		next := make([]Entry, 0, len(entries)+1)
		next = append(next, entry)
		for _, e := range entries {
			if e.Token != entry.Token {
				next = append(next, e)
			}
		}
		return next, true
	})
	s.mu.Unlock()

	s.notify()
}

// Remove drops the entry for tok. Removing an absent token is a no-op.
func (s *Store) Remove(tok string) {
	s.RemoveWhere(func(e Entry) bool { return e.Token == tok })
}

// RemoveWhere drops every entry matching pred and reports how many were
// removed. Nothing is published when nothing matched.
func (s *Store) RemoveWhere(pred func(Entry) bool) int {
	removed := 0

	s.mu.Lock()
	s.mutateLocked(func(entries []Entry) ([]Entry, bool) {
		kept := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if !pred(e) {
				kept = append(kept, e)
			}
		}
		removed = len(entries) - len(kept)
		return kept, removed > 0
	})
	s.mu.Unlock()

	if removed > 0 {
		s.notify()
	}
	return removed
}

// List returns a copy of the entries, newest first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return append([]Entry(nil), s.entries...)
}

// Get returns the entry for tok, if present.
func (s *Store) Get(tok string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	for _, e := range s.entries {
		if e.Token == tok {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return len(s.entries)
}

// mutateLocked applies fn to the authoritative list: the stored one for
// shared storage, the in-memory one otherwise. fn reports whether it changed
// anything; unchanged lists are not written back.
func (s *Store) mutateLocked(fn func([]Entry) ([]Entry, bool)) {
	shared, ok := s.storage.(SharedStorage)
	if !ok {
		next, changed := fn(s.entries)
		if changed {
			s.entries = next
			s.persistLocked()
		}
		return
	}

	next, err := shared.Mutate(func(stored []Entry) []Entry {
		stored = normalize(stored)
		if next, changed := fn(stored); changed {
			return next
		}
		return stored
	})
	if err != nil {
		s.logger.Printf("pending: save failed, keeping in-memory list: %v", err)
		if next, changed := fn(s.entries); changed {
			s.entries = next
		}
		return
	}
	s.entries = next
}

func (s *Store) refreshLocked() {
	shared, ok := s.storage.(SharedStorage)
	if !ok {
		return
	}
	entries, err := shared.Load()
	if err != nil {
		s.logger.Printf("pending: reload failed, using in-memory list: %v", err)
		return
	}
	s.entries = normalize(entries)
}

func (s *Store) persistLocked() {
	if err := s.storage.Save(s.entries); err != nil {
		s.logger.Printf("pending: save failed, keeping in-memory list: %v", err)
	}
}

func (s *Store) notify() {
	s.bus.Publish(events.Event{Kind: events.PendingListChanged})
}

// normalize keeps the first (newest) entry per token and drops entries whose
// token is malformed, such as those from a hand-edited session file.
func normalize(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !token.Valid(e.Token) {
			continue
		}
		if _, ok := seen[e.Token]; ok {
			continue
		}
		seen[e.Token] = struct{}{}
		out = append(out, e)
	}
	return out
}
