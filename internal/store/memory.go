package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/PratikDhanave/creation-sync/internal/models"
)

// MemoryStore is an in-process CreationStore with the same idempotency and
// debit semantics as PostgresStore. Used by handler tests and local runs
// without a database.
type MemoryStore struct {
	mu             sync.Mutex
	initialCredits int64
	balances       map[string]int64
	creations      map[string][]models.Creation // userID -> insertion order
	now            func() time.Time
}

var _ CreationStore = (*MemoryStore)(nil)

func NewMemoryStore(initialCredits int64) *MemoryStore {
	return &MemoryStore{
		initialCredits: initialCredits,
		balances:       map[string]int64{},
		creations:      map[string][]models.Creation{},
		now:            time.Now,
	}
}

// SetBalance overrides a user's balance.
func (m *MemoryStore) SetBalance(userID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = balance
}

func (m *MemoryStore) CreateCreation(_ context.Context, c models.Creation, cost int64) (CreateResult, error) {
	if c.UserID == "" || c.CreationToken == "" || c.ID == "" {
		return CreateResult{}, errors.New("userID/creationToken/id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.balanceLocked(c.UserID)
	for _, existing := range m.creations[c.UserID] {
		if existing.CreationToken == c.CreationToken {
			return CreateResult{Creation: existing, Balance: balance, Duplicate: true}, nil
		}
	}

	if balance < cost {
		return CreateResult{}, &InsufficientCreditsError{Current: balance, Required: cost}
	}

	if c.Args == nil {
		c.Args = map[string]any{}
	}
	c.CreatedAt = m.now().UTC()
	balance -= cost
	m.balances[c.UserID] = balance
	m.creations[c.UserID] = append(m.creations[c.UserID], c)

	return CreateResult{Creation: c, Balance: balance}, nil
}

func (m *MemoryStore) ListCreations(_ context.Context, userID string, limit int) ([]models.Creation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.creations[userID]
	out := make([]models.Creation, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(userID), nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) balanceLocked(userID string) int64 {
	balance, ok := m.balances[userID]
	if !ok {
		balance = m.initialCredits
		m.balances[userID] = balance
	}
	return balance
}
