package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/PratikDhanave/creation-sync/internal/models"
)

// ErrInsufficientCredits is matched by *InsufficientCreditsError.
var ErrInsufficientCredits = errors.New("insufficient credits")

// InsufficientCreditsError reports the balance at the time the debit was refused.
type InsufficientCreditsError struct {
	Current  int64
	Required int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %d, need %d", e.Current, e.Required)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// CreateResult is the outcome of an idempotent create.
// Duplicate is true when the creation token was already persisted; no credits
// are debited in that case.
type CreateResult struct {
	Creation  models.Creation
	Balance   int64
	Duplicate bool
}

// CreationStore is the persistence boundary used by the HTTP handlers.
type CreationStore interface {
	// CreateCreation debits cost credits and persists c atomically.
	// Creation identity is (c.UserID, c.CreationToken).
	CreateCreation(ctx context.Context, c models.Creation, cost int64) (CreateResult, error)
	// ListCreations returns the user's creations newest first.
	ListCreations(ctx context.Context, userID string, limit int) ([]models.Creation, error)
	// Balance returns the user's credit balance, provisioning it on first use.
	Balance(ctx context.Context, userID string) (int64, error)
	Ping(ctx context.Context) error
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ClampLimit normalises a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
