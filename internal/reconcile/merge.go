package reconcile

import (
	"time"

	"github.com/PratikDhanave/creation-sync/internal/models"
	"github.com/PratikDhanave/creation-sync/internal/pending"
)

// DefaultTTL bounds how long an unconfirmed pending entry stays visible.
const DefaultTTL = 5 * time.Minute

// Item is one row of the merged view: exactly one of Entry or Creation is set.
type Item struct {
	Token    string
	Entry    *pending.Entry
	Creation *models.Creation
}

// Pending reports whether the item is an unconfirmed local entry.
func (i Item) Pending() bool {
	return i.Entry != nil
}

// Stale reports whether e has outlived ttl at now.
func Stale(e pending.Entry, now time.Time, ttl time.Duration) bool {
	return e.Age(now) > ttl
}

// Merge builds the merged view: pending entries that are neither confirmed
// (a record with the same creation token exists) nor stale, newest first,
// followed by the confirmed records in the order given. Each token appears
// at most once.
func Merge(confirmed []models.Creation, entries []pending.Entry, now time.Time, ttl time.Duration) []Item {
	landed := confirmedTokens(confirmed)

	out := make([]Item, 0, len(entries)+len(confirmed))
	seen := make(map[string]struct{}, len(entries)+len(confirmed))
	for i := range entries {
		e := entries[i]
		if _, ok := landed[e.Token]; ok {
			continue
		}
		if Stale(e, now, ttl) {
			continue
		}
		if _, ok := seen[e.Token]; ok {
			continue
		}
		seen[e.Token] = struct{}{}
		out = append(out, Item{Token: e.Token, Entry: &e})
	}
	for i := range confirmed {
		c := confirmed[i]
		if c.CreationToken != "" {
			if _, ok := seen[c.CreationToken]; ok {
				continue
			}
			seen[c.CreationToken] = struct{}{}
		}
		out = append(out, Item{Token: c.CreationToken, Creation: &c})
	}
	return out
}

func confirmedTokens(confirmed []models.Creation) map[string]struct{} {
	tokens := make(map[string]struct{}, len(confirmed))
	for _, c := range confirmed {
		if c.CreationToken != "" {
			tokens[c.CreationToken] = struct{}{}
		}
	}
	return tokens
}
