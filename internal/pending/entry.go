package pending

import "time"

// Status of a pending entry. Failures remove the entry instead of
// transitioning it, so there is only one status.
type Status string

const StatusPending Status = "pending"

// Entry is a local placeholder for a creation the server has not confirmed yet.
type Entry struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Status    Status    `json:"status"`
	TargetID  string    `json:"target_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Age returns how long ago the entry was created, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
