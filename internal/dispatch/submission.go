package dispatch

import "context"

// OutcomeKind is the terminal state of a submission.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeFailed
	// OutcomeUnobserved is every unload-mode submission: the response is
	// never seen locally.
	OutcomeUnobserved
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnobserved:
		return "unobserved"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one submission. Err is set only for
// OutcomeFailed and is an *InsufficientCreditsError or a *FailureError.
type Outcome struct {
	Kind             OutcomeKind
	Token            string
	CreationID       string
	CreditsRemaining *int64
	Duplicate        bool
	Err              error
}

// Submission tracks one Submit call. Callers never have to wait on it.
type Submission struct {
	Token   string
	EntryID string
	Mode    Mode

	done    chan struct{}
	outcome Outcome
}

func newSubmission(tok, entryID string, mode Mode) *Submission {
	return &Submission{Token: tok, EntryID: entryID, Mode: mode, done: make(chan struct{})}
}

func (s *Submission) finish(o Outcome) {
	s.outcome = o
	close(s.done)
}

// Done is closed once the outcome is known.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait returns the outcome, or ctx's error if it is done first.
func (s *Submission) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
