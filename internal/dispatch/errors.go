package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCredits is matched by *InsufficientCreditsError.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrGenericFailure is matched by *FailureError.
	ErrGenericFailure = errors.New("creation failed")
)

// InsufficientCreditsError is the server refusing a creation for lack of
// credits. Current is the balance the server reported.
type InsufficientCreditsError struct {
	Current  int64
	Required int64
	Message  string
}

func (e *InsufficientCreditsError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("insufficient credits (current %d): %s", e.Current, e.Message)
	}
	return fmt.Sprintf("insufficient credits (current %d)", e.Current)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// FailureError is every other failure. StatusCode is 0 for transport errors.
type FailureError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FailureError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("creation failed: %s", e.Message)
	}
	return fmt.Sprintf("creation failed: http %d: %s", e.StatusCode, e.Message)
}

func (e *FailureError) Is(target error) bool {
	return target == ErrGenericFailure
}

func (e *FailureError) Unwrap() error {
	return e.Err
}
