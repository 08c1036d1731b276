package client

import (
	"context"
	"sync"
	"time"

	"github.com/PratikDhanave/creation-sync/internal/models"
)

type Logger interface {
	Printf(format string, args ...any)
}

// Beaconer delivers creation requests that must outlive the code that issued
// them. SendBeacon hands the request to a detached goroutine and returns at
// once; Close waits for queued deliveries before the process exits, which is
// the process-level equivalent of the browser finishing a beacon after the
// page is gone.
type Beaconer struct {
	client      *HTTPClient
	logger      Logger
	maxInFlight int
	timeout     time.Duration

	mu       sync.Mutex
	closed   bool
	inFlight int
	wg       sync.WaitGroup
}

func NewBeaconer(client *HTTPClient, maxInFlight int, logger Logger) *Beaconer {
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	return &Beaconer{
		client:      client,
		logger:      logger,
		maxInFlight: maxInFlight,
		timeout:     30 * time.Second,
	}
}

// SendBeacon reports whether the request was queued. It returns false once
// Close has been called or when too many beacons are already in flight.
func (b *Beaconer) SendBeacon(req models.CreationRequest) bool {
	b.mu.Lock()
	if b.closed || b.inFlight >= b.maxInFlight {
		b.mu.Unlock()
		return false
	}
	b.inFlight++
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			b.inFlight--
			b.mu.Unlock()
			b.wg.Done()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := b.client.PostBeacon(ctx, req); err != nil && b.logger != nil {
			b.logger.Printf("beacon %s: %v", req.CreationToken, err)
		}
	}()
	return true
}

// Close stops accepting beacons and waits for queued ones or ctx.
func (b *Beaconer) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
