package events

import "sync"

// Kind names an event published on the Bus.
type Kind string

const (
	// PendingListChanged fires after every mutation of the pending entry store.
	PendingListChanged Kind = "pending-list-changed"
	// BalanceUpdated carries the credit balance last reported by the server.
	BalanceUpdated Kind = "balance-updated"
)

// Event is a process-local notification. Amount is only set for BalanceUpdated.
type Event struct {
	Kind   Kind   `json:"kind"`
	Amount *int64 `json:"amount,omitempty"`
}

// Balance builds a BalanceUpdated event.
func Balance(amount int64) Event {
	return Event{Kind: BalanceUpdated, Amount: &amount}
}

// Bus is a synchronous in-process pub/sub. Handlers run on the publisher's
// goroutine, in subscription order, outside the bus lock.
type Bus struct {
	mu    sync.RWMutex
	next  int
	order []int
	subs  map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: map[int]func(Event){}}
}

// Subscribe registers fn and returns a func that removes it. Calling the
// returned func more than once is safe.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
