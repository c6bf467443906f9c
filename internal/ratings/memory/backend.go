// Package memory is an in-process rating backend, used for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

// Backend keeps rating events in memory and notifies subscribers after each append.
type Backend struct {
	mu      sync.RWMutex
	events  []domain.Rating
	subs    map[int]func()
	nextSub int
	now     func() time.Time
}

// New returns an empty backend seeded with the given events.
func New(seed ...domain.Rating) *Backend {
	events := make([]domain.Rating, len(seed))
	copy(events, seed)
	return &Backend{
		events: events,
		subs:   make(map[int]func()),
		now:    time.Now,
	}
}

// Query returns a copy of every stored event.
func (b *Backend) Query(ctx context.Context) ([]domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Rating, len(b.events))
	copy(out, b.events)
	return out, nil
}

// Append records a new event and notifies subscribers.
func (b *Backend) Append(ctx context.Context, in domain.RatingInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateRating(in.ItemID, in.Value); err != nil {
		return err
	}

	b.mu.Lock()
	b.events = append(b.events, domain.Rating{
		ID:          uuid.NewString(),
		ItemID:      in.ItemID,
		Value:       in.Value,
		SubmittedBy: in.SubmittedBy,
		SubmittedAt: b.now().UTC(),
	})
	callbacks := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		callbacks = append(callbacks, fn)
	}
	b.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// Subscribe registers onChange until the returned subscription is closed.
func (b *Backend) Subscribe(ctx context.Context, onChange func()) (ratings.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = onChange
	b.mu.Unlock()

	var once sync.Once
	return ratings.SubscriptionFunc(func() error {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
		return nil
	}), nil
}

// Subscribers reports the number of live subscriptions.
func (b *Backend) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// HealthCheck always succeeds.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
