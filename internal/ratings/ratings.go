// Package ratings defines the contract of a remote rating store and the
// capabilities a realization may optionally provide.
package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
)

var (
	// ErrUnavailable wraps transport failures talking to a backend.
	ErrUnavailable = errors.New("ratings: backend unavailable")
	// ErrMalformed wraps payloads that could not be decoded.
	ErrMalformed = errors.New("ratings: malformed response")
)

// StatusError reports a non-success status from a REST backend.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ratings: upstream returned %d", e.Code)
}

// Backend queries and appends rating events. Ratings are never updated or deleted.
type Backend interface {
	Query(ctx context.Context) ([]domain.Rating, error)
	Append(ctx context.Context, in domain.RatingInput) error
}

// SnapshotQuerier is implemented by backends that aggregate server-side.
type SnapshotQuerier interface {
	QuerySnapshot(ctx context.Context) (domain.Snapshot, error)
}

// Subscriber is implemented by backends with a push channel. onChange only
// signals that data changed; callers re-query instead of trusting a payload.
type Subscriber interface {
	Subscribe(ctx context.Context, onChange func()) (Subscription, error)
}

// Subscription is a live push-channel registration.
type Subscription interface {
	Close() error
}

// HealthChecker is implemented by backends that can verify connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func() error

// Close calls f.
func (f SubscriptionFunc) Close() error { return f() }
