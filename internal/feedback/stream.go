package feedback

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

// SubscriptionState tracks the push-channel registration.
type SubscriptionState int

const (
	Unsubscribed SubscriptionState = iota
	Subscribing
	Subscribed
)

func (s SubscriptionState) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	default:
		return "unsubscribed"
	}
}

// MarshalText renders the state name.
func (s SubscriptionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *SubscriptionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unsubscribed":
		*s = Unsubscribed
	case "subscribing":
		*s = Subscribing
	case "subscribed":
		*s = Subscribed
	default:
		return fmt.Errorf("feedback: unknown subscription state %q", text)
	}
	return nil
}

// StreamStatus describes live-update interest and the subscription state.
type StreamStatus struct {
	Subscribers int               `json:"subscribers"`
	State       SubscriptionState `json:"state"`
}

type streamHub struct {
	mu    sync.Mutex
	count int
	state SubscriptionState
	sub   ratings.Subscription
}

// StartLeaderboardStream registers interest in live updates. The first caller
// subscribes to the backend push channel; each push re-fetches the
// leaderboard. A failed subscribe only means no live updates.
func (e *Engine) StartLeaderboardStream(ctx context.Context) {
	if e.ctx.Err() != nil {
		return
	}
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()
	// Close may have torn the stream down while we waited for the lock.
	if e.ctx.Err() != nil {
		return
	}

	e.stream.count++
	if e.stream.count != 1 {
		return
	}
	subscriber, ok := e.backend.(ratings.Subscriber)
	if !ok {
		return
	}

	e.stream.state = Subscribing
	subCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	sub, err := subscriber.Subscribe(subCtx, e.onPush)
	if err != nil {
		e.stream.state = Unsubscribed
		e.logger.Warn("live leaderboard unavailable", zap.Error(err))
		return
	}
	e.stream.sub = sub
	e.stream.state = Subscribed
	e.logger.Debug("leaderboard stream subscribed")
}

// StopLeaderboardStream drops one unit of interest. The last one closes the
// subscription. Extra calls are ignored.
func (e *Engine) StopLeaderboardStream() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if e.stream.count == 0 {
		return
	}
	e.stream.count--
	if e.stream.count == 0 {
		e.teardownLocked()
	}
}

func (e *Engine) teardownLocked() {
	if e.stream.sub == nil {
		e.stream.state = Unsubscribed
		return
	}
	sub := e.stream.sub
	e.stream.sub = nil
	e.stream.state = Unsubscribed
	if err := sub.Close(); err != nil {
		e.logger.Warn("leaderboard stream teardown failed", zap.Error(err))
		return
	}
	e.logger.Debug("leaderboard stream closed")
}

func (e *Engine) onPush() {
	if e.ctx.Err() != nil {
		return
	}
	if err := e.FetchLeaderboard(e.ctx); err != nil {
		e.logger.Debug("refresh after push failed", zap.Error(err))
	}
}

// StreamStatus reports current stream interest.
func (e *Engine) StreamStatus() StreamStatus {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()
	return StreamStatus{Subscribers: e.stream.count, State: e.stream.state}
}

// StreamLease is one unit of live-update interest. Release is idempotent.
type StreamLease struct {
	once    sync.Once
	release func()
}

// Release gives the interest back.
func (l *StreamLease) Release() {
	l.once.Do(l.release)
}

// AcquireStream starts the stream and returns the lease that stops it.
// Pair it with defer lease.Release() so every exit path gives it back.
func (e *Engine) AcquireStream(ctx context.Context) *StreamLease {
	if e.ctx.Err() != nil {
		return &StreamLease{release: func() {}}
	}
	e.StartLeaderboardStream(ctx)
	return &StreamLease{release: e.StopLeaderboardStream}
}
