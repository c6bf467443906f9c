// Package feedback owns the in-memory rating state shown to consumers and
// mediates every read and write against the rating backend.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/leaderboard"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

// DefaultTimeout bounds every backend call unless Options.Timeout overrides it.
const DefaultTimeout = 4 * time.Second

const (
	msgDemoLeaderboard = "Rating backend is not configured. Using demo leaderboard."
	msgStoredLocally   = "Rating backend is not configured. Rating stored locally only."
)

// State is the read-only projection handed to consumers.
// An empty Error means no advisory message.
type State struct {
	Ratings domain.Snapshot `json:"ratings"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

func (s State) clone() State {
	s.Ratings = s.Ratings.Clone()
	return s
}

// Options controls engine behaviour.
type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Engine is the feedback state engine. Build one at startup and share it.
type Engine struct {
	backend ratings.Backend
	timeout time.Duration
	logger  *zap.Logger

	mu          sync.Mutex
	state       State
	watchers    map[int]chan State
	nextWatcher int

	keys   *keyQueue
	stream streamHub

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs an engine. A nil backend runs the engine in local-only mode:
// reads serve the demo leaderboard and writes never leave the process.
func New(backend ratings.Backend, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		backend:  backend,
		timeout:  timeout,
		logger:   logger.Named("feedback"),
		state:    State{Ratings: domain.Snapshot{}},
		watchers: make(map[int]chan State),
		keys:     newKeyQueue(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Configured reports whether a rating backend is attached.
func (e *Engine) Configured() bool {
	return e.backend != nil
}

// Backend exposes the attached backend, nil in local-only mode.
func (e *Engine) Backend() ratings.Backend {
	return e.backend
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Watch returns a channel that always holds the latest state. The current
// state is delivered immediately. Call the returned func to stop watching.
func (e *Engine) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)
	e.mu.Lock()
	if e.ctx.Err() != nil {
		ch <- e.state.clone()
		close(ch)
		e.mu.Unlock()
		return ch, func() {}
	}
	id := e.nextWatcher
	e.nextWatcher++
	e.watchers[id] = ch
	ch <- e.state.clone()
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.watchers[id]; ok {
			delete(e.watchers, id)
			close(ch)
		}
	}
}

// commit applies fn and publishes the result atomically.
func (e *Engine) commit(fn func(s *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
	e.publishLocked()
}

func (e *Engine) publishLocked() {
	for _, ch := range e.watchers {
		st := e.state.clone()
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

// FetchLeaderboard refreshes ratings from the backend. On failure the demo
// leaderboard is committed along with an advisory error, and the error is
// returned for logging; the engine stays usable.
func (e *Engine) FetchLeaderboard(ctx context.Context) error {
	if e.backend == nil {
		e.commit(func(s *State) {
			s.Ratings = domain.DemoSnapshot()
			s.Loading = false
			s.Error = msgDemoLeaderboard
		})
		return nil
	}

	e.commit(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	snapshot, err := e.query(ctx)
	if err != nil && ctx.Err() != nil {
		// The caller went away; the backend did not fail, so shared state keeps
		// its last good ratings.
		e.commit(func(s *State) {
			s.Loading = false
		})
		return fmt.Errorf("fetch leaderboard: %w", ctx.Err())
	}
	if err != nil {
		e.logger.Warn("leaderboard fetch failed, serving demo data", zap.Error(err))
		e.commit(func(s *State) {
			s.Ratings = domain.DemoSnapshot()
			s.Loading = false
			s.Error = describe(err)
		})
		return fmt.Errorf("fetch leaderboard: %w", err)
	}

	e.commit(func(s *State) {
		s.Ratings = snapshot
		s.Loading = false
	})
	return nil
}

func (e *Engine) query(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if sq, ok := e.backend.(ratings.SnapshotQuerier); ok {
		snapshot, err := sq.QuerySnapshot(ctx)
		if err != nil {
			return nil, err
		}
		return leaderboard.Normalize(snapshot), nil
	}
	events, err := e.backend.Query(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Aggregate(events), nil
}

// SubmitRating records value for itemID. The value is published before the
// backend confirms; a failed write restores the previous score (or removes
// the key if the item had none). Calls for the same item run one at a time.
// When SubmitRating returns, the reconcile or rollback is already committed.
func (e *Engine) SubmitRating(ctx context.Context, itemID string, value int, submitter string) error {
	if err := domain.ValidateRating(itemID, value); err != nil {
		return err
	}

	release, err := e.keys.acquire(ctx, itemID)
	if err != nil {
		return fmt.Errorf("submit rating: %w", err)
	}
	defer release()

	var previous int
	var hadPrevious bool
	e.commit(func(s *State) {
		if s.Ratings == nil {
			s.Ratings = domain.Snapshot{}
		}
		previous, hadPrevious = s.Ratings[itemID]
		s.Ratings[itemID] = value
	})

	if e.backend == nil {
		e.commit(func(s *State) {
			s.Error = msgStoredLocally
		})
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	err = e.backend.Append(writeCtx, domain.RatingInput{
		ItemID:      itemID,
		Value:       value,
		SubmittedBy: submitter,
	})
	cancel()
	if err != nil {
		e.logger.Warn("rating rejected, rolling back",
			zap.String("item", itemID), zap.Int("value", value), zap.Error(err))
		e.commit(func(s *State) {
			if hadPrevious {
				s.Ratings[itemID] = previous
			} else {
				delete(s.Ratings, itemID)
			}
			s.Error = describe(err)
		})
		return fmt.Errorf("submit rating: %w", err)
	}

	if err := e.FetchLeaderboard(ctx); err != nil {
		e.logger.Debug("reconcile after rating failed", zap.Error(err))
	}
	return nil
}

// Close tears down the live-update subscription and stops background work.
func (e *Engine) Close() error {
	e.cancel()
	e.stream.mu.Lock()
	e.stream.count = 0
	e.teardownLocked()
	e.stream.mu.Unlock()

	e.mu.Lock()
	for id, ch := range e.watchers {
		delete(e.watchers, id)
		close(ch)
	}
	e.mu.Unlock()
	return nil
}

// describe renders err as a one-line message for the UI.
func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Rating service timed out."
	case errors.Is(err, context.Canceled):
		return "Rating request was canceled."
	default:
		return "Unable to reach rating service: " + err.Error()
	}
}
