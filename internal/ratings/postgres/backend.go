// Package postgres stores rating events in Postgres and uses LISTEN/NOTIFY
// as the push channel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
	"github.com/Clark-Hu/bitebuzz/internal/repository"
	"github.com/Clark-Hu/bitebuzz/internal/store"
)

// NotifyChannel is the channel the feedback_votes trigger notifies on insert.
const NotifyChannel = "feedback_votes_changed"

const (
	minReconnect = 250 * time.Millisecond
	maxReconnect = 10 * time.Second
	pingInterval = 90 * time.Second
)

// Backend implements ratings.Backend over the feedback_votes table.
type Backend struct {
	store  *store.Store
	votes  *repository.VotesRepository
	logger *zap.Logger
}

// New builds a backend on an initialized store.
func New(st *store.Store, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		store:  st,
		votes:  repository.New(st).Votes,
		logger: logger.Named("postgres"),
	}
}

// Query returns every vote.
func (b *Backend) Query(ctx context.Context) ([]domain.Rating, error) {
	votes, err := b.votes.List(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return votes, nil
}

// QuerySnapshot aggregates in SQL.
func (b *Backend) QuerySnapshot(ctx context.Context) (domain.Snapshot, error) {
	snapshot, err := b.votes.Averages(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return snapshot, nil
}

// Append inserts one vote.
func (b *Backend) Append(ctx context.Context, in domain.RatingInput) error {
	if err := domain.ValidateRating(in.ItemID, in.Value); err != nil {
		return err
	}
	_, err := b.votes.Insert(ctx, repository.VoteInsertParams{
		DishID: in.ItemID,
		Rating: in.Value,
		UserID: in.SubmittedBy,
	})
	if err != nil {
		return wrap(err)
	}
	return nil
}

// HealthCheck pings the pool.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.store.HealthCheck(ctx)
}

// Subscribe opens a dedicated LISTEN connection. ctx bounds only the initial
// LISTEN; the subscription lives until Close.
func (b *Backend) Subscribe(ctx context.Context, onChange func()) (ratings.Subscription, error) {
	listener := pq.NewListener(b.store.DSN(), minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			b.logger.Warn("listener connection problem", zap.Error(err))
		case pq.ListenerEventReconnected:
			b.logger.Info("listener reconnected")
		}
	})

	listenErr := make(chan error, 1)
	go func() { listenErr <- listener.Listen(NotifyChannel) }()

	select {
	case err := <-listenErr:
		if err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("listen %s: %w", NotifyChannel, wrap(err))
		}
	case <-ctx.Done():
		_ = listener.Close()
		<-listenErr
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, ctx.Err())
	}

	sub := &subscription{
		listener: listener,
		done:     make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.run(onChange, b.logger)
	b.logger.Debug("listening for vote notifications")
	return sub, nil
}

type subscription struct {
	listener *pq.Listener
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
	closeErr error
}

func (s *subscription) run(onChange func(), logger *zap.Logger) {
	defer s.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			// A nil notification follows a reconnect; events may have been missed.
			if n == nil {
				logger.Debug("listener resynced")
			}
			onChange()
		case <-ticker.C:
			if err := s.listener.Ping(); err != nil {
				logger.Debug("listener ping failed", zap.Error(err))
			}
		}
	}
}

// Close stops the notification loop and closes the LISTEN connection.
func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.closeErr = s.listener.Close()
		s.wg.Wait()
	})
	return s.closeErr
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ratings.ErrUnavailable, err)
}
