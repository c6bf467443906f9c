// Package redisbackend keeps rating events in a Redis list and signals
// changes over Redis Pub/Sub.
package redisbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

// DefaultKey is the list holding rating events.
const DefaultKey = "bitebuzz:feedback_votes"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Logger   *zap.Logger
}

type event struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"dishId"`
	Value       int       `json:"rating"`
	SubmittedBy string    `json:"userId,omitempty"`
	SubmittedAt time.Time `json:"createdAt"`
}

// Backend implements ratings.Backend on Redis.
type Backend struct {
	client  *redis.Client
	key     string
	channel string
	logger  *zap.Logger
}

// New creates a backend. The connection is lazy; call HealthCheck to verify it.
func New(opts Options) *Backend {
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		key:     key,
		channel: key + ":changed",
		logger:  logger.Named("redis"),
	}
}

// Query decodes every stored event. Undecodable entries fail the query.
func (b *Backend) Query(ctx context.Context) ([]domain.Rating, error) {
	raw, err := b.client.LRange(ctx, b.key, 0, -1).Result()
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]domain.Rating, 0, len(raw))
	for _, item := range raw {
		var ev event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ratings.ErrMalformed, err)
		}
		out = append(out, domain.Rating{
			ID:          ev.ID,
			ItemID:      ev.ItemID,
			Value:       ev.Value,
			SubmittedBy: ev.SubmittedBy,
			SubmittedAt: ev.SubmittedAt,
		})
	}
	return out, nil
}

// Append pushes the event and publishes a change notice in one transaction.
func (b *Backend) Append(ctx context.Context, in domain.RatingInput) error {
	if err := domain.ValidateRating(in.ItemID, in.Value); err != nil {
		return err
	}
	payload, err := json.Marshal(event{
		ID:          uuid.NewString(),
		ItemID:      in.ItemID,
		Value:       in.Value,
		SubmittedBy: in.SubmittedBy,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, b.key, payload)
		pipe.Publish(ctx, b.channel, in.ItemID)
		return nil
	})
	return wrap(err)
}

// HealthCheck pings Redis.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return wrap(b.client.Ping(ctx).Err())
}

// Subscribe listens on the change channel until the subscription is closed.
func (b *Backend) Subscribe(ctx context.Context, onChange func()) (ratings.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, wrap(err))
	}

	sub := &subscription{pubsub: pubsub}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		for range pubsub.Channel() {
			onChange()
		}
	}()
	return sub, nil
}

// Close releases the client.
func (b *Backend) Close() error {
	return b.client.Close()
}

type subscription struct {
	pubsub *redis.PubSub
	once   sync.Once
	wg     sync.WaitGroup
	err    error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
		s.wg.Wait()
	})
	return s.err
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
