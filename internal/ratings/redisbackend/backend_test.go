package redisbackend

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

var (
	_ ratings.Backend       = (*Backend)(nil)
	_ ratings.Subscriber    = (*Backend)(nil)
	_ ratings.HealthChecker = (*Backend)(nil)
)

// newTestBackend connects to REDIS_ADDR under a unique key, skipping when unset.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not provided")
	}
	key := fmt.Sprintf("bitebuzz:test:%d", time.Now().UnixNano())
	b := New(Options{Addr: addr, Key: key})
	ctx := context.Background()
	require.NoError(t, b.HealthCheck(ctx))
	t.Cleanup(func() {
		_ = b.client.Del(context.Background(), key).Err()
		_ = b.Close()
	})
	return b
}

func TestBackendAppendQuery(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Append(ctx, domain.RatingInput{ItemID: "mocktail", Value: 5, SubmittedBy: "u1"}))
	require.NoError(t, b.Append(ctx, domain.RatingInput{ItemID: "mocktail", Value: 4, SubmittedBy: "u1"}))
	assert.ErrorIs(t, b.Append(ctx, domain.RatingInput{ItemID: "", Value: 4}), domain.ErrInvalidItem)

	events, err := b.Query(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "u1", events[0].SubmittedBy)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestBackendQueryMalformed(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	require.NoError(t, b.client.RPush(ctx, b.key, "{not json").Err())

	_, err := b.Query(ctx)
	assert.ErrorIs(t, err, ratings.ErrMalformed)
}

func TestBackendSubscribe(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	changed := make(chan struct{}, 4)
	sub, err := b.Subscribe(ctx, func() { changed <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, b.Append(ctx, domain.RatingInput{ItemID: "bhel-poori", Value: 3}))
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification received")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

func TestBackendUnreachable(t *testing.T) {
	b := New(Options{Addr: "127.0.0.1:1"})
	defer b.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := b.Query(ctx)
	require.Error(t, err)
	assert.Error(t, b.HealthCheck(ctx))
}
