package feedback

import (
	"context"
	"errors"
	"sync"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

var errBackendDown = errors.New("backend down")

// fakeBackend records calls and lets tests script failures and blocking.
type fakeBackend struct {
	mu     sync.Mutex
	events []domain.Rating

	queryErr     error
	queryHook    func(ctx context.Context) error
	queries      int
	appendHook   func(ctx context.Context, in domain.RatingInput) error
	appends      []domain.RatingInput
	subscribeErr error
	closeErr     error
	subscribes   int
	closes       int
	onChange     func()
}

func newFakeBackend(seed ...domain.Rating) *fakeBackend {
	return &fakeBackend{events: append([]domain.Rating(nil), seed...)}
}

func (f *fakeBackend) Query(ctx context.Context) ([]domain.Rating, error) {
	f.mu.Lock()
	f.queries++
	hook := f.queryHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return append([]domain.Rating(nil), f.events...), nil
}

func (f *fakeBackend) Append(ctx context.Context, in domain.RatingInput) error {
	f.mu.Lock()
	hook := f.appendHook
	f.appends = append(f.appends, in)
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, in); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.events = append(f.events, domain.Rating{ItemID: in.ItemID, Value: in.Value, SubmittedBy: in.SubmittedBy})
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, onChange func()) (ratings.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.onChange = onChange
	return ratings.SubscriptionFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closes++
		f.onChange = nil
		return f.closeErr
	}), nil
}

// push simulates a backend change notification.
func (f *fakeBackend) push() {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeBackend) addEvent(itemID string, value int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, domain.Rating{ItemID: itemID, Value: value})
}

func (f *fakeBackend) counts() (subscribes, closes, queries int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes, f.closes, f.queries
}

// snapshotOnly serves a pre-aggregated snapshot.
type snapshotOnly struct {
	*fakeBackend
	snapshot domain.Snapshot
}

func (s snapshotOnly) QuerySnapshot(ctx context.Context) (domain.Snapshot, error) {
	return s.snapshot, nil
}
