package agent

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gotrike/internal/models"
	"gotrike/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scriptedFetcher replays a fixed sequence of poll results, repeating the
// last one once the script runs out.
type scriptedFetcher struct {
	mu     sync.Mutex
	script []pollResult
	calls  int
}

type pollResult struct {
	status models.RideStatus
	reason string
	err    error
}

func (f *scriptedFetcher) FetchRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++

	step := f.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	return &models.Ride{
		ID:                 rideID,
		Status:             step.status,
		CancellationReason: step.reason,
	}, nil
}

func watcherLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func fastWatcher(fetcher RideFetcher, store *ActiveRideStore, role models.UserType, t *testing.T) *RideWatcher {
	w := NewRideWatcher(fetcher, store, role, watcherLogger(t))
	w.interval = time.Millisecond
	return w
}

func TestWatchRiderStopsOnAccept(t *testing.T) {
	fetcher := &scriptedFetcher{script: []pollResult{
		{status: models.RideStatusPending},
		{status: models.RideStatusPending},
		{status: models.RideStatusAccepted},
	}}
	w := fastWatcher(fetcher, nil, models.UserTypeRider, t)

	var observed []models.RideStatus
	ride, err := w.Watch(context.Background(), primitive.NewObjectID(), WatchCallbacks{
		OnStatusChange: func(r *models.Ride) {
			observed = append(observed, r.Status)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusAccepted, ride.Status)
	assert.Equal(t, []models.RideStatus{models.RideStatusPending, models.RideStatusAccepted}, observed)
}

func TestWatchDriverStopsOnCompletion(t *testing.T) {
	fetcher := &scriptedFetcher{script: []pollResult{
		{status: models.RideStatusAccepted},
		{status: models.RideStatusInProgress},
		{status: models.RideStatusCompleted},
	}}
	w := fastWatcher(fetcher, nil, models.UserTypeDriver, t)

	ride, err := w.Watch(context.Background(), primitive.NewObjectID(), WatchCallbacks{})
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, ride.Status)
}

func TestWatchCancelledSurfacesReasonAndClearsCache(t *testing.T) {
	store := NewActiveRideStore(filepath.Join(t.TempDir(), "active_ride.json"))
	rideID := primitive.NewObjectID()
	require.NoError(t, store.Save(rideID, models.RideStatusPending))

	fetcher := &scriptedFetcher{script: []pollResult{
		{status: models.RideStatusPending},
		{status: models.RideStatusCancelled, reason: "driver unavailable"},
	}}
	w := fastWatcher(fetcher, store, models.UserTypeDriver, t)

	var gotReason string
	ride, err := w.Watch(context.Background(), rideID, WatchCallbacks{
		OnCancelled: func(r *models.Ride, reason string) {
			gotReason = reason
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusCancelled, ride.Status)
	assert.Equal(t, "driver unavailable", gotReason)

	cached, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cached, "a cancelled ride must not survive in the cache")
}

func TestWatchGivesUpAfterBoundedRetries(t *testing.T) {
	pollErr := errors.New("connection refused")
	fetcher := &scriptedFetcher{script: []pollResult{{err: pollErr}}}
	w := fastWatcher(fetcher, nil, models.UserTypeRider, t)

	gaveUp := false
	_, err := w.Watch(context.Background(), primitive.NewObjectID(), WatchCallbacks{
		OnGaveUp: func(err error) { gaveUp = true },
	})

	require.Error(t, err)
	assert.True(t, gaveUp)
	assert.LessOrEqual(t, fetcher.calls, 6, "retries must be bounded")
}

func TestWatchRecoversFromTransientErrors(t *testing.T) {
	fetcher := &scriptedFetcher{script: []pollResult{
		{err: errors.New("timeout")},
		{err: errors.New("timeout")},
		{status: models.RideStatusAccepted},
	}}
	w := fastWatcher(fetcher, nil, models.UserTypeRider, t)

	ride, err := w.Watch(context.Background(), primitive.NewObjectID(), WatchCallbacks{})
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, ride.Status)
}

func TestWatchContextCancellation(t *testing.T) {
	fetcher := &scriptedFetcher{script: []pollResult{{status: models.RideStatusPending}}}
	w := fastWatcher(fetcher, nil, models.UserTypeRider, t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := w.Watch(ctx, primitive.NewObjectID(), WatchCallbacks{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResumeWithEmptyCache(t *testing.T) {
	store := NewActiveRideStore(filepath.Join(t.TempDir(), "active_ride.json"))
	fetcher := &scriptedFetcher{script: []pollResult{{status: models.RideStatusPending}}}
	w := fastWatcher(fetcher, store, models.UserTypeRider, t)

	ride, err := w.Resume(context.Background(), WatchCallbacks{})
	require.NoError(t, err)
	assert.Nil(t, ride)
	assert.Equal(t, 0, fetcher.calls, "nothing cached means nothing to poll")
}

func TestResumePicksUpCachedRide(t *testing.T) {
	store := NewActiveRideStore(filepath.Join(t.TempDir(), "active_ride.json"))
	rideID := primitive.NewObjectID()
	require.NoError(t, store.Save(rideID, models.RideStatusPending))

	fetcher := &scriptedFetcher{script: []pollResult{{status: models.RideStatusAccepted}}}
	w := fastWatcher(fetcher, store, models.UserTypeRider, t)

	ride, err := w.Resume(context.Background(), WatchCallbacks{})
	require.NoError(t, err)
	require.NotNil(t, ride)
	assert.Equal(t, rideID, ride.ID)
	assert.Equal(t, models.RideStatusAccepted, ride.Status)
}
