package agent

import (
	"context"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/utils"
	"gotrike/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideFetcher reads the current state of one ride. The HTTP client used by
// the mobile shells implements it; tests use a fake.
type RideFetcher interface {
	FetchRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error)
}

// WatchCallbacks receive ride progress. All callbacks run on the watcher's
// goroutine; keep them short.
type WatchCallbacks struct {
	// OnStatusChange fires once per observed status change, including the
	// transition that stops the watcher.
	OnStatusChange func(ride *models.Ride)

	// OnCancelled fires with the recorded reason when the ride is cancelled.
	OnCancelled func(ride *models.Ride, reason string)

	// OnGaveUp fires after MaxPollRetries consecutive fetch errors.
	OnGaveUp func(err error)
}

// RideWatcher polls a ride until it reaches a state the watching party no
// longer needs to poll for.
type RideWatcher struct {
	fetcher  RideFetcher
	store    *ActiveRideStore
	role     models.UserType
	interval time.Duration
	logger   *logger.Logger
}

func NewRideWatcher(fetcher RideFetcher, store *ActiveRideStore, role models.UserType, log *logger.Logger) *RideWatcher {
	return &RideWatcher{
		fetcher:  fetcher,
		store:    store,
		role:     role,
		interval: utils.RidePollInterval,
		logger:   log,
	}
}

// Resume restores the cached active ride, if any, and watches it. The cache
// is the client's only memory of an in-flight ride across restarts; when it
// is empty there is nothing to do.
func (w *RideWatcher) Resume(ctx context.Context, callbacks WatchCallbacks) (*models.Ride, error) {
	if w.store == nil {
		return nil, nil
	}

	cached, err := w.store.Load()
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, nil
	}

	w.logger.WithRideID(cached.RideID).Info("Resuming cached active ride")
	return w.Watch(ctx, cached.RideID, callbacks)
}

// Watch polls until the ride reaches a stopping state for the watcher's role
// or the context is cancelled. It returns the last ride observed.
func (w *RideWatcher) Watch(ctx context.Context, rideID primitive.ObjectID, callbacks WatchCallbacks) (*models.Ride, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastStatus models.RideStatus
	var lastRide *models.Ride
	failures := 0

	for {
		ride, err := w.fetcher.FetchRide(ctx, rideID)
		if err != nil {
			failures++
			w.logger.WithError(err).WithRideID(rideID).Warnf("Ride poll failed (%d/%d)", failures, utils.MaxPollRetries)

			if failures >= utils.MaxPollRetries {
				if callbacks.OnGaveUp != nil {
					callbacks.OnGaveUp(err)
				}
				return lastRide, err
			}

			if err := w.sleep(ctx, w.backoff(failures)); err != nil {
				return lastRide, err
			}
			continue
		}
		failures = 0
		lastRide = ride

		if ride.Status != lastStatus {
			lastStatus = ride.Status
			if callbacks.OnStatusChange != nil {
				callbacks.OnStatusChange(ride)
			}

			if ride.Status == models.RideStatusCancelled {
				if w.store != nil {
					if err := w.store.Clear(); err != nil {
						w.logger.WithError(err).Warn("Failed to clear active ride cache")
					}
				}
				if callbacks.OnCancelled != nil {
					callbacks.OnCancelled(ride, ride.CancellationReason)
				}
				return ride, nil
			}

			if w.store != nil && !ride.Status.IsTerminal() {
				if err := w.store.Save(ride.ID, ride.Status); err != nil {
					w.logger.WithError(err).Warn("Failed to cache active ride")
				}
			}
		}

		if w.done(ride.Status) {
			if w.store != nil && ride.Status.IsTerminal() {
				if err := w.store.Clear(); err != nil {
					w.logger.WithError(err).Warn("Failed to clear active ride cache")
				}
			}
			return ride, nil
		}

		select {
		case <-ctx.Done():
			return lastRide, ctx.Err()
		case <-ticker.C:
		}
	}
}

// done reports whether the watcher's role has anything left to wait for. A
// rider waiting for pickup stops once a driver accepts; a driver on an
// active ride stops at completion; cancellation stops everyone.
func (w *RideWatcher) done(status models.RideStatus) bool {
	switch w.role {
	case models.UserTypeRider:
		return status != models.RideStatusPending
	default:
		return status == models.RideStatusCompleted || status == models.RideStatusCancelled
	}
}

func (w *RideWatcher) backoff(failures int) time.Duration {
	delay := w.interval * time.Duration(failures)
	if delay > utils.MaxPollBackoff {
		delay = utils.MaxPollBackoff
	}
	return delay
}

func (w *RideWatcher) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
