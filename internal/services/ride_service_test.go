package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/utils"
	"gotrike/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stubDirections always returns a fixed estimated route.
type stubDirections struct{}

func (stubDirections) GetRoute(ctx context.Context, pickup, dropoff models.Location) *models.Route {
	return &models.Route{
		EncodedPolyline: "stub",
		DistanceKM:      1.0,
		DurationSec:     180,
		Estimated:       true,
		CreatedAt:       time.Now(),
	}
}

func newTestRideService(t *testing.T, users ...*models.User) (RideService, *fakeRideRepo, *fakeUserRepo) {
	t.Helper()
	rideRepo := newFakeRideRepo()
	userRepo := newFakeUserRepo(users...)
	svc := NewRideService(rideRepo, userRepo, stubDirections{}, testLogger())
	return svc, rideRepo, userRepo
}

func activeRider() *models.User {
	return &models.User{
		ID:          primitive.NewObjectID(),
		DisplayName: "Maria Santos",
		Phone:       "+639170000001",
		UserType:    models.UserTypeRider,
		Status:      models.UserStatusActive,
		TodaGroup:   "san-isidro-toda",
	}
}

func activeDriver() *models.User {
	return &models.User{
		ID:          primitive.NewObjectID(),
		DisplayName: "Jun Reyes",
		Phone:       "+639170000002",
		UserType:    models.UserTypeDriver,
		Status:      models.UserStatusActive,
		TodaGroup:   "san-isidro-toda",
	}
}

func bookingFor(rider *models.User) *BookRideInput {
	return &BookRideInput{
		RiderID:     rider.ID,
		PickupName:  "Olongapo Public Market",
		PickupLat:   14.88,
		PickupLon:   120.85,
		DropoffName: "Barangay Hall",
		DropoffLat:  15.18,
		DropoffLon:  120.59,
		DistanceKM:  35.4,
		Fare:        708,
	}
}

func TestBookRide(t *testing.T) {
	rider := activeRider()
	svc, _, _ := newTestRideService(t, rider)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusPending, ride.Status)
	assert.Nil(t, ride.DriverID)
	assert.Equal(t, rider.ID, ride.RiderID)
	assert.Equal(t, "Maria Santos", ride.RiderName)
	assert.Equal(t, "san-isidro-toda", ride.TodaGroup)
	assert.Equal(t, 35.4, ride.DistanceKM)
	assert.Equal(t, 708.0, ride.Fare)
	assert.True(t, strings.HasPrefix(ride.RideNumber, "TRK-"))
	require.NotNil(t, ride.Route)
	assert.True(t, ride.Route.Estimated)
}

func TestBookRideValidation(t *testing.T) {
	rider := activeRider()
	svc, _, _ := newTestRideService(t, rider)

	tests := []struct {
		name   string
		mutate func(*BookRideInput)
	}{
		{"missing rider", func(in *BookRideInput) { in.RiderID = primitive.NilObjectID }},
		{"missing pickup name", func(in *BookRideInput) { in.PickupName = "  " }},
		{"zero coordinates", func(in *BookRideInput) { in.DropoffLat, in.DropoffLon = 0, 0 }},
		{"latitude out of range", func(in *BookRideInput) { in.PickupLat = 91 }},
		{"zero distance", func(in *BookRideInput) { in.DistanceKM = 0 }},
		{"negative fare", func(in *BookRideInput) { in.Fare = -10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := bookingFor(rider)
			tt.mutate(input)

			_, err := svc.BookRide(context.Background(), input)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "got %v", err)
		})
	}
}

func TestBookRideUnknownRider(t *testing.T) {
	svc, _, _ := newTestRideService(t)

	input := bookingFor(activeRider())
	_, err := svc.BookRide(context.Background(), input)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestBookRideBannedRider(t *testing.T) {
	rider := activeRider()
	rider.Status = models.UserStatusBanned
	svc, _, _ := newTestRideService(t, rider)

	_, err := svc.BookRide(context.Background(), bookingFor(rider))
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestAssignDriver(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	accepted, err := svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.DriverID)
	assert.Equal(t, driver.ID, *accepted.DriverID)
	assert.NotNil(t, accepted.AcceptedAt)
}

func TestAssignDriverConcurrentExactlyOneWinner(t *testing.T) {
	rider := activeRider()
	drivers := make([]*models.User, 10)
	users := []*models.User{rider}
	for i := range drivers {
		drivers[i] = activeDriver()
		users = append(users, drivers[i])
	}
	svc, _, _ := newTestRideService(t, users...)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, len(drivers))
	winners := make([]*models.Ride, len(drivers))

	for i, driver := range drivers {
		wg.Add(1)
		go func(i int, driverID primitive.ObjectID) {
			defer wg.Done()
			winners[i], results[i] = svc.AssignDriver(context.Background(), ride.ID, driverID)
		}(i, driver.ID)
	}
	wg.Wait()

	won := 0
	var winner *models.Ride
	for i, err := range results {
		if err == nil {
			won++
			winner = winners[i]
		} else {
			assert.True(t, apperrors.Is(err, apperrors.CodeConflict), "loser got %v", err)
		}
	}
	require.Equal(t, 1, won, "exactly one driver must win the ride")

	stored, err := svc.GetRide(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, stored.Status)
	assert.Equal(t, *winner.DriverID, *stored.DriverID)
}

func TestAssignDriverRejectsNonDriver(t *testing.T) {
	rider := activeRider()
	impostor := activeRider()
	svc, _, _ := newTestRideService(t, rider, impostor)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	_, err = svc.AssignDriver(context.Background(), ride.ID, impostor.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidRole))
}

func TestAssignDriverMissingRide(t *testing.T) {
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, driver)

	_, err := svc.AssignDriver(context.Background(), primitive.NewObjectID(), driver.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestAssignDriverBanned(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	driver.Status = models.UserStatusBanned
	svc, _, _ := newTestRideService(t, rider, driver)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	_, err = svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestAdvanceStatusHappyPath(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	require.NoError(t, err)

	inProgress, err := svc.AdvanceStatus(context.Background(), ride.ID, models.RideStatusInProgress, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusInProgress, inProgress.Status)
	assert.NotNil(t, inProgress.StartedAt)

	completed, err := svc.AdvanceStatus(context.Background(), ride.ID, models.RideStatusCompleted, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.Status.IsTerminal())
}

func TestAdvanceStatusTransitionTable(t *testing.T) {
	tests := []struct {
		name      string
		from      models.RideStatus
		requested models.RideStatus
		legal     bool
	}{
		{"pending to in_progress", models.RideStatusPending, models.RideStatusInProgress, false},
		{"pending to completed", models.RideStatusPending, models.RideStatusCompleted, false},
		{"accepted to in_progress", models.RideStatusAccepted, models.RideStatusInProgress, true},
		{"accepted to completed", models.RideStatusAccepted, models.RideStatusCompleted, false},
		{"in_progress to completed", models.RideStatusInProgress, models.RideStatusCompleted, true},
		{"completed to in_progress", models.RideStatusCompleted, models.RideStatusInProgress, false},
		{"cancelled to in_progress", models.RideStatusCancelled, models.RideStatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rider := activeRider()
			driver := activeDriver()
			svc, rideRepo, _ := newTestRideService(t, rider, driver)

			ride, err := svc.BookRide(context.Background(), bookingFor(rider))
			require.NoError(t, err)

			// Force the starting state directly in the store.
			rideRepo.mu.Lock()
			stored := rideRepo.rides[ride.ID]
			stored.Status = tt.from
			if tt.from != models.RideStatusPending {
				stored.DriverID = &driver.ID
			}
			rideRepo.mu.Unlock()

			_, err = svc.AdvanceStatus(context.Background(), ride.ID, tt.requested, driver.ID)
			if tt.legal {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.Is(err, apperrors.CodeConflict), "got %v", err)
			}
		})
	}
}

func TestAdvanceStatusOnlyAssignedDriver(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	other := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver, other)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(context.Background(), ride.ID, models.RideStatusInProgress, other.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestAdvanceStatusIdempotentRetryConflicts(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(context.Background(), ride.ID, models.RideStatusInProgress, driver.ID)
	require.NoError(t, err)

	// Replaying the same transition is a conflict, not a silent success; the
	// client re-fetches and sees the ride already in progress.
	_, err = svc.AdvanceStatus(context.Background(), ride.ID, models.RideStatusInProgress, driver.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestCancelPendingRide(t *testing.T) {
	rider := activeRider()
	svc, _, _ := newTestRideService(t, rider)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), ride.ID, rider.ID, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusCancelled, cancelled.Status)
	assert.Equal(t, models.CancelledByUser, cancelled.CancelledBy)
	assert.Equal(t, "changed my mind", cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestCancelAcceptedRideByDriver(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), ride.ID, driver.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.CancelledByDriver, cancelled.CancelledBy)
	assert.Equal(t, utils.DefaultCancellationReason, cancelled.CancellationReason)
}

func TestCancelInProgressRideRejected(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.AssignDriver(context.Background(), ride.ID, driver.ID)
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(context.Background(), ride.ID, models.RideStatusInProgress, driver.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), ride.ID, rider.ID, "too late")
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestCancelTerminalRideRejected(t *testing.T) {
	rider := activeRider()
	svc, _, _ := newTestRideService(t, rider)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), ride.ID, rider.ID, "")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), ride.ID, rider.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestCancelByOtherRiderForbidden(t *testing.T) {
	rider := activeRider()
	other := activeRider()
	svc, _, _ := newTestRideService(t, rider, other)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), ride.ID, other.ID, "not my ride")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	current, err := svc.GetRide(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusPending, current.Status)
}

func TestCancelByUnassignedDriverForbidden(t *testing.T) {
	rider := activeRider()
	assigned := activeDriver()
	outsider := activeDriver()
	svc, _, _ := newTestRideService(t, rider, assigned, outsider)

	ride, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)

	// Before any assignment no driver may cancel.
	_, err = svc.Cancel(context.Background(), ride.ID, outsider.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = svc.AssignDriver(context.Background(), ride.ID, assigned.ID)
	require.NoError(t, err)

	// After assignment only the assigned driver may.
	_, err = svc.Cancel(context.Background(), ride.ID, outsider.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	current, err := svc.GetRide(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, current.Status)
}

func TestListRidesByStatusAndGroup(t *testing.T) {
	rider := activeRider()
	driver := activeDriver()
	svc, _, _ := newTestRideService(t, rider, driver)

	first, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	second, err := svc.BookRide(context.Background(), bookingFor(rider))
	require.NoError(t, err)
	_, err = svc.AssignDriver(context.Background(), second.ID, driver.ID)
	require.NoError(t, err)

	pending, total, err := svc.ListRides(context.Background(), interfaces.RideFilter{
		Status:    models.RideStatusPending,
		TodaGroup: "san-isidro-toda",
	}, utils.DefaultPaginationParams())
	require.NoError(t, err)

	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
}

func TestGetRideNotFound(t *testing.T) {
	svc, _, _ := newTestRideService(t)

	_, err := svc.GetRide(context.Background(), primitive.NewObjectID())
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
