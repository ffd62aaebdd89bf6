package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/observability"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/utils"
	"gotrike/pkg/apperrors"
	"gotrike/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legalTransitions is the fixed table consulted by AdvanceStatus. Acceptance
// and cancellation have their own guarded entry points and are deliberately
// absent here.
var legalTransitions = map[models.RideStatus]map[models.RideStatus]bool{
	models.RideStatusAccepted:   {models.RideStatusInProgress: true},
	models.RideStatusInProgress: {models.RideStatusCompleted: true},
}

// cancellableStates restricts cancellation to rides not yet picked up.
var cancellableStates = []models.RideStatus{
	models.RideStatusPending,
	models.RideStatusAccepted,
}

type BookRideInput struct {
	RiderID    primitive.ObjectID
	PickupName string
	PickupLat  float64
	PickupLon  float64

	DropoffName string
	DropoffLat  float64
	DropoffLon  float64

	DistanceKM float64
	Fare       float64
}

type RideService interface {
	BookRide(ctx context.Context, input *BookRideInput) (*models.Ride, error)
	AssignDriver(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Ride, error)
	AdvanceStatus(ctx context.Context, rideID primitive.ObjectID, requested models.RideStatus, actingUserID primitive.ObjectID) (*models.Ride, error)
	Cancel(ctx context.Context, rideID, actingUserID primitive.ObjectID, reason string) (*models.Ride, error)
	GetRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error)
	ListRides(ctx context.Context, filter interfaces.RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error)
}

type rideService struct {
	rideRepo   interfaces.RideRepository
	userRepo   interfaces.UserRepository
	directions DirectionsService
	logger     *logger.Logger
}

func NewRideService(
	rideRepo interfaces.RideRepository,
	userRepo interfaces.UserRepository,
	directions DirectionsService,
	log *logger.Logger,
) RideService {
	return &rideService{
		rideRepo:   rideRepo,
		userRepo:   userRepo,
		directions: directions,
		logger:     log,
	}
}

func (s *rideService) BookRide(ctx context.Context, input *BookRideInput) (*models.Ride, error) {
	if input == nil {
		return nil, apperrors.Validation("booking request is required", nil)
	}
	if input.RiderID.IsZero() {
		return nil, apperrors.Validation("rider id is required", nil)
	}
	if strings.TrimSpace(input.PickupName) == "" || strings.TrimSpace(input.DropoffName) == "" {
		return nil, apperrors.Validation("pickup and dropoff names are required", nil)
	}
	if !validCoordinates(input.PickupLat, input.PickupLon) || !validCoordinates(input.DropoffLat, input.DropoffLon) {
		return nil, apperrors.Validation("pickup and dropoff coordinates are required", nil)
	}
	if input.DistanceKM <= 0 {
		return nil, apperrors.Validation("distance is required", nil)
	}
	if input.Fare <= 0 {
		return nil, apperrors.Validation("fare is required", nil)
	}

	rider, err := s.userRepo.GetByID(ctx, input.RiderID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.Validation("rider does not exist", err)
		}
		return nil, apperrors.Internal("failed to resolve rider", err)
	}
	if rider.IsBanned() {
		return nil, apperrors.Forbidden("account is banned", nil)
	}

	ride := &models.Ride{
		RideNumber:      generateRideNumber(),
		RiderID:         rider.ID,
		RiderName:       rider.DisplayName,
		Status:          models.RideStatusPending,
		PickupLocation:  models.NewLocation(input.PickupName, input.PickupLat, input.PickupLon),
		DropoffLocation: models.NewLocation(input.DropoffName, input.DropoffLat, input.DropoffLon),
		TodaGroup:       rider.TodaGroup,
		DistanceKM:      input.DistanceKM,
		Fare:            input.Fare,
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, apperrors.Internal("failed to create ride", err)
	}

	observability.RidesBooked.Inc()
	s.logger.LogRideEvent(ride.ID, "booked", map[string]interface{}{
		"rider_id":   ride.RiderID.Hex(),
		"toda_group": ride.TodaGroup,
		"fare":       ride.Fare,
	})

	// Route resolution must never block or fail the booking; the fallback
	// path inside DirectionsService guarantees a result.
	route := s.directions.GetRoute(ctx, ride.PickupLocation, ride.DropoffLocation)
	if err := s.rideRepo.UpdateRoute(ctx, ride.ID, route); err != nil {
		s.logger.WithRideID(ride.ID).WithError(err).Warn("Failed to attach route to ride")
	} else {
		ride.Route = route
	}

	return ride, nil
}

// AssignDriver is the sole acceptance entry point. The pending check and the
// driver write are one conditional update in the repository, so concurrent
// accepts resolve to exactly one winner.
func (s *rideService) AssignDriver(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Ride, error) {
	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.NotFound("driver", err)
		}
		return nil, apperrors.Internal("failed to resolve driver", err)
	}
	if !driver.IsDriver() {
		return nil, apperrors.InvalidRole("user is not a driver")
	}
	if driver.IsBanned() {
		return nil, apperrors.Forbidden("account is banned", nil)
	}

	ride, err := s.rideRepo.AcceptPending(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrPreconditionFailed) {
			// Lost the race, or the ride id is bogus. Re-fetch to tell a
			// loser apart from a caller holding a dead id.
			if _, getErr := s.rideRepo.GetByID(ctx, rideID); errors.Is(getErr, interfaces.ErrNotFound) {
				return nil, apperrors.NotFound("ride", getErr)
			}
			observability.AcceptConflicts.Inc()
			return nil, apperrors.Conflict("ride no longer available")
		}
		return nil, apperrors.Internal("failed to assign driver", err)
	}

	observability.RidesAssigned.Inc()
	s.logger.LogRideEvent(ride.ID, "accepted", map[string]interface{}{
		"driver_id": driverID.Hex(),
	})

	return ride, nil
}

func (s *rideService) AdvanceStatus(ctx context.Context, rideID primitive.ObjectID, requested models.RideStatus, actingUserID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.NotFound("ride", err)
		}
		return nil, apperrors.Internal("failed to get ride", err)
	}

	if !legalTransitions[ride.Status][requested] {
		return nil, apperrors.Conflict("illegal status transition from " + string(ride.Status) + " to " + string(requested))
	}

	// Phase reporting is driver-asserted; the only check is that the caller
	// is the assigned driver.
	if ride.DriverID == nil || *ride.DriverID != actingUserID {
		return nil, apperrors.Forbidden("only the assigned driver can report ride progress", nil)
	}

	updated, err := s.rideRepo.TransitionStatus(ctx, rideID, ride.Status, requested)
	if err != nil {
		if errors.Is(err, interfaces.ErrPreconditionFailed) {
			// Someone else moved the ride between our read and write. The
			// caller re-fetches and sees what actually happened.
			return nil, apperrors.Conflict("ride status changed concurrently")
		}
		return nil, apperrors.Internal("failed to update ride status", err)
	}

	if requested == models.RideStatusCompleted {
		observability.RidesCompleted.Inc()
	}
	s.logger.LogRideEvent(updated.ID, string(requested), map[string]interface{}{
		"acting_user": actingUserID.Hex(),
	})

	return updated, nil
}

// Cancel ends a ride that has not been picked up yet. Only the ride's own
// passenger or its assigned driver may cancel; the recorded party comes from
// that relationship, never from the caller's claim.
func (s *rideService) Cancel(ctx context.Context, rideID, actingUserID primitive.ObjectID, reason string) (*models.Ride, error) {
	if actingUserID.IsZero() {
		return nil, apperrors.Validation("acting user id is required", nil)
	}
	if strings.TrimSpace(reason) == "" {
		reason = utils.DefaultCancellationReason
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.NotFound("ride", err)
		}
		return nil, apperrors.Internal("failed to get ride", err)
	}

	var cancelledBy models.CancelParty
	switch {
	case ride.RiderID == actingUserID:
		cancelledBy = models.CancelledByUser
	case ride.DriverID != nil && *ride.DriverID == actingUserID:
		cancelledBy = models.CancelledByDriver
	default:
		return nil, apperrors.Forbidden("only the ride's passenger or assigned driver can cancel", nil)
	}

	ride, err = s.rideRepo.CancelFrom(ctx, rideID, cancellableStates, cancelledBy, reason)
	if err != nil {
		if errors.Is(err, interfaces.ErrPreconditionFailed) {
			return nil, apperrors.Conflict("ride already completed or cancelled")
		}
		return nil, apperrors.Internal("failed to cancel ride", err)
	}

	observability.RidesCancelled.Inc()
	s.logger.LogRideEvent(ride.ID, "cancelled", map[string]interface{}{
		"cancelled_by": string(cancelledBy),
		"reason":       reason,
	})

	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperrors.NotFound("ride", err)
		}
		return nil, apperrors.Internal("failed to get ride", err)
	}
	return ride, nil
}

func (s *rideService) ListRides(ctx context.Context, filter interfaces.RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	rides, total, err := s.rideRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list rides", err)
	}
	return rides, total, nil
}

func validCoordinates(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func generateRideNumber() string {
	return "TRK-" + strings.ToUpper(uuid.NewString()[:8]) + "-" + time.Now().Format("060102")
}
