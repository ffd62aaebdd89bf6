package interfaces

import (
	"context"

	"gotrike/internal/models"
	"gotrike/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideFilter narrows ride listings. Zero values mean "any".
type RideFilter struct {
	Status    models.RideStatus
	TodaGroup string
	RiderID   primitive.ObjectID
	DriverID  primitive.ObjectID
}

type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)
	List(ctx context.Context, filter RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	// AcceptPending sets status=accepted and the driver in a single
	// conditional update guarded on status=pending. Returns the updated ride,
	// or ErrPreconditionFailed when the ride was not pending (or absent) at
	// write time.
	AcceptPending(ctx context.Context, id, driverID primitive.ObjectID) (*models.Ride, error)

	// TransitionStatus moves the ride from exactly `from` to `to` in one
	// conditional update, stamping the matching lifecycle timestamp. Returns
	// ErrPreconditionFailed when the stored status was not `from`.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RideStatus) (*models.Ride, error)

	// CancelFrom cancels the ride only when its current status is one of
	// allowedFrom, recording who cancelled and why.
	CancelFrom(ctx context.Context, id primitive.ObjectID, allowedFrom []models.RideStatus, cancelledBy models.CancelParty, reason string) (*models.Ride, error)

	UpdateRoute(ctx context.Context, id primitive.ObjectID, route *models.Route) error
}
