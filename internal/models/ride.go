package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type CancelParty string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"

	CancelledByUser   CancelParty = "user"
	CancelledByDriver CancelParty = "driver"
)

// Ride is a single tricycle transport request. DriverID is nil exactly while
// the ride is pending; the status field is only ever written through the
// guarded repository operations.
type Ride struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RideNumber         string              `json:"ride_number" bson:"ride_number" validate:"required"`
	RiderID            primitive.ObjectID  `json:"rider_id" bson:"rider_id" validate:"required"`
	RiderName          string              `json:"rider_name" bson:"rider_name" validate:"required"`
	DriverID           *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	Status             RideStatus          `json:"status" bson:"status" default:"pending"`
	PickupLocation     Location            `json:"pickup_location" bson:"pickup_location" validate:"required"`
	DropoffLocation    Location            `json:"dropoff_location" bson:"dropoff_location" validate:"required"`
	TodaGroup          string              `json:"toda_group" bson:"toda_group"`
	DistanceKM         float64             `json:"distance_km" bson:"distance_km"`
	Fare               float64             `json:"fare" bson:"fare"`
	Route              *Route              `json:"route" bson:"route"`
	CancelledBy        CancelParty         `json:"cancelled_by" bson:"cancelled_by"`
	CancellationReason string              `json:"cancellation_reason" bson:"cancellation_reason"`
	AcceptedAt         *time.Time          `json:"accepted_at" bson:"accepted_at"`
	StartedAt          *time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time          `json:"completed_at" bson:"completed_at"`
	CancelledAt        *time.Time          `json:"cancelled_at" bson:"cancelled_at"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}

// IsTerminal reports whether no further status transition is permitted.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}
