package validators

import "gotrike/internal/utils"

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Name      string  `json:"name" validate:"required,min=2,max=255"`
}

type BookRideRequest struct {
	PickupLocation  LocationRequest `json:"pickup_location" validate:"required"`
	DropoffLocation LocationRequest `json:"dropoff_location" validate:"required"`
	DistanceKM      float64         `json:"distance_km" validate:"required,distance"`
	Fare            float64         `json:"fare" validate:"required,fare_amount"`
}

type RideStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed"`
}

type RideCancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

func ValidateBookRideRequest(req *BookRideRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if req.PickupLocation.Latitude == req.DropoffLocation.Latitude &&
		req.PickupLocation.Longitude == req.DropoffLocation.Longitude {
		errors = append(errors, ValidationError{
			Field:   "dropoff_location",
			Message: "Pickup and dropoff locations must be different",
		})
	}

	distance := utils.CalculateDistance(
		req.PickupLocation.Latitude, req.PickupLocation.Longitude,
		req.DropoffLocation.Latitude, req.DropoffLocation.Longitude,
	)
	if distance < utils.MinRideDistanceKM {
		errors = append(errors, ValidationError{
			Field:   "dropoff_location",
			Message: "Ride is too short to book",
		})
	}

	return errors
}
