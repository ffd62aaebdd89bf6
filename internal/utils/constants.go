package utils

import "time"

// Application Constants
const (
	AppName    = "GoTrike"
	AppVersion = "1.0.0"

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Ride Constants
	MinFare           = 10.0   // pesos
	MaxFare           = 5000.0 // pesos
	MaxRideDistanceKM = 100.0
	MinRideDistanceKM = 0.1

	// Default cancellation reason when the caller supplies none.
	DefaultCancellationReason = "No reason provided"

	// Directions provider
	DirectionsTimeout = 2 * time.Second
	FallbackSpeedKMH  = 20.0 // tricycle average in city traffic
	EarthRadiusKM     = 6371.0

	// Chat
	MaxMessageLength = 1000

	// Realtime
	TypingIdleTimeout = 5 * time.Second

	// Client sync
	RidePollInterval = 3 * time.Second
	MaxPollRetries   = 5
	MaxPollBackoff   = 5 * time.Second

	// Common error messages
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"
)
