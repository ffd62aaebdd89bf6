package models

import "time"

// Route is the directions-provider result attached to a ride. The polyline is
// opaque to this service; Estimated marks a straight-line fallback produced
// when the provider was unavailable.
type Route struct {
	EncodedPolyline string    `json:"encoded_polyline" bson:"encoded_polyline"`
	DistanceKM      float64   `json:"distance_km" bson:"distance_km"`
	DurationSec     int       `json:"duration_sec" bson:"duration_sec"`
	Estimated       bool      `json:"estimated" bson:"estimated"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
