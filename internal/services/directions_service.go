package services

import (
	"context"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/observability"
	"gotrike/internal/utils"
	"gotrike/pkg/logger"
	"gotrike/pkg/maps"
)

// RouteProvider is the outbound directions dependency. The Google client in
// pkg/maps satisfies it; tests swap in fakes.
type RouteProvider interface {
	GetRoute(ctx context.Context, origin, destination maps.LatLng) (*maps.RouteResult, error)
}

type DirectionsService interface {
	// GetRoute resolves a route between two points. It never fails: when the
	// provider errors or exceeds its timeout the result is a straight-line
	// polyline with a haversine distance estimate, marked Estimated.
	GetRoute(ctx context.Context, pickup, dropoff models.Location) *models.Route
}

type directionsService struct {
	provider RouteProvider
	timeout  time.Duration
	logger   *logger.Logger
}

func NewDirectionsService(provider RouteProvider, timeout time.Duration, log *logger.Logger) DirectionsService {
	if timeout <= 0 {
		timeout = utils.DirectionsTimeout
	}
	return &directionsService{
		provider: provider,
		timeout:  timeout,
		logger:   log,
	}
}

func (s *directionsService) GetRoute(ctx context.Context, pickup, dropoff models.Location) *models.Route {
	if s.provider != nil {
		routeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		result, err := s.provider.GetRoute(routeCtx,
			maps.LatLng{Latitude: pickup.Latitude(), Longitude: pickup.Longitude()},
			maps.LatLng{Latitude: dropoff.Latitude(), Longitude: dropoff.Longitude()},
		)
		if err == nil {
			return &models.Route{
				EncodedPolyline: result.EncodedPolyline,
				DistanceKM:      float64(result.DistanceMeters) / 1000,
				DurationSec:     result.DurationSeconds,
				CreatedAt:       time.Now(),
			}
		}

		if s.logger != nil {
			s.logger.WithError(err).Warn("Directions provider unavailable, using straight-line fallback")
		}
	}

	return s.fallbackRoute(pickup, dropoff)
}

func (s *directionsService) fallbackRoute(pickup, dropoff models.Location) *models.Route {
	observability.DirectionsFallbacks.Inc()

	distanceKM := utils.CalculateDistance(
		pickup.Latitude(), pickup.Longitude(),
		dropoff.Latitude(), dropoff.Longitude(),
	)

	polyline := utils.EncodePolyline([][2]float64{
		{pickup.Latitude(), pickup.Longitude()},
		{dropoff.Latitude(), dropoff.Longitude()},
	})

	return &models.Route{
		EncodedPolyline: polyline,
		DistanceKM:      distanceKM,
		DurationSec:     utils.EstimateDurationSeconds(distanceKM, utils.FallbackSpeedKMH),
		Estimated:       true,
		CreatedAt:       time.Now(),
	}
}
