// Package maps wraps the Google Maps directions API behind the small surface
// the booking flow needs: one route between two points.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type LatLng struct {
	Latitude  float64
	Longitude float64
}

type RouteResult struct {
	EncodedPolyline string
	DistanceMeters  int
	DurationSeconds int
}

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) GetRoute(ctx context.Context, origin, destination LatLng) (*RouteResult, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude),
		Destination: fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude),
		Mode:        maps.TravelModeDriving,
	}

	resp, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(resp) == 0 || len(resp[0].Legs) == 0 {
		return nil, fmt.Errorf("directions returned no routes")
	}

	route := resp[0]
	leg := route.Legs[0]

	return &RouteResult{
		EncodedPolyline: route.OverviewPolyline.Points,
		DistanceMeters:  leg.Distance.Meters,
		DurationSeconds: int(leg.Duration.Seconds()),
	}, nil
}
