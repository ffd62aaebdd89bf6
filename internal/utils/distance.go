package utils

import (
	"math"
)

func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return haversineDistance(lat1, lon1, lat2, lon2)
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

func EstimateDurationSeconds(distanceKM float64, averageSpeedKMH float64) int {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = FallbackSpeedKMH
	}

	timeHours := distanceKM / averageSpeedKMH
	return int(math.Ceil(timeHours * 3600))
}

// EncodePolyline produces a Google-format encoded polyline for the given
// points. Used for the straight-line fallback route.
func EncodePolyline(points [][2]float64) string {
	var result []byte
	var prevLat, prevLon int64

	for _, p := range points {
		lat := int64(math.Round(p[0] * 1e5))
		lon := int64(math.Round(p[1] * 1e5))

		result = appendPolylineValue(result, lat-prevLat)
		result = appendPolylineValue(result, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(result)
}

func appendPolylineValue(buf []byte, v int64) []byte {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}
