package geo

import (
	"math"

	"github.com/nearhelp/nearhelp-api/schema"
)

// EarthRadiusMeters is the mean earth radius. Every distance computed or
// displayed by the service goes through Haversine with this constant.
const EarthRadiusMeters = 6371008.8

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance in meters between a and b
func Haversine(a, b schema.Location) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}
