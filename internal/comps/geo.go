package comps

import (
	"math"

	"github.com/david/proper-search/internal/models"
)

const (
	earthRadiusMiles = 3959.0
	milesPerDegree   = 69.0
)

// Haversine returns the great-circle distance in miles between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Bounds returns the lat/lng box that encloses a circle of radiusMiles
// around center. The longitude span widens with latitude.
func Bounds(center models.LatLng, radiusMiles float64) models.Bounds {
	latDelta := radiusMiles / milesPerDegree
	lngDelta := radiusMiles / (milesPerDegree * math.Cos(toRad(center.Lat)))
	return models.Bounds{
		North: center.Lat + latDelta,
		South: center.Lat - latDelta,
		East:  center.Lng + lngDelta,
		West:  center.Lng - lngDelta,
	}
}

// SqftRange returns the inclusive square-footage window around sqft,
// widened outward to whole feet.
func SqftRange(sqft, tolerance float64) (lo, hi float64) {
	return math.Floor(sqft * (1 - tolerance)), math.Ceil(sqft * (1 + tolerance))
}
