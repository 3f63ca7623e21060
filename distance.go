package nearestvehicle

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/umahmood/haversine"
)

// EarthRadius is the sphere radius in meters used by Distance. It matches the
// radius of the coordinate library the original dataset results were produced
// with, so distances line up with existing reports.
const EarthRadius = 6376500.0

// MaxDistance is the distance reported when no vehicle was found.
const MaxDistance = math.MaxFloat64

// DistanceFunc returns the surface distance in meters between two points.
// Implementations must be symmetric and return zero for identical points.
type DistanceFunc func(a, b LatLng) float64

// Distance is the default DistanceFunc: the great-circle distance computed by
// the S2 library, scaled by EarthRadius.
func Distance(a, b LatLng) float64 {
	a, b = ordered(a, b)
	x := s2.LatLngFromDegrees(a.Lat, a.Lng)
	y := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return float64(x.Distance(y)) * EarthRadius
}

// HaversineDistance computes the haversine great-circle distance with the
// mean Earth radius of the haversine package.
func HaversineDistance(a, b LatLng) float64 {
	a, b = ordered(a, b)
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lng},
		haversine.Coord{Lat: b.Lat, Lon: b.Lng},
	)
	return km * 1000
}

// ordered puts a and b in a canonical order so that floating point
// evaluation order does not depend on argument order.
func ordered(a, b LatLng) (LatLng, LatLng) {
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lng < a.Lng) {
		return b, a
	}
	return a, b
}
