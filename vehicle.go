// Package nearestvehicle loads a flat binary file of vehicle position records
// into memory and answers nearest-vehicle queries against it.
//
// A Finder is populated once with Cache and is then safe for concurrent Find
// calls:
//
//	f := nearestvehicle.NewFinder(nearestvehicle.WithDataFile("VehiclePositions.dat"))
//	if err := f.Cache(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	res := f.Find(nearestvehicle.Position{ID: 1, Latitude: 34.544909, Longitude: -102.100843})
//	if res.Found() {
//	    fmt.Printf("%s at %.1fm\n", res.Vehicle.Registration, res.Distance)
//	}
package nearestvehicle

import (
	"math"
	"time"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// Vehicle is one decoded position record.
// Coordinates keep the float32 precision of the file format.
type Vehicle struct {
	PositionID   int32     // Record identifier, not guaranteed unique
	Registration string    // Registration text, decoded per RegistrationEncoding
	Latitude     float32   // Latitude in degrees
	Longitude    float32   // Longitude in degrees
	RecordedAt   time.Time // Time the position was recorded (UTC)
}

// LatLng returns the vehicle coordinates widened to float64.
func (v Vehicle) LatLng() LatLng {
	return LatLng{Lat: float64(v.Latitude), Lng: float64(v.Longitude)}
}

// Geohash returns the geohash cell of the vehicle at the given precision
// (number of base32 characters).
func (v Vehicle) Geohash(precision int) string {
	return geohash.EncodeWithPrecision(float64(v.Latitude), float64(v.Longitude), precision)
}

// Position is a caller-supplied query point. ID is an opaque token echoed
// back in the Result.
type Position struct {
	ID        int
	Latitude  float64
	Longitude float64
}

// LatLng returns the query coordinates.
func (p Position) LatLng() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// valid reports whether both coordinates are finite.
func (p Position) valid() bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		!math.IsInf(p.Latitude, 0) && !math.IsInf(p.Longitude, 0)
}

// LatLng is a point in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Result is the answer to a single Find.
type Result struct {
	Position Position // The query as supplied
	Distance float64  // Meters to Vehicle, or MaxDistance when none was found
	Vehicle  *Vehicle // Nearest vehicle, nil when the cache is empty
}

// Found reports whether a nearest vehicle was found.
func (r Result) Found() bool {
	return r.Vehicle != nil
}
