// Package geo provides great-circle distance calculations for the bridge.
//
// All distances are in statute miles, matching the radius and movement
// thresholds the bridge is configured with.
package geo

import "math"

const (
	// EarthRadiusMiles is the mean Earth radius in statute miles.
	EarthRadiusMiles = 3958.8

	// DegreesToRadians converts decimal degrees to radians.
	DegreesToRadians = math.Pi / 180.0
)

// Point is a geographic position in decimal degrees (WGS84).
type Point struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64
}

// DistanceMiles calculates the great-circle distance between two points.
// Uses the Haversine formula for accuracy over short and long distances.
// Returns distance in statute miles.
func DistanceMiles(from, to Point) float64 {
	lat1Rad := from.Latitude * DegreesToRadians
	lat2Rad := to.Latitude * DegreesToRadians

	dLat := (to.Latitude - from.Latitude) * DegreesToRadians
	dLon := (to.Longitude - from.Longitude) * DegreesToRadians

	// Haversine formula
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}
