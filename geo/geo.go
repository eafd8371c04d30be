// Package geo converts geographic positions for Euclidean indexing.
// Positions are projected onto the unit sphere, where the straight-line
// (chord) distance grows monotonically with great-circle distance, so the
// nearest point by chord is also the nearest along the surface.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine returns the great-circle distance in kilometres between two
// positions given in radians.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	u := math.Sin((lat2 - lat1) / 2)
	v := math.Sin((lon2 - lon1) / 2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(u*u+math.Cos(lat1)*math.Cos(lat2)*v*v))
}

// UnitVector projects a position given in radians onto the unit sphere.
func UnitVector(lat, lon float64) []float64 {
	return []float64{
		math.Cos(lat) * math.Sin(lon),
		math.Cos(lat) * math.Cos(lon),
		math.Sin(lat),
	}
}

// ChordToKm converts a unit-sphere chord length to great-circle kilometres.
func ChordToKm(chord float64) float64 {
	half := chord / 2
	if half > 1 {
		half = 1
	}
	return 2 * EarthRadiusKm * math.Asin(half)
}
