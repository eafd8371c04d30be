package flight

import (
	"github.com/viant/spatial-search/geo"
)

// Flight is a single aircraft position report. Latitude and Longitude are
// held in radians.
type Flight struct {
	Index     uint64
	CallSign  string
	Latitude  float64
	Longitude float64
}

// New constructs a flight from a position given in degrees.
func New(index uint64, callSign string, latitude, longitude float64) Flight {
	return Flight{
		Index:     index,
		CallSign:  callSign,
		Latitude:  geo.DegToRad(latitude),
		Longitude: geo.DegToRad(longitude),
	}
}

// LatitudeDeg returns the latitude in degrees.
func (f Flight) LatitudeDeg() float64 { return geo.RadToDeg(f.Latitude) }

// LongitudeDeg returns the longitude in degrees.
func (f Flight) LongitudeDeg() float64 { return geo.RadToDeg(f.Longitude) }

// Point returns the flight position projected onto the unit sphere.
func (f Flight) Point() []float64 { return geo.UnitVector(f.Latitude, f.Longitude) }

// DistanceKm returns the great-circle distance to other.
func (f Flight) DistanceKm(other Flight) float64 {
	return geo.Haversine(f.Latitude, f.Longitude, other.Latitude, other.Longitude)
}
