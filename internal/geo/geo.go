// Package geo implements the spherical index used for "stores near me".
//
// Every point is keyed by its leaf S2 cell, written as a fixed-width hex
// string so that lexical order in the database matches cell order. A radius
// query is turned into a small set of cell ranges covering the search cap;
// rows inside those ranges are candidates and the exact great-circle
// distance decides the final result.
package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius (IUGG).
const EarthRadiusMeters = 6371008.8

// DefaultRadiusMeters is used when a query does not carry a usable radius.
const DefaultRadiusMeters = 10000

// MaxCoveringCells bounds the number of ranges a radius query produces.
const MaxCoveringCells = 8

const coverMaxLevel = 16

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lng float64
	Lat float64
}

// Valid reports whether the coordinates are within their ranges.
func (p Point) Valid() bool {
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90 &&
		!math.IsNaN(p.Lng) && !math.IsNaN(p.Lat)
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

// Range is an inclusive span of cell keys.
type Range struct {
	Min string
	Max string
}

// CellKey returns the index key of the leaf cell containing p.
func CellKey(p Point) string {
	return key(s2.CellIDFromLatLng(p.latLng()))
}

func key(id s2.CellID) string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Covering returns the key ranges of the cells covering the cap of the given
// radius around center.
func Covering(center Point, radiusMeters float64) []Range {
	capRegion := s2.CapFromCenterAngle(s2.PointFromLatLng(center.latLng()), metersToAngle(radiusMeters))
	coverer := &s2.RegionCoverer{
		MinLevel: 0,
		MaxLevel: coverMaxLevel,
		MaxCells: MaxCoveringCells,
	}
	cells := coverer.Covering(capRegion)
	ranges := make([]Range, 0, len(cells))
	for _, c := range cells {
		ranges = append(ranges, Range{Min: key(c.RangeMin()), Max: key(c.RangeMax())})
	}
	return ranges
}

// DistanceMeters is the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusMeters
}

// NormalizeRadius falls back to DefaultRadiusMeters for missing or non-positive values.
func NormalizeRadius(radiusMeters float64) float64 {
	if radiusMeters <= 0 || math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) {
		return DefaultRadiusMeters
	}
	return radiusMeters
}

func metersToAngle(m float64) s1.Angle {
	return s1.Angle(m / EarthRadiusMeters)
}
