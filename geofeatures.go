// Package geofeatures resolves a geographic coordinate against the GTOPO30
// elevation tiles and the WORLDCLIM 30 arc-second climate grids.
package geofeatures

import (
	"errors"
	"fmt"
)

var (
	// ErrCoordinateOutOfDomain is returned when no elevation tile contains
	// the coordinate. It is the only error that aborts a query.
	ErrCoordinateOutOfDomain = errors.New("coordinates out of map")

	// ErrDatasetUnavailable is recorded when a raster or provenance file
	// cannot be opened or fully read.
	ErrDatasetUnavailable = errors.New("dataset unavailable")

	// ErrOffsetOutOfGrid is recorded when a computed cell lies outside the
	// declared grid.
	ErrOffsetOutOfGrid = errors.New("offset out of grid")

	// ErrInvalidProvenanceCode is recorded when a provenance byte is outside
	// the provenance table.
	ErrInvalidProvenanceCode = errors.New("invalid provenance code")

	// ErrInvalidConfiguration is returned by NewRegistry for malformed
	// dataset descriptors.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// A LatLon is a coordinate in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid returns true if c is in the domain accepted by the resolver:
// latitude in (-90, 90] and longitude in [-180, 180).
func (c LatLon) Valid() bool {
	return -90 < c.Lat && c.Lat <= 90 && -180 <= c.Lon && c.Lon < 180
}

// A BoundingBox is a rectangle in decimal degrees.
type BoundingBox struct {
	LatMin float64 `json:"latMin" mapstructure:"lat_min"`
	LatMax float64 `json:"latMax" mapstructure:"lat_max"`
	LonMin float64 `json:"lonMin" mapstructure:"lon_min"`
	LonMax float64 `json:"lonMax" mapstructure:"lon_max"`
}

// Contains returns true if b contains c. Latitudes are half open at the
// bottom and longitudes are half open at the right, so a point on a shared
// edge belongs to the tile above or to the right.
func (b BoundingBox) Contains(c LatLon) bool {
	return b.LatMin < c.Lat && c.Lat <= b.LatMax && b.LonMin <= c.Lon && c.Lon < b.LonMax
}

// Overlaps returns true if some point is contained by both b and other.
func (b BoundingBox) Overlaps(other BoundingBox) bool {
	return b.LatMin < other.LatMax && other.LatMin < b.LatMax &&
		b.LonMin < other.LonMax && other.LonMin < b.LonMax
}

// Validate returns an error if b is empty or inverted.
func (b BoundingBox) Validate() error {
	if !(b.LatMin < b.LatMax) || !(b.LonMin < b.LonMax) {
		return fmt.Errorf("%w: bounding box %v is empty or inverted", ErrInvalidConfiguration, b)
	}
	return nil
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("lat (%g, %g] lon [%g, %g)", b.LatMin, b.LatMax, b.LonMin, b.LonMax)
}
