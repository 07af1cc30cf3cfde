package geofeatures

import (
	"errors"
	"fmt"
)

// An ElevationStatus summarizes the elevation part of a Result.
type ElevationStatus int

const (
	// ElevationOK means that the elevation was read and is a value.
	ElevationOK ElevationStatus = iota
	// ElevationOverWater means that the elevation sample is the no-data
	// sentinel.
	ElevationOverWater
	// ElevationProvenanceOnly means that the elevation could not be read but
	// its provenance could.
	ElevationProvenanceOnly
	// ElevationUnavailable means that neither the elevation nor its
	// provenance could be read.
	ElevationUnavailable
	// ElevationOutOfGrid means that the coordinate is in the tile but its
	// cell is not in the tile's grid. No file is read.
	ElevationOutOfGrid
)

var elevationStatusText = map[ElevationStatus]string{
	ElevationOK:             "ok",
	ElevationOverWater:      "over_water",
	ElevationProvenanceOnly: "provenance_only",
	ElevationUnavailable:    "unavailable",
	ElevationOutOfGrid:      "out_of_grid",
}

// Notice returns the message reported to users for s, or the empty string.
func (s ElevationStatus) Notice() string {
	switch s {
	case ElevationOverWater:
		return "Coordinates are out of land"
	case ElevationUnavailable:
		return "Unable to access GTOPO-30 files"
	default:
		return ""
	}
}

func (s ElevationStatus) String() string {
	if text, ok := elevationStatusText[s]; ok {
		return text
	}
	return fmt.Sprintf("ElevationStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s ElevationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// An ElevationResult is the elevation and provenance at a coordinate.
type ElevationResult struct {
	Tile       string          `json:"tile"`
	TileIndex  int             `json:"tileIndex"`
	Cell       ResolvedCell    `json:"cell"`
	Status     ElevationStatus `json:"status"`
	Elevation  Sample          `json:"elevation"`
	Source     Sample          `json:"source"`
	Provenance string          `json:"provenance,omitempty"`
	Errors     []error         `json:"-"`
}

// Value returns the elevation in meters and whether it is a value.
func (r *ElevationResult) Value() (int64, bool) {
	if !r.Elevation.Present || r.Elevation.NoData {
		return 0, false
	}
	return r.Elevation.Value, true
}

// A MonthlyValue is a climate value. Month is zero for features without
// months.
type MonthlyValue struct {
	Month int   `json:"month,omitempty"`
	Value int64 `json:"value"`
}

// A ClimateFeatureResult holds the values of one climate feature, in
// ascending month order. No-data values are omitted. OutOfCoverage is set,
// and Values is empty, when the coordinate is outside the grid's box.
type ClimateFeatureResult struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Monthly       bool           `json:"monthly"`
	OutOfCoverage bool           `json:"outOfCoverage,omitempty"`
	Values        []MonthlyValue `json:"values"`
	Errors        []error        `json:"-"`
}

// A Result is the set of features resolved at a coordinate. Climate is in
// registry order.
type Result struct {
	Coord     LatLon                 `json:"coord"`
	Elevation ElevationResult        `json:"elevation"`
	Climate   []ClimateFeatureResult `json:"climate"`
}

// Err returns all errors recorded in r joined together, or nil if every
// feature was resolved.
func (r *Result) Err() error {
	errs := append([]error(nil), r.Elevation.Errors...)
	for _, feature := range r.Climate {
		errs = append(errs, feature.Errors...)
	}
	return errors.Join(errs...)
}
