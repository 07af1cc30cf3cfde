package geofeatures

import (
	"fmt"
	"math"
)

// A ResolvedCell is the grid cell that answers a query.
type ResolvedCell struct {
	// Box is the cell's own rectangle, not the queried point.
	Box         BoundingBox `json:"box"`
	Row         int         `json:"row"`
	Column      int         `json:"column"`
	LinearIndex int64       `json:"linearIndex"`
}

// ByteOffset returns the offset of c's sample in a row-major file of samples
// of width bytes.
func (c ResolvedCell) ByteOffset(width int) int64 {
	return c.LinearIndex * int64(width)
}

// Resolve returns the cell of a rows by columns grid over box that answers a
// query for coord. Rows are counted from the north edge with a ceiling and
// columns from the west edge with a floor:
//
//	row = ceil((box.LatMax - lat) / unitLat)
//	column = floor((lon - box.LonMin) / unitLon)
//
// Offsets are computed by multiplying before dividing so that whole-degree
// coordinates on 30 arc-second grids give exact results. It returns
// ErrOffsetOutOfGrid if the cell is not in the grid.
func Resolve(coord LatLon, box BoundingBox, rows, columns int) (ResolvedCell, error) {
	if rows <= 0 || columns <= 0 {
		return ResolvedCell{}, fmt.Errorf("%w: %d rows by %d columns", ErrOffsetOutOfGrid, rows, columns)
	}
	latSpan := box.LatMax - box.LatMin
	lonSpan := box.LonMax - box.LonMin

	row := math.Ceil((box.LatMax - coord.Lat) * float64(rows) / latSpan)
	column := math.Floor((coord.Lon - box.LonMin) * float64(columns) / lonSpan)
	if !(0 <= row && row < float64(rows)) || !(0 <= column && column < float64(columns)) {
		return ResolvedCell{}, fmt.Errorf("%w: (%g, %g) gives row %g column %g in %d by %d grid over %v",
			ErrOffsetOutOfGrid, coord.Lat, coord.Lon, row, column, rows, columns, box)
	}

	unitLat := latSpan / float64(rows)
	unitLon := lonSpan / float64(columns)
	cellLatMax := box.LatMax - row*latSpan/float64(rows)
	cellLonMin := box.LonMin + column*lonSpan/float64(columns)
	return ResolvedCell{
		Box: BoundingBox{
			LatMin: cellLatMax - unitLat,
			LatMax: cellLatMax,
			LonMin: cellLonMin,
			LonMax: cellLonMin + unitLon,
		},
		Row:         int(row),
		Column:      int(column),
		LinearIndex: int64(row)*int64(columns) + int64(column),
	}, nil
}
