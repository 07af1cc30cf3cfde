package geofeatures

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A BILHeader is the subset of an ESRI BIL header (.hdr) that affects how
// samples are located and decoded.
type BILHeader struct {
	ByteOrder    ByteOrder
	HasByteOrder bool
	Layout       string
	Rows         int
	Columns      int
	Bands        int
	Bits         int
	PixelType    string
	NoData       int64
	HasNoData    bool
}

// ParseBILHeader parses an ESRI BIL header. Unknown keys are ignored.
func ParseBILHeader(r io.Reader) (*BILHeader, error) {
	h := &BILHeader{
		Bands: 1,
	}
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key, value := strings.ToUpper(fields[0]), fields[1]
		var err error
		switch key {
		case "BYTEORDER":
			h.ByteOrder, err = ParseByteOrder(value)
			h.HasByteOrder = err == nil
		case "LAYOUT", "INTERLEAVING":
			h.Layout = strings.ToUpper(value)
		case "NROWS":
			h.Rows, err = strconv.Atoi(value)
		case "NCOLS":
			h.Columns, err = strconv.Atoi(value)
		case "NBANDS":
			h.Bands, err = strconv.Atoi(value)
		case "NBITS":
			h.Bits, err = strconv.Atoi(value)
		case "PIXELTYPE":
			h.PixelType = strings.ToUpper(value)
		case "NODATA", "NODATA_VALUE":
			var noData float64
			noData, err = strconv.ParseFloat(value, 64)
			h.NoData, h.HasNoData = int64(noData), err == nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNumber, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// apply returns format adjusted to h, or an error wrapping ErrOffsetOutOfGrid
// if h describes a different grid than rows by columns samples of format.
func (h *BILHeader) apply(format SampleFormat, rows, columns int) (SampleFormat, error) {
	switch {
	case h.Rows != 0 && h.Rows != rows:
		return format, fmt.Errorf("%w: header has %d rows, expected %d", ErrOffsetOutOfGrid, h.Rows, rows)
	case h.Columns != 0 && h.Columns != columns:
		return format, fmt.Errorf("%w: header has %d columns, expected %d", ErrOffsetOutOfGrid, h.Columns, columns)
	case h.Bits != 0 && h.Bits != 8*format.Width:
		return format, fmt.Errorf("%w: header has %d-bit samples, expected %d", ErrOffsetOutOfGrid, h.Bits, 8*format.Width)
	case h.Bands > 1:
		return format, fmt.Errorf("%w: header has %d bands, expected 1", ErrOffsetOutOfGrid, h.Bands)
	}
	if h.HasByteOrder {
		format.ByteOrder = h.ByteOrder
	}
	if h.PixelType == "UNSIGNEDINT" {
		format.Unsigned = true
	}
	return format, nil
}
