package geofeatures

import (
	"errors"
	"fmt"
)

var errParse = errors.New("parse error")

// A GeoKey is a GeoTIFF key.
type GeoKey uint16

// GeoKeys consulted when checking that a GeoTIFF grid is geographic.
const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS         GeoKey = 2048
	GeoKeyGeogCitation        GeoKey = 2049
	GeoKeyGeodeticDatum       GeoKey = 2050
	GeoKeyPrimeMeridian       GeoKey = 2051
	GeoKeyAngularUnits        GeoKey = 2054
	GeoKeyGeogAngularUnitSize GeoKey = 2055
	GeoKeyEllipsoid           GeoKey = 2056

	GeoKeyProjectedCRS GeoKey = 3072
)

const (
	geoDoubleParamsTag = 34736
	geoASCIIParamsTag  = 34737
)

// ParsedGeoKeys are the values of a GeoKey directory, by location.
type ParsedGeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoKey directory.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, fmt.Errorf("%w: directory too short", errParse)
	}
	if version, revision := directory[0], directory[1]; version != 1 || revision != 1 {
		return nil, fmt.Errorf("%w: unsupported key directory version %d.%d", errParse, version, revision)
	}
	if minorRevision := directory[2]; minorRevision > 1 {
		return nil, fmt.Errorf("%w: unsupported minor revision %d", errParse, minorRevision)
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, fmt.Errorf("%w: directory has %d entries, expected %d", errParse, len(directory), 4+4*numberOfKeys)
	}

	parsedGeoKeys := &ParsedGeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		entry := directory[4+4*i : 4+4*(i+1)]
		key, location, count, value := GeoKey(entry[0]), int(entry[1]), int(entry[2]), int(entry[3])
		switch location {
		case 0:
			if count != 1 {
				return nil, fmt.Errorf("%w: key %d: %d inline values", errParse, key, count)
			}
			parsedGeoKeys.Params[key] = value
		case geoDoubleParamsTag:
			if count != 1 {
				return nil, fmt.Errorf("key %d: %w", key, errors.ErrUnsupported)
			}
			if value >= len(doubleParams) {
				return nil, fmt.Errorf("%w: key %d: double index %d out of range", errParse, key, value)
			}
			parsedGeoKeys.DoubleParams[key] = doubleParams[value]
		case geoASCIIParamsTag:
			if value+count > len(asciiParams) {
				return nil, fmt.Errorf("%w: key %d: ASCII range out of bounds", errParse, key)
			}
			parsedGeoKeys.ASCIIParams[key] = string(asciiParams[value : value+count])
		default:
			return nil, fmt.Errorf("key %d at tag %d: %w", key, location, errors.ErrUnsupported)
		}
	}
	return parsedGeoKeys, nil
}
