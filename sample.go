package geofeatures

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// A ByteOrder is the byte order of multi-byte samples on disk.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

// ParseByteOrder parses a byte order. It accepts the ESRI header values M and
// I, the TIFF header values MM and II, and the words big and little.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "big", "bigendian", "big-endian", "m", "mm", "motorola":
		return BigEndian, nil
	case "little", "littleendian", "little-endian", "i", "ii", "intel":
		return LittleEndian, nil
	default:
		return 0, fmt.Errorf("%w: unknown byte order %q", ErrInvalidConfiguration, s)
	}
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

// A SampleFormat describes one fixed-width integer sample.
type SampleFormat struct {
	Width     int
	Unsigned  bool
	ByteOrder ByteOrder
}

var (
	int16BigEndian    = SampleFormat{Width: 2, ByteOrder: BigEndian}
	int16LittleEndian = SampleFormat{Width: 2, ByteOrder: LittleEndian}
	provenanceFormat  = SampleFormat{Width: 1, Unsigned: true}
)

func (f SampleFormat) validate() error {
	switch {
	case f.Width == 8 && f.Unsigned:
		return fmt.Errorf("%w: unsigned 64-bit samples are not supported", ErrInvalidConfiguration)
	case f.Width == 1, f.Width == 2, f.Width == 4, f.Width == 8:
		return nil
	default:
		return fmt.Errorf("%w: unsupported sample width %d", ErrInvalidConfiguration, f.Width)
	}
}

// A Sample is a decoded raster sample.
type Sample struct {
	Present bool  `json:"present"`
	Value   int64 `json:"value"`
	NoData  bool  `json:"noData"`
}

// Decode decodes raw as an integer in format.
func Decode(raw []byte, format SampleFormat) (int64, error) {
	if len(raw) != format.Width {
		return 0, fmt.Errorf("decode: got %d bytes, want %d", len(raw), format.Width)
	}
	order := format.ByteOrder.binary()
	switch {
	case format.Width == 1 && format.Unsigned:
		return int64(raw[0]), nil
	case format.Width == 1:
		return int64(int8(raw[0])), nil
	case format.Width == 2 && format.Unsigned:
		return int64(order.Uint16(raw)), nil
	case format.Width == 2:
		return int64(int16(order.Uint16(raw))), nil
	case format.Width == 4 && format.Unsigned:
		return int64(order.Uint32(raw)), nil
	case format.Width == 4:
		return int64(int32(order.Uint32(raw))), nil
	case format.Width == 8 && !format.Unsigned:
		return int64(order.Uint64(raw)), nil
	default:
		return 0, fmt.Errorf("decode: unsupported sample format %+v", format)
	}
}

// Interpret decodes raw and applies the no-data rule.
func Interpret(raw []byte, format SampleFormat, sentinel int64) (Sample, error) {
	value, err := Decode(raw, format)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Present: true,
		Value:   value,
		NoData:  value == sentinel,
	}, nil
}
