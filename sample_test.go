package geofeatures_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geofeatures"
)

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name     string
		raw      []byte
		format   geofeatures.SampleFormat
		expected int64
	}{
		{
			name:     "int16_big_endian_sentinel",
			raw:      []byte{0xd8, 0xf1},
			format:   geofeatures.SampleFormat{Width: 2, ByteOrder: geofeatures.BigEndian},
			expected: -9999,
		},
		{
			name:     "int16_little_endian_sentinel",
			raw:      []byte{0xf1, 0xd8},
			format:   geofeatures.SampleFormat{Width: 2, ByteOrder: geofeatures.LittleEndian},
			expected: -9999,
		},
		{
			name:     "int16_big_endian",
			raw:      []byte{0x03, 0x39},
			format:   geofeatures.SampleFormat{Width: 2, ByteOrder: geofeatures.BigEndian},
			expected: 825,
		},
		{
			name:     "uint16",
			raw:      []byte{0xff, 0xff},
			format:   geofeatures.SampleFormat{Width: 2, Unsigned: true},
			expected: 65535,
		},
		{
			name:     "uint8",
			raw:      []byte{0xfe},
			format:   geofeatures.SampleFormat{Width: 1, Unsigned: true},
			expected: 254,
		},
		{
			name:     "int8",
			raw:      []byte{0xfe},
			format:   geofeatures.SampleFormat{Width: 1},
			expected: -2,
		},
		{
			name:     "int32_little_endian",
			raw:      []byte{0xf1, 0xd8, 0xff, 0xff},
			format:   geofeatures.SampleFormat{Width: 4, ByteOrder: geofeatures.LittleEndian},
			expected: -9999,
		},
		{
			name:     "uint32_big_endian",
			raw:      []byte{0x80, 0x00, 0x00, 0x00},
			format:   geofeatures.SampleFormat{Width: 4, Unsigned: true},
			expected: 1 << 31,
		},
		{
			name:     "int64_big_endian",
			raw:      []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xd8, 0xf1},
			format:   geofeatures.SampleFormat{Width: 8},
			expected: -9999,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := geofeatures.Decode(tc.raw, tc.format)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := geofeatures.Decode([]byte{0x00}, geofeatures.SampleFormat{Width: 2})
	assert.Error(t, err)
	_, err = geofeatures.Decode([]byte{0x00, 0x00, 0x00}, geofeatures.SampleFormat{Width: 3})
	assert.Error(t, err)
	_, err = geofeatures.Decode(make([]byte, 8), geofeatures.SampleFormat{Width: 8, Unsigned: true})
	assert.Error(t, err)
}

func TestInterpret(t *testing.T) {
	format := geofeatures.SampleFormat{Width: 2, ByteOrder: geofeatures.BigEndian}

	sample, err := geofeatures.Interpret([]byte{0xd8, 0xf1}, format, -9999)
	assert.NoError(t, err)
	assert.Equal(t, geofeatures.Sample{Present: true, Value: -9999, NoData: true}, sample)

	sample, err = geofeatures.Interpret([]byte{0x00, 0x2a}, format, -9999)
	assert.NoError(t, err)
	assert.Equal(t, geofeatures.Sample{Present: true, Value: 42}, sample)
}

func TestParseByteOrder(t *testing.T) {
	for _, tc := range []struct {
		s        string
		expected geofeatures.ByteOrder
	}{
		{s: "M", expected: geofeatures.BigEndian},
		{s: "MM", expected: geofeatures.BigEndian},
		{s: "big", expected: geofeatures.BigEndian},
		{s: "I", expected: geofeatures.LittleEndian},
		{s: "II", expected: geofeatures.LittleEndian},
		{s: "little", expected: geofeatures.LittleEndian},
	} {
		actual, err := geofeatures.ParseByteOrder(tc.s)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, actual)
	}
	_, err := geofeatures.ParseByteOrder("middle")
	assert.IsError(t, err, geofeatures.ErrInvalidConfiguration)
}
