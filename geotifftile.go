package geofeatures

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"golang.org/x/image/tiff/lzw"
)

const (
	compressionNone = 1
	compressionLZW  = 5

	sampleFormatUint = 1
	sampleFormatInt  = 2

	modelTypeGeographic = 2
)

// A geoTIFFLayout is the layout of a single band, tiled, integer GeoTIFF.
type geoTIFFLayout struct {
	byteOrder      ByteOrder
	format         SampleFormat
	compression    int
	imageWidth     int
	imageLength    int
	tileWidth      int
	tileLength     int
	tilesAcross    int
	tileOffsets    []uint64
	tileByteCounts []uint64
	scaleX         float64
	scaleY         float64
	originX        float64
	originY        float64
	modelType      int
	noData         int64
	hasNoData      bool
}

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALNoData                string    `tiff:"field,tag=42113"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
}

// openGeoTIFF opens name in fsys. github.com/google/tiff needs random access
// so only files backed by the operating system are supported.
func openGeoTIFF(fsys fs.FS, name string) (*os.File, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	osFile, ok := file.(*os.File)
	if !ok {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, errors.ErrUnsupported)
	}
	return osFile, nil
}

// readGeoTIFFLayout reads the layout of the GeoTIFF in file.
func readGeoTIFFLayout(file *os.File) (*geoTIFFLayout, error) {
	magic := make([]byte, 2)
	if _, err := file.ReadAt(magic, 0); err != nil {
		return nil, err
	}
	byteOrder, err := ParseByteOrder(string(magic))
	if err != nil {
		return nil, fmt.Errorf("%w: not a TIFF file", errors.ErrUnsupported)
	}

	tiffTIFF, err := tiff.Parse(file, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}
	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("found %d IFDs, expected 1", len(tiffTIFF.IFDs()))
	}
	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	if ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.Predictor > 1 ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 ||
		(ifd.Compression != compressionNone && ifd.Compression != compressionLZW) ||
		(ifd.SampleFormat != 0 && ifd.SampleFormat != sampleFormatUint && ifd.SampleFormat != sampleFormatInt) ||
		(ifd.BitsPerSample != 8 && ifd.BitsPerSample != 16 && ifd.BitsPerSample != 32) ||
		len(ifd.ModelPixelScaleTag) != 3 ||
		len(ifd.ModelTiepointTag) != 6 || ifd.ModelTiepointTag[0] != 0 || ifd.ModelTiepointTag[1] != 0 {
		return nil, errors.ErrUnsupported
	}

	l := &geoTIFFLayout{
		byteOrder: byteOrder,
		format: SampleFormat{
			Width:     int(ifd.BitsPerSample) / 8,
			Unsigned:  ifd.SampleFormat != sampleFormatInt,
			ByteOrder: byteOrder,
		},
		compression: int(ifd.Compression),
		imageWidth:  int(ifd.ImageWidth),
		imageLength: int(ifd.ImageLength),
		tileWidth:   int(ifd.TileWidth),
		tileLength:  int(ifd.TileLength),
		scaleX:      ifd.ModelPixelScaleTag[0],
		scaleY:      ifd.ModelPixelScaleTag[1],
		originX:     ifd.ModelTiepointTag[3],
		originY:     ifd.ModelTiepointTag[4],
	}
	l.tilesAcross = (l.imageWidth + l.tileWidth - 1) / l.tileWidth
	tilesDown := (l.imageLength + l.tileLength - 1) / l.tileLength
	if len(ifd.TileOffsets) != l.tilesAcross*tilesDown || len(ifd.TileByteCounts) != l.tilesAcross*tilesDown {
		return nil, errors.New("incorrect number of tile byte counts or offsets")
	}
	l.tileOffsets = ifd.TileOffsets
	l.tileByteCounts = ifd.TileByteCounts

	if len(ifd.GeoKeyDirectoryTag) != 0 {
		geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, err
		}
		l.modelType = geoKeys.Params[GeoKeyGTModelType]
	}
	if noData := strings.TrimRight(ifd.GDALNoData, "\x00 "); noData != "" {
		if value, err := strconv.ParseFloat(noData, 64); err == nil && value == math.Trunc(value) {
			l.noData, l.hasNoData = int64(value), true
		}
	}
	return l, nil
}

// check returns an error wrapping ErrOffsetOutOfGrid if l does not have the
// geometry of grid.
func (l *geoTIFFLayout) check(grid *GridDescriptor) error {
	const epsilon = 1e-9
	unitLon := (grid.Box.LonMax - grid.Box.LonMin) / float64(grid.Columns)
	unitLat := (grid.Box.LatMax - grid.Box.LatMin) / float64(grid.Rows)
	switch {
	case l.imageWidth != grid.Columns || l.imageLength != grid.Rows:
		return fmt.Errorf("%w: image is %dx%d, expected %dx%d", ErrOffsetOutOfGrid, l.imageWidth, l.imageLength, grid.Columns, grid.Rows)
	case l.modelType != 0 && l.modelType != modelTypeGeographic:
		return fmt.Errorf("%w: model type %d is not geographic", ErrOffsetOutOfGrid, l.modelType)
	case math.Abs(l.scaleX-unitLon) > epsilon || math.Abs(l.scaleY-unitLat) > epsilon:
		return fmt.Errorf("%w: pixel scale %g, %g, expected %g, %g", ErrOffsetOutOfGrid, l.scaleX, l.scaleY, unitLon, unitLat)
	case math.Abs(l.originX-grid.Box.LonMin) > epsilon || math.Abs(l.originY-grid.Box.LatMax) > epsilon:
		return fmt.Errorf("%w: origin %g, %g, expected %g, %g", ErrOffsetOutOfGrid, l.originX, l.originY, grid.Box.LonMin, grid.Box.LatMax)
	case l.format.Width != grid.Format.Width:
		return fmt.Errorf("%w: %d-byte samples, expected %d", ErrOffsetOutOfGrid, l.format.Width, grid.Format.Width)
	}
	return nil
}

// tileIndex returns the index of the internal tile containing the sample at
// row and column and the index of the sample within that tile.
func (l *geoTIFFLayout) tileIndex(row, column int) (int, int) {
	tileIndex := column/l.tileWidth + l.tilesAcross*(row/l.tileLength)
	sampleIndex := column%l.tileWidth + (row%l.tileLength)*l.tileWidth
	return tileIndex, sampleIndex
}

// getCompressedTileData returns the compressed data of tile tileIndex.
func (l *geoTIFFLayout) getCompressedTileData(r io.ReaderAt, tileIndex int) ([]byte, error) {
	tileByteCount := l.tileByteCounts[tileIndex]
	compressedData := make([]byte, tileByteCount)
	switch n, err := r.ReadAt(compressedData, int64(l.tileOffsets[tileIndex])); {
	case n == int(tileByteCount):
		return compressedData, nil
	case err != nil && !errors.Is(err, io.EOF):
		return nil, err
	default:
		return nil, errShortRead
	}
}

// decompressTileData decompresses the tile data in compressedData.
func (l *geoTIFFLayout) decompressTileData(compressedData []byte) ([]byte, error) {
	tileByteCountUncompressed := l.tileWidth * l.tileLength * l.format.Width
	if l.compression == compressionNone {
		if len(compressedData) < tileByteCountUncompressed {
			return nil, errShortRead
		}
		return compressedData, nil
	}
	tileData := make([]byte, tileByteCountUncompressed)
	r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer r.Close()
	if _, err := io.ReadFull(r, tileData); err != nil {
		return nil, err
	}
	return tileData, nil
}

// sample returns the raw bytes of the sample at row and column.
func (l *geoTIFFLayout) sample(r io.ReaderAt, row, column int) ([]byte, error) {
	if row < 0 || l.imageLength <= row || column < 0 || l.imageWidth <= column {
		return nil, fmt.Errorf("%w: row %d column %d", ErrOffsetOutOfGrid, row, column)
	}
	tileIndex, sampleIndex := l.tileIndex(row, column)
	compressedData, err := l.getCompressedTileData(r, tileIndex)
	if err != nil {
		return nil, err
	}
	tileData, err := l.decompressTileData(compressedData)
	if err != nil {
		return nil, err
	}
	width := l.format.Width
	return bytes.Clone(tileData[sampleIndex*width : (sampleIndex+1)*width]), nil
}

// A geoTIFFSample is a sample read from a GeoTIFF with the format and no-data
// value declared by the file.
type geoTIFFSample struct {
	raw       []byte
	format    SampleFormat
	noData    int64
	hasNoData bool
}

// readGeoTIFFSample reads the sample of grid at cell from the GeoTIFF name in
// fsys. If layouts is not nil it is used to cache file layouts.
func readGeoTIFFSample(ctx context.Context, fsys fs.FS, name string, grid *GridDescriptor, cell ResolvedCell, layouts *metadataCache) (*geoTIFFSample, error) {
	file, err := openGeoTIFF(fsys, name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	layout, err := layouts.geoTIFFLayout(ctx, name, func() (*geoTIFFLayout, error) {
		return readGeoTIFFLayout(file)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, err)
	}
	if err := layout.check(grid); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	raw, err := layout.sample(file, cell.Row, cell.Column)
	switch {
	case errors.Is(err, ErrOffsetOutOfGrid):
		return nil, fmt.Errorf("%s: %w", name, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, err)
	}
	return &geoTIFFSample{
		raw:       raw,
		format:    layout.format,
		noData:    layout.noData,
		hasNoData: layout.hasNoData,
	}, nil
}
