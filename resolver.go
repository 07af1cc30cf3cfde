package geofeatures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var (
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_queries_total",
		Help: "The total number of resolved queries",
	})
	outOfDomainTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_out_of_domain_total",
		Help: "The total number of queries outside every elevation tile",
	})
	samplesReadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeatures_samples_read_total",
		Help: "The total number of samples read, by dataset",
	}, []string{"dataset"})
	datasetUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeatures_dataset_unavailable_total",
		Help: "The total number of samples that could not be read, by dataset",
	}, []string{"dataset"})
	noDataSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeatures_nodata_suppressed_total",
		Help: "The total number of no-data climate samples omitted from results, by dataset",
	}, []string{"dataset"})
	internalFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeatures_internal_faults_total",
		Help: "The total number of registry and data consistency faults, by kind",
	}, []string{"kind"})
)

const (
	elevationDataset  = "elevation"
	provenanceDataset = "provenance"
)

// A Resolver resolves coordinates against the datasets in a Registry. It is
// safe for concurrent use.
type Resolver struct {
	fsys              fs.FS
	registry          *Registry
	logger            *slog.Logger
	readTimeout       time.Duration
	concurrency       int
	headers           bool
	sampleCacheSize   int
	metadataCacheSize int
	samples           *sampleCache
	metadata          *metadataCache
}

// A ResolverOption sets an option on a Resolver.
type ResolverOption func(*Resolver)

// NewResolver returns a new Resolver with the given options. WithFS is
// required.
func NewResolver(options ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		readTimeout: 5 * time.Second,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, option := range options {
		option(r)
	}

	if r.fsys == nil {
		return nil, errors.New("no filesystem")
	}
	if r.registry == nil {
		r.registry = NewReferenceRegistry()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}

	var err error
	if r.sampleCacheSize > 0 {
		if r.samples, err = newSampleCache(r.sampleCacheSize); err != nil {
			return nil, err
		}
	}
	if r.metadataCacheSize > 0 {
		if r.metadata, err = newMetadataCache(r.metadataCacheSize); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithConcurrency sets the maximum number of features resolved concurrently
// for one query.
func WithConcurrency(concurrency int) ResolverOption {
	return func(r *Resolver) {
		r.concurrency = concurrency
	}
}

// WithFS sets the filesystem containing the GTOPO30 and WORLDCLIM30
// directories.
func WithFS(fsys fs.FS) ResolverOption {
	return func(r *Resolver) {
		r.fsys = fsys
	}
}

// WithHeaders sets whether ESRI headers next to raster files are consulted
// for byte order, geometry and no-data values.
func WithHeaders(headers bool) ResolverOption {
	return func(r *Resolver) {
		r.headers = headers
	}
}

func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetadataCacheSize enables caching of parsed headers and GeoTIFF
// layouts across queries.
func WithMetadataCacheSize(size int) ResolverOption {
	return func(r *Resolver) {
		r.metadataCacheSize = size
	}
}

// WithReadTimeout sets the timeout of each file read. Zero disables it.
func WithReadTimeout(readTimeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.readTimeout = readTimeout
	}
}

func WithRegistry(registry *Registry) ResolverOption {
	return func(r *Resolver) {
		r.registry = registry
	}
}

// WithSampleCacheSize enables caching of raw samples and missing files across
// queries.
func WithSampleCacheSize(size int) ResolverOption {
	return func(r *Resolver) {
		r.sampleCacheSize = size
	}
}

// Registry returns r's registry.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// ResolveFeatures resolves the elevation and every climate feature at coord.
// coord must be valid. The only error returned is one wrapping
// ErrCoordinateOutOfDomain. Every other failure is recorded in the result of
// the feature concerned.
func (r *Resolver) ResolveFeatures(ctx context.Context, coord LatLon) (*Result, error) {
	tile, tileIndex, err := Locate(coord, r.registry.elevation.Tiles)
	if err != nil {
		outOfDomainTotal.Inc()
		r.logger.DebugContext(ctx, "coordinates out of map", "lat", coord.Lat, "lon", coord.Lon)
		return nil, fmt.Errorf("(%g, %g): %w", coord.Lat, coord.Lon, err)
	}
	queriesTotal.Inc()

	result := &Result{
		Coord:   coord,
		Climate: make([]ClimateFeatureResult, len(r.registry.grids)),
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	g.Go(func() error {
		result.Elevation = r.resolveElevation(ctx, coord, tile, tileIndex)
		return nil
	})
	for i := range r.registry.grids {
		g.Go(func() error {
			result.Climate[i] = r.resolveClimateFeature(ctx, coord, &r.registry.grids[i])
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}

// ResolveFeatures resolves the features at latitude, longitude using the
// reference registry and the datasets under baseDirectory.
func ResolveFeatures(ctx context.Context, baseDirectory string, latitude, longitude float64, options ...ResolverOption) (*Result, error) {
	r, err := NewResolver(slices.Concat(
		[]ResolverOption{
			WithFS(os.DirFS(baseDirectory)),
		},
		options,
	)...)
	if err != nil {
		return nil, err
	}
	return r.ResolveFeatures(ctx, LatLon{Lat: latitude, Lon: longitude})
}

func (r *Resolver) resolveElevation(ctx context.Context, coord LatLon, tile TileDescriptor, tileIndex int) ElevationResult {
	d := &r.registry.elevation
	result := ElevationResult{
		Tile:      tile.Name,
		TileIndex: tileIndex,
		Status:    ElevationUnavailable,
	}

	rows, columns := d.Size(tile)
	cell, err := Resolve(coord, tile.Box, rows, columns)
	if err != nil {
		result.Status = ElevationOutOfGrid
		result.Errors = append(result.Errors, r.record(ctx, elevationDataset, err, "tile", tile.Name))
		return result
	}
	result.Cell = cell

	format, sentinel := d.Format, d.Sentinel
	if r.headers {
		if format, sentinel, err = r.applyHeader(ctx, d.HeaderPath(tile), format, sentinel, rows, columns); err != nil {
			result.Errors = append(result.Errors, r.record(ctx, elevationDataset, err, "tile", tile.Name))
		}
	}
	if err == nil {
		result.Elevation, err = r.readBILSample(ctx, elevationDataset, d.DataPath(tile), cell, format, sentinel)
		if err != nil {
			result.Errors = append(result.Errors, r.record(ctx, elevationDataset, err, "tile", tile.Name))
		}
	}

	result.Source, err = r.readBILSample(ctx, provenanceDataset, d.SourcePath(tile), cell, provenanceFormat, -1)
	if err != nil {
		result.Errors = append(result.Errors, r.record(ctx, provenanceDataset, err, "tile", tile.Name))
	} else if result.Provenance, err = r.registry.ProvenanceLabel(int(result.Source.Value)); err != nil {
		result.Errors = append(result.Errors, r.record(ctx, provenanceDataset, err, "tile", tile.Name))
	}

	switch {
	case result.Elevation.Present && result.Elevation.NoData:
		result.Status = ElevationOverWater
	case result.Elevation.Present:
		result.Status = ElevationOK
	case result.Source.Present:
		result.Status = ElevationProvenanceOnly
	default:
		r.logger.WarnContext(ctx, "elevation unavailable", "tile", tile.Name)
	}
	return result
}

func (r *Resolver) resolveClimateFeature(ctx context.Context, coord LatLon, grid *GridDescriptor) ClimateFeatureResult {
	result := ClimateFeatureResult{
		ID:      grid.ID,
		Label:   grid.Label,
		Monthly: grid.Months > 0,
	}
	if !grid.Box.Contains(coord) {
		result.OutOfCoverage = true
		r.logger.DebugContext(ctx, "outside grid coverage", "dataset", grid.ID, "lat", coord.Lat, "lon", coord.Lon)
		return result
	}
	cell, err := Resolve(coord, grid.Box, grid.Rows, grid.Columns)
	if err != nil {
		result.Errors = append(result.Errors, r.record(ctx, grid.ID, err))
		return result
	}
	for value, err := range r.Samples(ctx, grid, cell) {
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Values = append(result.Values, value)
	}
	return result
}

// Samples returns a sequence of the values of grid at cell. Grids with months
// yield one value per month in ascending order; other grids yield a single
// value with month zero. No-data samples are skipped. Each file is read when
// the sequence reaches it, and the sequence can only be iterated once.
// Read failures are yielded as errors with the month concerned.
func (r *Resolver) Samples(ctx context.Context, grid *GridDescriptor, cell ResolvedCell) iter.Seq2[MonthlyValue, error] {
	months := []int{0}
	if grid.Months > 0 {
		months = make([]int, 0, grid.Months)
		for month := 1; month <= grid.Months; month++ {
			months = append(months, month)
		}
	}
	consumed := false
	return func(yield func(MonthlyValue, error) bool) {
		if consumed {
			return
		}
		consumed = true
		for _, month := range months {
			sample, err := r.readGridSample(ctx, grid, cell, month)
			switch {
			case err != nil:
				if !yield(MonthlyValue{Month: month}, r.record(ctx, grid.ID, err, "month", month)) {
					return
				}
			case sample.NoData:
				noDataSuppressedTotal.WithLabelValues(grid.ID).Inc()
			default:
				if !yield(MonthlyValue{Month: month, Value: sample.Value}, nil) {
					return
				}
			}
		}
	}
}

func (r *Resolver) readGridSample(ctx context.Context, grid *GridDescriptor, cell ResolvedCell, month int) (Sample, error) {
	name := grid.Path(month)
	if grid.Kind == FileKindGeoTIFF {
		readCtx, cancel := r.readContext(ctx)
		defer cancel()
		s, err := withContext(readCtx, name, func() (*geoTIFFSample, error) {
			return readGeoTIFFSample(readCtx, r.fsys, name, grid, cell, r.metadata)
		})
		if err != nil {
			return Sample{}, err
		}
		sentinel := grid.Sentinel
		if s.hasNoData {
			sentinel = s.noData
		}
		samplesReadTotal.WithLabelValues(grid.ID).Inc()
		return Interpret(s.raw, s.format, sentinel)
	}

	format, sentinel := grid.Format, grid.Sentinel
	if r.headers {
		var err error
		if format, sentinel, err = r.applyHeader(ctx, grid.HeaderPath(month), format, sentinel, grid.Rows, grid.Columns); err != nil {
			return Sample{}, err
		}
	}
	return r.readBILSample(ctx, grid.ID, name, cell, format, sentinel)
}

// readBILSample reads and interprets the sample at cell in the row-major
// file name.
func (r *Resolver) readBILSample(ctx context.Context, dataset, name string, cell ResolvedCell, format SampleFormat, sentinel int64) (Sample, error) {
	readCtx, cancel := r.readContext(ctx)
	defer cancel()
	raw, err := r.samples.readSample(readCtx, r.fsys, name, cell.ByteOffset(format.Width), format.Width)
	if err != nil {
		return Sample{}, err
	}
	samplesReadTotal.WithLabelValues(dataset).Inc()
	return Interpret(raw, format, sentinel)
}

// applyHeader returns format and sentinel adjusted by the ESRI header name,
// if it exists.
func (r *Resolver) applyHeader(ctx context.Context, name string, format SampleFormat, sentinel int64, rows, columns int) (SampleFormat, int64, error) {
	readCtx, cancel := r.readContext(ctx)
	defer cancel()
	header, err := withContext(readCtx, name, func() (*BILHeader, error) {
		return r.metadata.bilHeader(readCtx, name, func() (*BILHeader, error) {
			return readBILHeader(r.fsys, name)
		})
	})
	if err != nil {
		return format, sentinel, err
	}
	format, err = header.apply(format, rows, columns)
	if err != nil {
		return format, sentinel, fmt.Errorf("%s: %w", name, err)
	}
	if header.HasNoData {
		sentinel = header.NoData
	}
	return format, sentinel, nil
}

// readBILHeader reads the header name from fsys. A missing header is
// returned as an empty header.
func readBILHeader(fsys fs.FS, name string) (*BILHeader, error) {
	file, err := fsys.Open(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &BILHeader{}, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	defer file.Close()
	header, err := ParseBILHeader(io.LimitReader(file, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, err)
	}
	return header, nil
}

func (r *Resolver) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.readTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.readTimeout)
}

// record logs and counts err, which concerns dataset, and returns it.
func (r *Resolver) record(ctx context.Context, dataset string, err error, args ...any) error {
	args = append([]any{"dataset", dataset, "err", err}, args...)
	switch {
	case errors.Is(err, ErrOffsetOutOfGrid):
		internalFaultsTotal.WithLabelValues("offset_out_of_grid").Inc()
		r.logger.ErrorContext(ctx, "offset out of grid", args...)
	case errors.Is(err, ErrInvalidProvenanceCode):
		internalFaultsTotal.WithLabelValues("invalid_provenance_code").Inc()
		r.logger.ErrorContext(ctx, "invalid provenance code", args...)
	case errors.Is(err, ErrDatasetUnavailable):
		datasetUnavailableTotal.WithLabelValues(dataset).Inc()
		r.logger.DebugContext(ctx, "dataset unavailable", args...)
	default:
		internalFaultsTotal.WithLabelValues("other").Inc()
		r.logger.ErrorContext(ctx, "unexpected error", args...)
	}
	return err
}
