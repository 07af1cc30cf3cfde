package geofeatures

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingFileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_missing_file_cache_hits_total",
		Help: "The total number of hits on the missing file cache",
	})
	sampleCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_sample_cache_hits_total",
		Help: "The total number of hits on the sample cache",
	})
	sampleCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_sample_cache_misses_total",
		Help: "The total number of misses on the sample cache",
	})
	sampleCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_sample_cache_evictions_total",
		Help: "The total number of evictions from the sample cache",
	})
	metadataCacheLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_metadata_cache_lookups_total",
		Help: "The total number of lookups in the header and layout cache",
	})
	metadataCacheLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geofeatures_metadata_cache_loads_total",
		Help: "The total number of headers and layouts loaded from disk",
	})
)

// A sampleKey identifies a sample in a file.
type sampleKey struct {
	name   string
	offset int64
	width  int
}

// A sampleCache caches raw samples and remembers missing files. It is only
// used when a Resolver is created with WithSampleCacheSize.
type sampleCache struct {
	missingFiles sync.Map
	samples      *lru.Cache[sampleKey, []byte]
}

func newSampleCache(size int) (*sampleCache, error) {
	samples, err := lru.New[sampleKey, []byte](size)
	if err != nil {
		return nil, err
	}
	return &sampleCache{
		samples: samples,
	}, nil
}

// readSample returns the sample at offset in name, using c if it is not nil.
func (c *sampleCache) readSample(ctx context.Context, fsys fs.FS, name string, offset int64, width int) ([]byte, error) {
	if c == nil {
		return ReadSample(ctx, fsys, name, offset, width)
	}

	if _, ok := c.missingFiles.Load(name); ok {
		missingFileCacheHits.Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, fs.ErrNotExist)
	}

	key := sampleKey{name: name, offset: offset, width: width}
	if raw, ok := c.samples.Get(key); ok {
		sampleCacheHits.Inc()
		return raw, nil
	}
	sampleCacheMisses.Inc()

	switch raw, err := ReadSample(ctx, fsys, name, offset, width); {
	case errors.Is(err, fs.ErrNotExist):
		c.missingFiles.Store(name, struct{}{})
		return nil, err
	case err != nil:
		return nil, err
	default:
		if eviction := c.samples.Add(key, raw); eviction {
			sampleCacheEvictions.Inc()
		}
		return raw, nil
	}
}

// A metadataCache caches parsed headers and GeoTIFF layouts. It is only used
// when a Resolver is created with WithMetadataCacheSize.
type metadataCache struct {
	headers *otter.Cache[string, *BILHeader]
	layouts *otter.Cache[string, *geoTIFFLayout]
}

func newMetadataCache(size int) (*metadataCache, error) {
	headers, err := otter.New(&otter.Options[string, *BILHeader]{
		MaximumSize: size,
	})
	if err != nil {
		return nil, err
	}
	layouts, err := otter.New(&otter.Options[string, *geoTIFFLayout]{
		MaximumSize: size,
	})
	if err != nil {
		return nil, err
	}
	return &metadataCache{
		headers: headers,
		layouts: layouts,
	}, nil
}

// bilHeader returns the header name, calling load on a miss.
func (c *metadataCache) bilHeader(ctx context.Context, name string, load func() (*BILHeader, error)) (*BILHeader, error) {
	if c == nil {
		return load()
	}
	metadataCacheLookups.Inc()
	return c.headers.Get(ctx, name, otter.LoaderFunc[string, *BILHeader](func(ctx context.Context, key string) (*BILHeader, error) {
		metadataCacheLoads.Inc()
		return load()
	}))
}

// geoTIFFLayout returns the layout of name, calling load on a miss.
func (c *metadataCache) geoTIFFLayout(ctx context.Context, name string, load func() (*geoTIFFLayout, error)) (*geoTIFFLayout, error) {
	if c == nil {
		return load()
	}
	metadataCacheLookups.Inc()
	return c.layouts.Get(ctx, name, otter.LoaderFunc[string, *geoTIFFLayout](func(ctx context.Context, key string) (*geoTIFFLayout, error) {
		metadataCacheLoads.Inc()
		return load()
	}))
}
