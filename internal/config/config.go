package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/twpayne/go-geofeatures"
)

// Config holds all application configuration.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Registry RegistryConfig `mapstructure:"registry"`
}

type DataConfig struct {
	BaseDirectory string `mapstructure:"base_directory"`
}

type ResolverConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	Concurrency       int           `mapstructure:"concurrency"`
	SampleCacheSize   int           `mapstructure:"sample_cache_size"`
	MetadataCacheSize int           `mapstructure:"metadata_cache_size"`
	Headers           bool          `mapstructure:"headers"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RegistryConfig adjusts the reference registry.
type RegistryConfig struct {
	// ClimateByteOrder is the byte order of the WORLDCLIM files.
	ClimateByteOrder string `mapstructure:"climate_byte_order"`
	// ClimateFileKind is "bil" or "geotiff".
	ClimateFileKind string `mapstructure:"climate_file_kind"`
	// Tiles, if set, replace the GTOPO30 tiles.
	Tiles []geofeatures.TileDescriptor `mapstructure:"tiles"`
	// Grids replace the WORLDCLIM grids with the same id or are appended.
	Grids []GridConfig `mapstructure:"grids"`
}

type GridConfig struct {
	ID               string                  `mapstructure:"id"`
	Label            string                  `mapstructure:"label"`
	Box              geofeatures.BoundingBox `mapstructure:"box"`
	Rows             int                     `mapstructure:"rows"`
	Columns          int                     `mapstructure:"columns"`
	Width            int                     `mapstructure:"width"`
	Unsigned         bool                    `mapstructure:"unsigned"`
	ByteOrder        string                  `mapstructure:"byte_order"`
	Sentinel         *int64                  `mapstructure:"sentinel"`
	Months           int                     `mapstructure:"months"`
	Kind             string                  `mapstructure:"kind"`
	FileNameTemplate string                  `mapstructure:"file_name_template"`
}

// Load reads configuration from the file path, if not empty, and environment
// variables. Without a path, geofeatures.yaml is looked for in the current
// directory and /etc/geofeatures.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("data.base_directory", ".")
	v.SetDefault("resolver.read_timeout", 5*time.Second)
	v.SetDefault("resolver.concurrency", 8)
	v.SetDefault("resolver.sample_cache_size", 0)
	v.SetDefault("resolver.metadata_cache_size", 64)
	v.SetDefault("resolver.headers", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("registry.climate_byte_order", "little")
	v.SetDefault("registry.climate_file_kind", "bil")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("geofeatures")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/geofeatures")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Environment variables: GEOFEATURES_DATA_BASE_DIRECTORY → data.base_directory
	v.SetEnvPrefix("GEOFEATURES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration fields are present and sane. The
// registry is checked by Build.
func (c *Config) Validate() error {
	var errs []string

	if c.Data.BaseDirectory == "" {
		errs = append(errs, "data.base_directory is required")
	}
	if c.Resolver.ReadTimeout < 0 {
		errs = append(errs, "resolver.read_timeout must not be negative")
	}
	if c.Resolver.Concurrency <= 0 {
		errs = append(errs, fmt.Sprintf("resolver.concurrency must be positive, got %d", c.Resolver.Concurrency))
	}
	if c.Resolver.SampleCacheSize < 0 || c.Resolver.MetadataCacheSize < 0 {
		errs = append(errs, "resolver cache sizes must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if _, err := geofeatures.ParseByteOrder(c.Registry.ClimateByteOrder); err != nil {
		errs = append(errs, "registry.climate_byte_order: "+err.Error())
	}
	if _, err := geofeatures.ParseFileKind(c.Registry.ClimateFileKind); err != nil {
		errs = append(errs, "registry.climate_file_kind: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Build returns the reference registry adjusted by c.
func (c *RegistryConfig) Build() (*geofeatures.Registry, error) {
	byteOrder, err := geofeatures.ParseByteOrder(c.ClimateByteOrder)
	if err != nil {
		return nil, err
	}
	kind, err := geofeatures.ParseFileKind(c.ClimateFileKind)
	if err != nil {
		return nil, err
	}

	elevation := geofeatures.GTOPO30()
	if len(c.Tiles) > 0 {
		elevation.Tiles = c.Tiles
	}

	grids := geofeatures.WorldClim30(byteOrder)
	for i := range grids {
		grids[i].Kind = kind
	}
	index := make(map[string]int, len(grids))
	for i, grid := range grids {
		index[grid.ID] = i
	}
	for _, gridConfig := range c.Grids {
		grid, err := gridConfig.descriptor(byteOrder, kind)
		if err != nil {
			return nil, err
		}
		if i, ok := index[grid.ID]; ok {
			grids[i] = grid
		} else {
			index[grid.ID] = len(grids)
			grids = append(grids, grid)
		}
	}

	return geofeatures.NewRegistry(elevation, grids, geofeatures.GTOPO30Sources)
}

// descriptor returns the descriptor of g. Unset fields take the WORLDCLIM 30
// arc-second values.
func (g *GridConfig) descriptor(byteOrder geofeatures.ByteOrder, kind geofeatures.FileKind) (geofeatures.GridDescriptor, error) {
	grid := geofeatures.GridDescriptor{
		ID:               g.ID,
		Label:            g.Label,
		Box:              g.Box,
		Rows:             g.Rows,
		Columns:          g.Columns,
		Format:           geofeatures.SampleFormat{Width: g.Width, Unsigned: g.Unsigned, ByteOrder: byteOrder},
		Sentinel:         -9999,
		Months:           g.Months,
		Kind:             kind,
		FileNameTemplate: g.FileNameTemplate,
	}
	if grid.Box == (geofeatures.BoundingBox{}) {
		grid.Box = geofeatures.WorldClim30Box
	}
	if grid.Rows == 0 && grid.Columns == 0 {
		grid.Rows, grid.Columns = 18000, 43200
	}
	if grid.Format.Width == 0 {
		grid.Format.Width = 2
	}
	if g.Sentinel != nil {
		grid.Sentinel = *g.Sentinel
	}
	if g.ByteOrder != "" {
		var err error
		if grid.Format.ByteOrder, err = geofeatures.ParseByteOrder(g.ByteOrder); err != nil {
			return geofeatures.GridDescriptor{}, fmt.Errorf("grid %s: %w", g.ID, err)
		}
	}
	if g.Kind != "" {
		var err error
		if grid.Kind, err = geofeatures.ParseFileKind(g.Kind); err != nil {
			return geofeatures.GridDescriptor{}, fmt.Errorf("grid %s: %w", g.ID, err)
		}
	}
	return grid, nil
}

// NewResolver returns a Resolver over the data directory configured in c.
func (c *Config) NewResolver(logger *slog.Logger) (*geofeatures.Resolver, error) {
	registry, err := c.Registry.Build()
	if err != nil {
		return nil, err
	}
	return geofeatures.NewResolver(
		geofeatures.WithFS(os.DirFS(c.Data.BaseDirectory)),
		geofeatures.WithRegistry(registry),
		geofeatures.WithLogger(logger),
		geofeatures.WithReadTimeout(c.Resolver.ReadTimeout),
		geofeatures.WithConcurrency(c.Resolver.Concurrency),
		geofeatures.WithSampleCacheSize(c.Resolver.SampleCacheSize),
		geofeatures.WithMetadataCacheSize(c.Resolver.MetadataCacheSize),
		geofeatures.WithHeaders(c.Resolver.Headers),
	)
}
