package geofeatures

import (
	"errors"
	"fmt"
	"math"
	"path"
	"slices"
	"strconv"
	"strings"
)

// A TileDescriptor describes one elevation tile. Tile names are not
// necessarily unique; tiles are identified by position.
type TileDescriptor struct {
	Name string      `json:"name" mapstructure:"name"`
	Box  BoundingBox `json:"box" mapstructure:"box"`
	// Projected tiles are not on a geographic grid and are never matched.
	Projected bool `json:"projected,omitempty" mapstructure:"projected"`
}

// An ElevationDataset is a piecewise elevation dataset. Each tile has a
// directory named after it containing the data file and the source file.
type ElevationDataset struct {
	Directory      string
	Tiles          []TileDescriptor
	CellsPerDegree int
	Format         SampleFormat
	Sentinel       int64
	DataExt        string
	SourceExt      string
	HeaderExt      string
}

// Size returns the number of rows and columns of tile.
func (d *ElevationDataset) Size(tile TileDescriptor) (int, int) {
	rows := math.Round((tile.Box.LatMax - tile.Box.LatMin) * float64(d.CellsPerDegree))
	columns := math.Round((tile.Box.LonMax - tile.Box.LonMin) * float64(d.CellsPerDegree))
	return int(rows), int(columns)
}

func (d *ElevationDataset) filename(tile TileDescriptor, ext string) string {
	return path.Join(d.Directory, tile.Name, tile.Name+ext)
}

// DataPath returns the path of tile's elevation file.
func (d *ElevationDataset) DataPath(tile TileDescriptor) string {
	return d.filename(tile, d.DataExt)
}

// SourcePath returns the path of tile's provenance file.
func (d *ElevationDataset) SourcePath(tile TileDescriptor) string {
	return d.filename(tile, d.SourceExt)
}

// HeaderPath returns the path of tile's header file.
func (d *ElevationDataset) HeaderPath(tile TileDescriptor) string {
	return d.filename(tile, d.HeaderExt)
}

// A FileKind is the on-disk container of a grid.
type FileKind int

const (
	FileKindBIL FileKind = iota
	FileKindGeoTIFF
)

// ParseFileKind parses a file kind.
func ParseFileKind(s string) (FileKind, error) {
	switch strings.ToLower(s) {
	case "", "bil":
		return FileKindBIL, nil
	case "geotiff", "tif", "tiff":
		return FileKindGeoTIFF, nil
	default:
		return 0, fmt.Errorf("%w: unknown file kind %q", ErrInvalidConfiguration, s)
	}
}

func (k FileKind) ext() string {
	if k == FileKindGeoTIFF {
		return ".tif"
	}
	return ".bil"
}

// A GridDescriptor describes a global, non-tiled grid. Grids with Months
// greater than zero are split into one file per month sharing the same
// geometry.
type GridDescriptor struct {
	ID       string
	Label    string
	Box      BoundingBox
	Rows     int
	Columns  int
	Format   SampleFormat
	Sentinel int64
	Months   int
	Kind     FileKind
	// FileNameTemplate is a path relative to the base directory. {id} is
	// replaced by ID and {month} by the month number. If it is empty then
	// the WORLDCLIM30 layout is used.
	FileNameTemplate string
}

// Path returns the path of g's file for month, which is ignored for grids
// without months.
func (g *GridDescriptor) Path(month int) string {
	template := g.FileNameTemplate
	if template == "" {
		if g.Months == 0 {
			template = "WORLDCLIM30/{id}/{id}" + g.Kind.ext()
		} else {
			template = "WORLDCLIM30/{id}/{id}_{month}" + g.Kind.ext()
		}
	}
	return strings.NewReplacer(
		"{id}", g.ID,
		"{month}", strconv.Itoa(month),
	).Replace(template)
}

// HeaderPath returns the path of the ESRI header next to the file for month.
func (g *GridDescriptor) HeaderPath(month int) string {
	p := g.Path(month)
	return strings.TrimSuffix(p, path.Ext(p)) + ".hdr"
}

// A ProvenanceTable maps source codes to labels by index.
type ProvenanceTable []string

// A Registry is an immutable catalog of datasets. It is safe for concurrent
// use.
type Registry struct {
	elevation  ElevationDataset
	grids      []GridDescriptor
	gridIndex  map[string]int
	provenance ProvenanceTable
}

// NewRegistry returns a new Registry. It returns an error wrapping
// ErrInvalidConfiguration if any descriptor is malformed.
func NewRegistry(elevation ElevationDataset, grids []GridDescriptor, provenance ProvenanceTable) (*Registry, error) {
	elevation.Tiles = slices.Clone(elevation.Tiles)
	r := &Registry{
		elevation:  elevation,
		grids:      slices.Clone(grids),
		gridIndex:  make(map[string]int, len(grids)),
		provenance: slices.Clone(provenance),
	}

	var errs []error
	errs = append(errs, r.validateElevation()...)
	for i, grid := range r.grids {
		if err := validateGrid(grid); err != nil {
			errs = append(errs, err)
		}
		if _, ok := r.gridIndex[grid.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: duplicate grid %q", ErrInvalidConfiguration, grid.ID))
		}
		r.gridIndex[grid.ID] = i
	}
	if len(r.provenance) == 0 {
		errs = append(errs, fmt.Errorf("%w: empty provenance table", ErrInvalidConfiguration))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) validateElevation() []error {
	var errs []error
	d := &r.elevation
	if d.CellsPerDegree <= 0 {
		errs = append(errs, fmt.Errorf("%w: elevation: %d cells per degree", ErrInvalidConfiguration, d.CellsPerDegree))
	}
	if err := d.Format.validate(); err != nil {
		errs = append(errs, fmt.Errorf("elevation: %w", err))
	}
	if len(d.Tiles) == 0 {
		errs = append(errs, fmt.Errorf("%w: elevation: no tiles", ErrInvalidConfiguration))
	}
	for i, tile := range d.Tiles {
		if tile.Name == "" {
			errs = append(errs, fmt.Errorf("%w: tile %d: empty name", ErrInvalidConfiguration, i))
		}
		if err := tile.Box.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tile %d (%s): %w", i, tile.Name, err))
			continue
		}
		if tile.Projected || d.CellsPerDegree <= 0 {
			continue
		}
		rows, columns := d.Size(tile)
		if float64(rows) != (tile.Box.LatMax-tile.Box.LatMin)*float64(d.CellsPerDegree) ||
			float64(columns) != (tile.Box.LonMax-tile.Box.LonMin)*float64(d.CellsPerDegree) {
			errs = append(errs, fmt.Errorf("%w: tile %d (%s): %v is not a whole number of cells", ErrInvalidConfiguration, i, tile.Name, tile.Box))
		}
		for j, other := range d.Tiles[:i] {
			if !other.Projected && other.Box.Validate() == nil && tile.Box.Overlaps(other.Box) {
				errs = append(errs, fmt.Errorf("%w: tile %d (%s) overlaps tile %d (%s)", ErrInvalidConfiguration, i, tile.Name, j, other.Name))
			}
		}
	}
	return errs
}

func validateGrid(grid GridDescriptor) error {
	switch {
	case grid.ID == "":
		return fmt.Errorf("%w: grid with empty id", ErrInvalidConfiguration)
	case grid.Rows <= 0 || grid.Columns <= 0:
		return fmt.Errorf("%w: grid %s: %d rows by %d columns", ErrInvalidConfiguration, grid.ID, grid.Rows, grid.Columns)
	case grid.Months < 0 || grid.Months > 12:
		return fmt.Errorf("%w: grid %s: %d months", ErrInvalidConfiguration, grid.ID, grid.Months)
	case grid.Kind != FileKindBIL && grid.Kind != FileKindGeoTIFF:
		return fmt.Errorf("%w: grid %s: unknown file kind %d", ErrInvalidConfiguration, grid.ID, grid.Kind)
	}
	if err := grid.Box.Validate(); err != nil {
		return fmt.Errorf("grid %s: %w", grid.ID, err)
	}
	if err := grid.Format.validate(); err != nil {
		return fmt.Errorf("grid %s: %w", grid.ID, err)
	}
	return nil
}

// Elevation returns r's elevation dataset.
func (r *Registry) Elevation() ElevationDataset {
	elevation := r.elevation
	elevation.Tiles = slices.Clone(r.elevation.Tiles)
	return elevation
}

// Tiles returns r's elevation tiles in lookup order.
func (r *Registry) Tiles() []TileDescriptor {
	return slices.Clone(r.elevation.Tiles)
}

// Grid returns the grid with id.
func (r *Registry) Grid(id string) (GridDescriptor, bool) {
	i, ok := r.gridIndex[id]
	if !ok {
		return GridDescriptor{}, false
	}
	return r.grids[i], true
}

// Grids returns all grids in registry order.
func (r *Registry) Grids() []GridDescriptor {
	return slices.Clone(r.grids)
}

// ProvenanceLabel returns the label for code.
func (r *Registry) ProvenanceLabel(code int) (string, error) {
	if code < 0 || code >= len(r.provenance) {
		return "", fmt.Errorf("%w: %d", ErrInvalidProvenanceCode, code)
	}
	return r.provenance[code], nil
}
