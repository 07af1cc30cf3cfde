package geofeatures_test

import (
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geofeatures"
)

func TestReferenceRegistry(t *testing.T) {
	r := geofeatures.NewReferenceRegistry()

	tiles := r.Tiles()
	assert.Equal(t, 34, len(tiles))
	assert.Equal(t, "ANTARCPS", tiles[0].Name)
	assert.True(t, tiles[0].Projected)

	assert.Equal(t, 24, len(r.Grids()))
	for _, tc := range []struct {
		id     string
		months int
	}{
		{id: "alt", months: 0},
		{id: "tmean", months: 12},
		{id: "tmin", months: 12},
		{id: "tmax", months: 12},
		{id: "prec", months: 12},
		{id: "bio1", months: 0},
		{id: "bio19", months: 0},
	} {
		grid, ok := r.Grid(tc.id)
		assert.True(t, ok)
		assert.Equal(t, tc.months, grid.Months)
		assert.Equal(t, 18000, grid.Rows)
		assert.Equal(t, 43200, grid.Columns)
		assert.Equal(t, geofeatures.WorldClim30Box, grid.Box)
	}
	_, ok := r.Grid("bio20")
	assert.False(t, ok)

	label, err := r.ProvenanceLabel(0)
	assert.NoError(t, err)
	assert.Equal(t, "Ocean", label)
	label, err = r.ProvenanceLabel(9)
	assert.NoError(t, err)
	assert.Equal(t, "SRTM data", label)
	_, err = r.ProvenanceLabel(10)
	assert.IsError(t, err, geofeatures.ErrInvalidProvenanceCode)
	_, err = r.ProvenanceLabel(-1)
	assert.IsError(t, err, geofeatures.ErrInvalidProvenanceCode)
}

func TestReferenceRegistryPartition(t *testing.T) {
	tiles := geofeatures.NewReferenceRegistry().Tiles()
	r := rand.New(rand.NewPCG(0, 0))
	for range 16384 {
		coord := geofeatures.LatLon{
			Lat: 90 - 180*r.Float64(),
			Lon: -180 + 360*r.Float64(),
		}
		if !coord.Valid() {
			continue
		}
		matches := 0
		for _, tile := range tiles {
			if !tile.Projected && tile.Box.Contains(coord) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "%+v", coord)
	}
}

func TestRegistryAccessorsReturnCopies(t *testing.T) {
	r := geofeatures.NewReferenceRegistry()
	tiles := r.Tiles()
	tiles[1].Name = "changed"
	assert.Equal(t, "W180S60", r.Tiles()[1].Name)

	grids := r.Grids()
	grids[0].ID = "changed"
	_, ok := r.Grid("alt")
	assert.True(t, ok)
	assert.Equal(t, "alt", r.Grids()[0].ID)
}

func TestNewRegistryErrors(t *testing.T) {
	validTile := geofeatures.TileDescriptor{
		Name: "T",
		Box:  geofeatures.BoundingBox{LatMin: 0, LatMax: 1, LonMin: 0, LonMax: 1},
	}
	validElevation := func() geofeatures.ElevationDataset {
		elevation := geofeatures.GTOPO30()
		elevation.Tiles = []geofeatures.TileDescriptor{validTile}
		return elevation
	}
	validGrid := func() geofeatures.GridDescriptor {
		return geofeatures.WorldClim30(geofeatures.LittleEndian)[0]
	}

	for _, tc := range []struct {
		name       string
		elevation  func() geofeatures.ElevationDataset
		grids      func() []geofeatures.GridDescriptor
		provenance geofeatures.ProvenanceTable
	}{
		{
			name: "inverted_tile",
			elevation: func() geofeatures.ElevationDataset {
				elevation := validElevation()
				elevation.Tiles[0].Box.LatMin = 2
				return elevation
			},
		},
		{
			name: "overlapping_tiles",
			elevation: func() geofeatures.ElevationDataset {
				elevation := validElevation()
				overlapping := validTile
				overlapping.Box.LonMin = 0.5
				overlapping.Box.LonMax = 1.5
				elevation.Tiles = append(elevation.Tiles, overlapping)
				return elevation
			},
		},
		{
			name: "fractional_cells",
			elevation: func() geofeatures.ElevationDataset {
				elevation := validElevation()
				elevation.Tiles[0].Box.LatMax = 1.001
				return elevation
			},
		},
		{
			name: "no_tiles",
			elevation: func() geofeatures.ElevationDataset {
				elevation := validElevation()
				elevation.Tiles = nil
				return elevation
			},
		},
		{
			name: "zero_cells_per_degree",
			elevation: func() geofeatures.ElevationDataset {
				elevation := validElevation()
				elevation.CellsPerDegree = 0
				return elevation
			},
		},
		{
			name: "sample_width",
			elevation: func() geofeatures.ElevationDataset {
				elevation := validElevation()
				elevation.Format.Width = 3
				return elevation
			},
		},
		{
			name: "grid_rows",
			grids: func() []geofeatures.GridDescriptor {
				grid := validGrid()
				grid.Rows = 0
				return []geofeatures.GridDescriptor{grid}
			},
		},
		{
			name: "grid_months",
			grids: func() []geofeatures.GridDescriptor {
				grid := validGrid()
				grid.Months = 13
				return []geofeatures.GridDescriptor{grid}
			},
		},
		{
			name: "grid_box",
			grids: func() []geofeatures.GridDescriptor {
				grid := validGrid()
				grid.Box.LonMax = grid.Box.LonMin
				return []geofeatures.GridDescriptor{grid}
			},
		},
		{
			name: "duplicate_grid",
			grids: func() []geofeatures.GridDescriptor {
				return []geofeatures.GridDescriptor{validGrid(), validGrid()}
			},
		},
		{
			name:       "empty_provenance",
			provenance: geofeatures.ProvenanceTable{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			elevation := validElevation()
			if tc.elevation != nil {
				elevation = tc.elevation()
			}
			grids := []geofeatures.GridDescriptor{validGrid()}
			if tc.grids != nil {
				grids = tc.grids()
			}
			provenance := geofeatures.GTOPO30Sources
			if tc.provenance != nil {
				provenance = tc.provenance
			}
			_, err := geofeatures.NewRegistry(elevation, grids, provenance)
			assert.IsError(t, err, geofeatures.ErrInvalidConfiguration)
		})
	}
}

func TestGridDescriptorPath(t *testing.T) {
	grids := geofeatures.WorldClim30(geofeatures.LittleEndian)
	assert.Equal(t, "WORLDCLIM30/alt/alt.bil", grids[0].Path(0))
	assert.Equal(t, "WORLDCLIM30/alt/alt.hdr", grids[0].HeaderPath(0))
	assert.Equal(t, "WORLDCLIM30/tmean/tmean_7.bil", grids[1].Path(7))

	geoTIFF := grids[1]
	geoTIFF.Kind = geofeatures.FileKindGeoTIFF
	assert.Equal(t, "WORLDCLIM30/tmean/tmean_12.tif", geoTIFF.Path(12))

	custom := grids[1]
	custom.FileNameTemplate = "wc2.1_30s/wc2.1_30s_{id}_{month}.bil"
	assert.Equal(t, "wc2.1_30s/wc2.1_30s_tmean_3.bil", custom.Path(3))
}

func TestElevationDatasetPaths(t *testing.T) {
	elevation := geofeatures.GTOPO30()
	tile := elevation.Tiles[22]
	assert.Equal(t, "E020S10", tile.Name)
	assert.Equal(t, "GTOPO30/E020S10/E020S10.DEM", elevation.DataPath(tile))
	assert.Equal(t, "GTOPO30/E020S10/E020S10.SRC", elevation.SourcePath(tile))
	assert.Equal(t, "GTOPO30/E020S10/E020S10.HDR", elevation.HeaderPath(tile))

	rows, columns := elevation.Size(tile)
	assert.Equal(t, 6000, rows)
	assert.Equal(t, 4800, columns)

	rows, columns = elevation.Size(elevation.Tiles[1])
	assert.Equal(t, 3600, rows)
	assert.Equal(t, 7200, columns)
}
