package geofeatures

// GTOPO30Sources are the labels of the GTOPO30 source codes.
var GTOPO30Sources = ProvenanceTable{
	"Ocean",
	"Digital Terrain Elevation Data",
	"Digital Chart of the World",
	"USGS 1-degree DEM",
	"Army Map Service 1:1,000,000-scale maps",
	"International Map of the World 1:1,000,000-scale maps",
	"Peru 1:1,000,000-scale map",
	"New Zealand DEM",
	"Antarctic Digital Database",
	"SRTM data",
}

// GTOPO30 returns the GTOPO30 dataset: 33 geographic tiles covering
// (-90, 90] x [-180, 180) at 30 arc-seconds plus the polar stereographic
// Antarctic tile.
func GTOPO30() ElevationDataset {
	return ElevationDataset{
		Directory:      "GTOPO30",
		Tiles:          gtopo30Tiles(),
		CellsPerDegree: 120,
		Format:         int16BigEndian,
		Sentinel:       -9999,
		DataExt:        ".DEM",
		SourceExt:      ".SRC",
		HeaderExt:      ".HDR",
	}
}

func gtopo30Tiles() []TileDescriptor {
	tile := func(name string, latMin, latMax, lonMin, lonMax float64) TileDescriptor {
		return TileDescriptor{
			Name: name,
			Box: BoundingBox{
				LatMin: latMin,
				LatMax: latMax,
				LonMin: lonMin,
				LonMax: lonMax,
			},
		}
	}
	antarcps := tile("ANTARCPS", -90, -60, -180, 180)
	antarcps.Projected = true
	return []TileDescriptor{
		antarcps,
		tile("W180S60", -90, -60, -180, -120),
		tile("W120S60", -90, -60, -120, -60),
		tile("W060S60", -90, -60, -60, 0),
		tile("W000S60", -90, -60, 0, 60),
		tile("E060S60", -90, -60, 60, 120),
		tile("E120S60", -90, -60, 120, 180),
		tile("W180S10", -60, -10, -180, -140),
		tile("W180N90", 40, 90, -180, -140),
		tile("W180N40", -10, 40, -180, -140),
		tile("W140S10", -60, -10, -140, -100),
		tile("W140N90", 40, 90, -140, -100),
		tile("W140N40", -10, 40, -140, -100),
		tile("W100S10", -60, -10, -100, -60),
		tile("W100N90", 40, 90, -100, -60),
		tile("W100N40", -10, 40, -100, -60),
		tile("W060S10", -60, -10, -60, -20),
		tile("W060N90", 40, 90, -60, -20),
		tile("W060N40", -10, 40, -60, -20),
		tile("W020S10", -60, -10, -20, 20),
		tile("W020N90", 40, 90, -20, 20),
		tile("W020N40", -10, 40, -20, 20),
		tile("E020S10", -60, -10, 20, 60),
		tile("E020N90", 40, 90, 20, 60),
		tile("E020N40", -10, 40, 20, 60),
		tile("E060S10", -60, -10, 60, 100),
		tile("E060N90", 40, 90, 60, 100),
		tile("E060N40", -10, 40, 60, 100),
		tile("E100S10", -60, -10, 100, 140),
		tile("E100N90", 40, 90, 100, 140),
		tile("E100N40", -10, 40, 100, 140),
		tile("E140S10", -60, -10, 140, 180),
		tile("E140N90", 40, 90, 140, 180),
		tile("E140N40", -10, 40, 140, 180),
	}
}
