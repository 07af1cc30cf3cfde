package geofeatures

import "slices"

// WorldClim30Box is the extent of the WORLDCLIM 30 arc-second grids.
var WorldClim30Box = BoundingBox{LatMin: -60, LatMax: 90, LonMin: -180, LonMax: 180}

var worldClim30Variables = []struct {
	id     string
	months int
	label  string
}{
	{"alt", 0, "Shuttle Radar Topography Mission (SRTM) (30 sec.)"},
	{"tmean", 12, "WORLDCLIM 30 sec. average monthly mean temperature [C° * 10]"},
	{"tmin", 12, "WORLDCLIM 30 sec. average monthly minimum temperature [C° * 10]"},
	{"tmax", 12, "WORLDCLIM 30 sec. average monthly maximum temperature [C° * 10]"},
	{"prec", 12, "WORLDCLIM 30 sec. average monthly precipitation [mm.]"},
	{"bio1", 0, "WORLDCLIM 30 sec. Annual Mean Temperature [C° * 10]"},
	{"bio2", 0, "WORLDCLIM 30 sec. Mean Diurnal Range (Mean of monthly (max temp - min temp)) [C° * 10]"},
	{"bio3", 0, "WORLDCLIM 30 sec. Isothermality (P2/P7) (* 100)"},
	{"bio4", 0, "WORLDCLIM 30 sec. Temperature Seasonality (standard deviation *100)"},
	{"bio5", 0, "WORLDCLIM 30 sec. Maximum Temperature of Warmest Month [C° * 10]"},
	{"bio6", 0, "WORLDCLIM 30 sec. Minimum Temperature of Coldest Month [C° * 10]"},
	{"bio7", 0, "WORLDCLIM 30 sec. Temperature Annual Range (P5-P6)"},
	{"bio8", 0, "WORLDCLIM 30 sec. Mean Temperature of Wettest Quarter [C° * 10]"},
	{"bio9", 0, "WORLDCLIM 30 sec. Mean Temperature of Driest Quarter [C° * 10]"},
	{"bio10", 0, "WORLDCLIM 30 sec. Mean Temperature of Warmest Quarter [C° * 10]"},
	{"bio11", 0, "WORLDCLIM 30 sec. Mean Temperature of Coldest Quarter [C° * 10]"},
	{"bio12", 0, "WORLDCLIM 30 sec. Annual Precipitation"},
	{"bio13", 0, "WORLDCLIM 30 sec. Precipitation of Wettest Month"},
	{"bio14", 0, "WORLDCLIM 30 sec. Precipitation of Driest Month"},
	{"bio15", 0, "WORLDCLIM 30 sec. Precipitation Seasonality (Coefficient of Variation)"},
	{"bio16", 0, "WORLDCLIM 30 sec. Precipitation of Wettest Quarter"},
	{"bio17", 0, "WORLDCLIM 30 sec. Precipitation of Driest Quarter"},
	{"bio18", 0, "WORLDCLIM 30 sec. Precipitation of Warmest Quarter"},
	{"bio19", 0, "WORLDCLIM 30 sec. Precipitation of Coldest Quarter"},
}

// WorldClim30 returns the 24 WORLDCLIM 30 arc-second grids. The files
// distributed by WORLDCLIM are little endian (BYTEORDER I); byteOrder allows
// deployments with converted files to say otherwise.
func WorldClim30(byteOrder ByteOrder) []GridDescriptor {
	grids := make([]GridDescriptor, 0, len(worldClim30Variables))
	for _, v := range worldClim30Variables {
		grids = append(grids, GridDescriptor{
			ID:       v.id,
			Label:    v.label,
			Box:      WorldClim30Box,
			Rows:     18000,
			Columns:  43200,
			Format:   SampleFormat{Width: 2, ByteOrder: byteOrder},
			Sentinel: -9999,
			Months:   v.months,
		})
	}
	return grids
}

// NewReferenceRegistry returns a Registry with the GTOPO30 tiles, the
// WORLDCLIM 30 arc-second grids and the GTOPO30 source labels.
func NewReferenceRegistry() *Registry {
	r, err := NewRegistry(GTOPO30(), WorldClim30(LittleEndian), slices.Clone(GTOPO30Sources))
	if err != nil {
		panic(err)
	}
	return r
}
