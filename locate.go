package geofeatures

// Locate returns the first tile in tiles that contains coord and its index.
// Projected tiles are skipped. If no tile contains coord it returns
// ErrCoordinateOutOfDomain.
//
// This is a linear scan, which is fine for catalogs of tens of tiles.
func Locate(coord LatLon, tiles []TileDescriptor) (TileDescriptor, int, error) {
	for i, tile := range tiles {
		if tile.Projected {
			continue
		}
		if tile.Box.Contains(coord) {
			return tile, i, nil
		}
	}
	return TileDescriptor{}, -1, ErrCoordinateOutOfDomain
}
