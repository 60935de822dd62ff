package domain

import "github.com/khiwniti/geofleet/internal/pkg/geospatial"

// GeoPoint represents a geographic coordinate (WGS 84). It aliases the
// geometry package's point so polygon rings feed the containment math
// without per-evaluation conversion.
type GeoPoint = geospatial.Point

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box, borders included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}
