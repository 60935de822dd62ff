// Package geospatial provides the pure geometry used by geofence evaluation:
// great-circle distance, point-in-polygon containment, and small planar
// projections. Functions operate on raw lat/lon degrees and have no domain
// dependencies.
package geospatial

import "math"

const (
	earthRadiusKm = 6371.0

	// Meters per degree of latitude. Good enough for the short
	// distances the projection helpers are used for.
	metersPerDegree = 111320.0
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is a usable WGS 84 coordinate.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// PointInPolygon reports whether the point lies inside the ring using an
// even-odd ray cast on the lat/lon plane. The ring is treated as implicitly
// closed; callers must pass at least three vertices. A point exactly on an
// edge or vertex resolves to one fixed side, identically on every call.
func PointInPolygon(lat, lon float64, ring []Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > lat) != (vj.Lat > lat) &&
			lon < (vj.Lon-vi.Lon)*(lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
			inside = !inside
		}
	}
	return inside
}

// Destination projects a point the given distance in meters along a compass
// bearing in degrees, using an equirectangular approximation. Accurate to
// well under a meter for the sub-kilometer steps movement simulation takes.
func Destination(lat, lon, distanceMeters, bearingDeg float64) (float64, float64) {
	b := toRad(bearingDeg)
	dLat := distanceMeters * math.Cos(b) / metersPerDegree
	dLon := distanceMeters * math.Sin(b) / (metersPerDegree * math.Cos(toRad(lat)))
	return lat + dLat, lon + dLon
}

// BoundingBox returns a bounding box around a point with the given radius in
// meters. The box always contains the full circle, so it is safe as a cheap
// prefilter before an exact Haversine check.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegree
	lonDelta := radiusMeters / (metersPerDegree * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
