package usecases

import (
	"fmt"
	"sort"
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/pkg/geospatial"
)

const defaultHistoryWindow = 15 * time.Minute

// VehicleService serves live position queries straight from the in-memory
// stores; nothing here blocks, so no contexts are threaded through.
type VehicleService struct {
	store   ports.PositionStore
	history ports.PositionHistory
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(store ports.PositionStore, history ports.PositionHistory) *VehicleService {
	return &VehicleService{store: store, history: history}
}

// CurrentPosition returns the vehicle's latest accepted report.
func (s *VehicleService) CurrentPosition(vehicleID string) (domain.PositionReport, error) {
	r, ok := s.store.Latest(vehicleID)
	if !ok {
		return domain.PositionReport{}, fmt.Errorf("vehicle %q: %w", vehicleID, domain.ErrVehicleNotFound)
	}
	return r, nil
}

// All returns the latest report of every tracked vehicle, sorted by id.
func (s *VehicleService) All() []domain.PositionReport {
	return s.store.All()
}

// History returns the retained reports for the vehicle inside the window,
// oldest first. Retention is bounded and best effort.
func (s *VehicleService) History(vehicleID string, window time.Duration) ([]domain.PositionReport, error) {
	if _, ok := s.store.Latest(vehicleID); !ok {
		return nil, fmt.Errorf("vehicle %q: %w", vehicleID, domain.ErrVehicleNotFound)
	}
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return s.history.Window(vehicleID, time.Now().Add(-window)), nil
}

// Near returns vehicles whose latest position lies within radiusMeters of
// the point, nearest first. A bounding-box prefilter rejects far vehicles
// before the exact distance check.
func (s *VehicleService) Near(lat, lon, radiusMeters float64, limit int) []domain.PositionReport {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, radiusMeters)
	box := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}

	type hit struct {
		report domain.PositionReport
		dist   float64
	}
	var hits []hit
	for _, r := range s.store.All() {
		if !box.Contains(r.Location) {
			continue
		}
		d := geospatial.Haversine(lat, lon, r.Location.Lat, r.Location.Lon)
		if d <= radiusMeters {
			hits = append(hits, hit{report: r, dist: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.PositionReport, len(hits))
	for i, h := range hits {
		out[i] = h.report
	}
	return out
}
