package memory

import (
	"sort"
	"sync"

	"github.com/khiwniti/geofleet/internal/core/domain"
)

// PositionStore keeps the latest accepted report per vehicle. It is the one
// piece of evaluation state shared across processor shards, so access goes
// through a read-write lock; each vehicle only ever has one writer.
type PositionStore struct {
	mu     sync.RWMutex
	latest map[string]domain.PositionReport
}

func NewPositionStore() *PositionStore {
	return &PositionStore{latest: make(map[string]domain.PositionReport)}
}

func (s *PositionStore) Put(report domain.PositionReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[report.VehicleID] = report
}

func (s *PositionStore) Latest(vehicleID string) (domain.PositionReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.latest[vehicleID]
	return r, ok
}

// All returns the latest report of every tracked vehicle, sorted by vehicle
// id for stable query output.
func (s *PositionStore) All() []domain.PositionReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PositionReport, 0, len(s.latest))
	for _, r := range s.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

func (s *PositionStore) Remove(vehicleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, vehicleID)
}

func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}
