// Package memory holds the in-process state the evaluation path runs
// against: the copy-on-write geofence registry, per-shard membership
// tracking, and bounded position retention. Nothing here touches I/O.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/khiwniti/geofleet/internal/core/domain"
)

// GeofenceRegistry is a copy-on-write fence store. Mutations rebuild the
// active-fence snapshot under a writer lock and publish it through an atomic
// pointer, so the hot path reads without locking and never observes a
// half-updated fence.
type GeofenceRegistry struct {
	mu       sync.RWMutex
	fences   map[string]domain.Geofence
	snapshot atomic.Pointer[[]domain.Geofence]
}

func NewGeofenceRegistry() *GeofenceRegistry {
	r := &GeofenceRegistry{fences: make(map[string]domain.Geofence)}
	empty := []domain.Geofence{}
	r.snapshot.Store(&empty)
	return r
}

// Upsert validates and stores the fence, replacing any previous fence with
// the same id. A rejected fence leaves both the map and the snapshot
// untouched.
func (r *GeofenceRegistry) Upsert(fence domain.Geofence) error {
	if err := fence.Validate(); err != nil {
		return fmt.Errorf("upsert geofence %q: %w", fence.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fences[fence.ID] = cloneFence(fence)
	r.rebuild()
	return nil
}

// Remove deletes the fence and reports whether it existed.
func (r *GeofenceRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fences[id]; !ok {
		return false
	}
	delete(r.fences, id)
	r.rebuild()
	return true
}

func (r *GeofenceRegistry) Get(id string) (domain.Geofence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fences[id]
	if !ok {
		return domain.Geofence{}, false
	}
	return cloneFence(f), true
}

// List returns every stored fence, inactive ones included, sorted by id.
func (r *GeofenceRegistry) List() []domain.Geofence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Geofence, 0, len(r.fences))
	for _, f := range r.fences {
		out = append(out, cloneFence(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns the current active-fence slice, sorted by id. The slice
// is shared between all callers and must be treated as read-only; mutators
// replace it rather than editing it in place.
func (r *GeofenceRegistry) Snapshot() []domain.Geofence {
	return *r.snapshot.Load()
}

func (r *GeofenceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fences)
}

// rebuild publishes a fresh active-fence snapshot. Callers hold the write
// lock.
func (r *GeofenceRegistry) rebuild() {
	active := make([]domain.Geofence, 0, len(r.fences))
	for _, f := range r.fences {
		if f.Active {
			active = append(active, f)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	r.snapshot.Store(&active)
}

// cloneFence copies the fence's pointer and slice fields so neither callers
// nor snapshot readers can reach the registry's backing data.
func cloneFence(g domain.Geofence) domain.Geofence {
	if g.Vertices != nil {
		g.Vertices = append([]domain.GeoPoint(nil), g.Vertices...)
	}
	if g.MaxSpeed != nil {
		v := *g.MaxSpeed
		g.MaxSpeed = &v
	}
	return g
}
