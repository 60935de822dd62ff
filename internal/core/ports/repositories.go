package ports

import (
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
)

// GeofenceRegistry holds the fence set and serves immutable snapshots to the
// evaluation path. Implementations must be safe for concurrent use; the hot
// path only ever calls Snapshot.
type GeofenceRegistry interface {
	// Upsert validates the fence and stores it, replacing any fence with
	// the same id. Invalid fences are rejected with ErrInvalidGeofence
	// and leave the registry unchanged.
	Upsert(fence domain.Geofence) error
	// Remove deletes the fence and reports whether it existed.
	Remove(id string) bool
	Get(id string) (domain.Geofence, bool)
	// List returns every stored fence, inactive ones included, sorted by id.
	List() []domain.Geofence
	// Snapshot returns the active fences sorted by id. The returned slice
	// is shared between callers and must not be mutated.
	Snapshot() []domain.Geofence
	Len() int
}

// MembershipTracker records which fences each vehicle is currently inside.
// Implementations are not required to be safe for concurrent use: the
// processor gives each worker shard its own tracker and a vehicle is always
// handled by the same shard.
type MembershipTracker interface {
	// CurrentSet returns the fence ids the vehicle was inside after its
	// previous report. Unknown vehicles yield an empty set. The returned
	// map is the tracker's own; callers must not mutate it.
	CurrentSet(vehicleID string) map[string]struct{}
	// Replace swaps in the membership set computed from the latest report.
	Replace(vehicleID string, next map[string]struct{})
	Forget(vehicleID string)
}

// PositionStore retains the latest accepted report per vehicle.
type PositionStore interface {
	Put(report domain.PositionReport)
	Latest(vehicleID string) (domain.PositionReport, bool)
	// All returns the latest report of every tracked vehicle, sorted by
	// vehicle id.
	All() []domain.PositionReport
	Remove(vehicleID string)
	Len() int
}

// PositionHistory retains a bounded sliding window of recent reports per
// vehicle. Best effort only; durable history lives behind the event bridge.
type PositionHistory interface {
	Append(report domain.PositionReport)
	// Window returns the retained reports for the vehicle not older than
	// since, oldest first.
	Window(vehicleID string, since time.Time) []domain.PositionReport
	Drop(vehicleID string)
}
