package memory

// Tracker is a plain map-backed membership tracker, not safe for concurrent
// use. The processor creates one per worker shard and a vehicle is always
// handled by the same shard.
type Tracker struct {
	vehicles map[string]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{vehicles: make(map[string]map[string]struct{})}
}

// CurrentSet returns the fence ids the vehicle is inside. The returned map
// is the tracker's own (nil for unknown vehicles); callers read it only.
func (t *Tracker) CurrentSet(vehicleID string) map[string]struct{} {
	return t.vehicles[vehicleID]
}

// Replace swaps in the membership set computed from the latest report.
// Empty sets release the vehicle's entry entirely.
func (t *Tracker) Replace(vehicleID string, next map[string]struct{}) {
	if len(next) == 0 {
		delete(t.vehicles, vehicleID)
		return
	}
	t.vehicles[vehicleID] = next
}

func (t *Tracker) Forget(vehicleID string) {
	delete(t.vehicles, vehicleID)
}
