package usecases

import (
	"fmt"
	"log/slog"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/pkg/metrics"
)

// Detector evaluates position reports against an active-fence snapshot and
// keeps per-vehicle membership current. Each processor shard owns one
// detector wrapping that shard's tracker, so no locking happens here.
type Detector struct {
	members ports.MembershipTracker
}

// NewDetector creates a detector over the given membership tracker.
func NewDetector(members ports.MembershipTracker) *Detector {
	return &Detector{members: members}
}

// Evaluate runs one report against every fence in the snapshot, replaces
// the vehicle's membership set, and returns the violations the report
// raised, in snapshot (fence id) order.
//
// Transition rules per fence: entry fires once when the vehicle is inside
// without being a member; exit fires once when a member is no longer
// inside. Speed and authorization checks fire on every report while the
// vehicle is inside, independently of each other and of entry. A fence that
// disappears from the snapshot drops its memberships without an exit.
func (d *Detector) Evaluate(report domain.PositionReport, snapshot []domain.Geofence) []domain.Violation {
	previous := d.members.CurrentSet(report.VehicleID)
	next := make(map[string]struct{})

	var out []domain.Violation
	for i := range snapshot {
		fence := &snapshot[i]

		// A malformed fence skips this cycle only; the rest of the
		// snapshot still evaluates.
		if err := fence.Validate(); err != nil {
			metrics.EvaluationSkips.Inc()
			slog.Warn("skipping malformed fence", "fence_id", fence.ID, "error", err)
			continue
		}

		inside := fence.Contains(report.Location)
		_, member := previous[fence.ID]

		if !inside {
			if member {
				out = append(out, newViolation(report, fence, domain.ViolationExit,
					fmt.Sprintf("vehicle %s exited %s", report.VehicleID, fence.Name)))
			}
			continue
		}

		next[fence.ID] = struct{}{}

		if !member {
			out = append(out, newViolation(report, fence, domain.ViolationEntry,
				fmt.Sprintf("vehicle %s entered %s", report.VehicleID, fence.Name)))
		}
		if fence.MaxSpeed != nil && report.Speed > *fence.MaxSpeed {
			out = append(out, newViolation(report, fence, domain.ViolationSpeedLimit,
				fmt.Sprintf("vehicle %s at %.1f km/h exceeds the %.1f km/h limit in %s",
					report.VehicleID, report.Speed, *fence.MaxSpeed, fence.Name)))
		}
		if !fence.Authorized {
			out = append(out, newViolation(report, fence, domain.ViolationUnauthorized,
				fmt.Sprintf("vehicle %s is inside unauthorized area %s", report.VehicleID, fence.Name)))
		}
	}

	d.members.Replace(report.VehicleID, next)
	return out
}

// Forget drops the vehicle's membership state, so its next report is
// evaluated as if first seen.
func (d *Detector) Forget(vehicleID string) {
	d.members.Forget(vehicleID)
}

func newViolation(report domain.PositionReport, fence *domain.Geofence, kind domain.ViolationKind, desc string) domain.Violation {
	return domain.Violation{
		Time:        report.Time,
		VehicleID:   report.VehicleID,
		DriverID:    report.DriverID,
		FenceID:     fence.ID,
		FenceName:   fence.Name,
		Kind:        kind,
		Severity:    domain.ClassifySeverity(kind, *fence),
		Location:    report.Location,
		Description: desc,
	}
}
