package memory_test

import (
	"testing"

	"github.com/khiwniti/geofleet/internal/adapters/memory"
)

func TestTracker_UnknownVehicleIsEmpty(t *testing.T) {
	tr := memory.NewTracker()
	if len(tr.CurrentSet("ghost")) != 0 {
		t.Error("expected empty set for unknown vehicle")
	}
}

func TestTracker_ReplaceAndForget(t *testing.T) {
	tr := memory.NewTracker()

	tr.Replace("truck-1", map[string]struct{}{"depot": {}, "port": {}})
	set := tr.CurrentSet("truck-1")
	if len(set) != 2 {
		t.Fatalf("expected 2 memberships, got %d", len(set))
	}
	if _, ok := set["depot"]; !ok {
		t.Error("expected membership in depot")
	}

	tr.Replace("truck-1", map[string]struct{}{"port": {}})
	if len(tr.CurrentSet("truck-1")) != 1 {
		t.Error("expected replacement to drop depot membership")
	}

	tr.Forget("truck-1")
	if len(tr.CurrentSet("truck-1")) != 0 {
		t.Error("expected no memberships after Forget")
	}
}

func TestTracker_EmptyReplacementReleasesVehicle(t *testing.T) {
	tr := memory.NewTracker()
	tr.Replace("truck-1", map[string]struct{}{"depot": {}})
	tr.Replace("truck-1", map[string]struct{}{})
	if tr.CurrentSet("truck-1") != nil {
		t.Error("expected empty replacement to release the vehicle entry")
	}
}
