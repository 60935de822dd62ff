package memory_test

import (
	"testing"
	"time"

	"github.com/khiwniti/geofleet/internal/adapters/memory"
)

func TestHistory_WindowOldestFirst(t *testing.T) {
	h := memory.NewHistory(10)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		h.Append(report("truck-1", t0.Add(time.Duration(i)*time.Second)))
	}

	got := h.Window("truck-1", t0)
	if len(got) != 5 {
		t.Fatalf("expected 5 reports, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Time.Before(got[i-1].Time) {
			t.Fatal("expected reports ordered oldest first")
		}
	}
}

func TestHistory_WindowFiltersBySince(t *testing.T) {
	h := memory.NewHistory(10)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		h.Append(report("truck-1", t0.Add(time.Duration(i)*time.Minute)))
	}

	got := h.Window("truck-1", t0.Add(3*time.Minute))
	if len(got) != 3 {
		t.Fatalf("expected 3 reports at or after the cutoff, got %d", len(got))
	}
	if got[0].Time.Before(t0.Add(3 * time.Minute)) {
		t.Errorf("expected first report at the cutoff, got %v", got[0].Time)
	}
}

func TestHistory_RingEvictsOldest(t *testing.T) {
	h := memory.NewHistory(3)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		h.Append(report("truck-1", t0.Add(time.Duration(i)*time.Second)))
	}

	got := h.Window("truck-1", time.Time{})
	if len(got) != 3 {
		t.Fatalf("expected ring capped at 3 reports, got %d", len(got))
	}
	if !got[0].Time.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("expected the two oldest reports evicted, first is %v", got[0].Time)
	}
}

func TestHistory_DropAndUnknownVehicle(t *testing.T) {
	h := memory.NewHistory(3)
	if got := h.Window("ghost", time.Time{}); got != nil {
		t.Errorf("expected nil window for unknown vehicle, got %d reports", len(got))
	}

	h.Append(report("truck-1", time.Now()))
	h.Drop("truck-1")
	if got := h.Window("truck-1", time.Time{}); len(got) != 0 {
		t.Error("expected no reports after Drop")
	}
}
