package memory

import (
	"sync"
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
)

// History retains a fixed number of recent reports per vehicle in a ring
// buffer. Old readings fall off silently; durable history is an external
// consumer's job, fed through the event bridge.
type History struct {
	mu       sync.RWMutex
	capacity int
	rings    map[string]*ring
}

type ring struct {
	buf   []domain.PositionReport
	next  int
	count int
}

// NewHistory creates a history store keeping up to perVehicle reports for
// each vehicle.
func NewHistory(perVehicle int) *History {
	if perVehicle <= 0 {
		perVehicle = 1
	}
	return &History{capacity: perVehicle, rings: make(map[string]*ring)}
}

func (h *History) Append(report domain.PositionReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rg := h.rings[report.VehicleID]
	if rg == nil {
		rg = &ring{buf: make([]domain.PositionReport, h.capacity)}
		h.rings[report.VehicleID] = rg
	}
	rg.buf[rg.next] = report
	rg.next = (rg.next + 1) % len(rg.buf)
	if rg.count < len(rg.buf) {
		rg.count++
	}
}

// Window returns the retained reports for the vehicle not older than since,
// oldest first.
func (h *History) Window(vehicleID string, since time.Time) []domain.PositionReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rg := h.rings[vehicleID]
	if rg == nil {
		return nil
	}
	out := make([]domain.PositionReport, 0, rg.count)
	start := rg.next - rg.count
	if start < 0 {
		start += len(rg.buf)
	}
	for i := 0; i < rg.count; i++ {
		r := rg.buf[(start+i)%len(rg.buf)]
		if !r.Time.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

func (h *History) Drop(vehicleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rings, vehicleID)
}
