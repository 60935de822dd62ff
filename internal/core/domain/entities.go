package domain

import (
	"fmt"
	"time"

	"github.com/khiwniti/geofleet/internal/pkg/geospatial"
)

// GeofenceKind discriminates the two supported fence shapes.
type GeofenceKind string

const (
	GeofenceCircle  GeofenceKind = "circle"
	GeofencePolygon GeofenceKind = "polygon"
)

// ViolationKind classifies a detected rule breach.
type ViolationKind string

const (
	ViolationEntry        ViolationKind = "entry"
	ViolationExit         ViolationKind = "exit"
	ViolationSpeedLimit   ViolationKind = "speed_limit"
	ViolationUnauthorized ViolationKind = "unauthorized_area"
)

// Severity ranks how urgently a violation should be handled downstream.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// CategoryRestricted is the fence category whose exits are escalated.
const CategoryRestricted = "restricted"

// PositionReport is a single real-time location reading for a vehicle.
type PositionReport struct {
	Time       time.Time `json:"time"`
	VehicleID  string    `json:"vehicle_id"`
	DriverID   string    `json:"driver_id,omitempty"`
	Location   GeoPoint  `json:"location"`
	Altitude   float64   `json:"altitude,omitempty"` // meters
	Speed      float64   `json:"speed"`              // km/h
	Heading    float64   `json:"heading"`            // degrees, [0, 360)
	Accuracy   float64   `json:"accuracy,omitempty"` // meters
	Satellites int       `json:"satellites,omitempty"`
}

// Validate checks the report against the ranges the detector relies on.
// A failing report must not reach membership state or subscribers.
func (r PositionReport) Validate() error {
	switch {
	case r.VehicleID == "":
		return fmt.Errorf("%w: vehicle id is required", ErrInvalidPosition)
	case !r.Location.Valid():
		return fmt.Errorf("%w: coordinates (%v, %v) out of range", ErrInvalidPosition, r.Location.Lat, r.Location.Lon)
	case r.Speed < 0:
		return fmt.Errorf("%w: negative speed %v", ErrInvalidPosition, r.Speed)
	case r.Heading < 0 || r.Heading >= 360:
		return fmt.Errorf("%w: heading %v outside [0, 360)", ErrInvalidPosition, r.Heading)
	}
	return nil
}

// Geofence is a named geographic zone that vehicle positions are evaluated
// against. A circle is its center plus a radius; a polygon is a vertex ring
// that is treated as implicitly closed.
type Geofence struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Kind       GeofenceKind `json:"kind"`
	Center     GeoPoint     `json:"center"`
	RadiusM    float64      `json:"radius_m,omitempty"`
	Vertices   []GeoPoint   `json:"vertices,omitempty"`
	MaxSpeed   *float64     `json:"max_speed,omitempty"` // km/h, nil means no limit
	Category   string       `json:"category,omitempty"`
	Authorized bool         `json:"authorized"`
	Active     bool         `json:"active"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Validate checks the shape invariants. The registry rejects fences that
// fail, and the detector skips any that slip through a snapshot.
func (g Geofence) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGeofence)
	}
	if g.MaxSpeed != nil && *g.MaxSpeed <= 0 {
		return fmt.Errorf("%w: max speed must be positive, got %v", ErrInvalidGeofence, *g.MaxSpeed)
	}
	switch g.Kind {
	case GeofenceCircle:
		if !g.Center.Valid() {
			return fmt.Errorf("%w: center (%v, %v) out of range", ErrInvalidGeofence, g.Center.Lat, g.Center.Lon)
		}
		if g.RadiusM <= 0 {
			return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidGeofence, g.RadiusM)
		}
	case GeofencePolygon:
		if len(g.Vertices) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidGeofence, len(g.Vertices))
		}
		for i, v := range g.Vertices {
			if !v.Valid() {
				return fmt.Errorf("%w: vertex %d (%v, %v) out of range", ErrInvalidGeofence, i, v.Lat, v.Lon)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidGeofence, g.Kind)
	}
	return nil
}

// Contains reports whether the point lies inside the fence. Circle
// containment includes the boundary: a point exactly at radius distance
// counts as inside.
func (g Geofence) Contains(p GeoPoint) bool {
	switch g.Kind {
	case GeofenceCircle:
		return geospatial.Haversine(g.Center.Lat, g.Center.Lon, p.Lat, p.Lon) <= g.RadiusM
	case GeofencePolygon:
		return geospatial.PointInPolygon(p.Lat, p.Lon, g.Vertices)
	default:
		return false
	}
}

// Violation is a detected geofence rule breach at a single position reading.
type Violation struct {
	Time        time.Time     `json:"time"`
	VehicleID   string        `json:"vehicle_id"`
	DriverID    string        `json:"driver_id,omitempty"`
	FenceID     string        `json:"fence_id"`
	FenceName   string        `json:"fence_name"`
	Kind        ViolationKind `json:"kind"`
	Severity    Severity      `json:"severity"`
	Location    GeoPoint      `json:"location"`
	Description string        `json:"description"`
}

// ClassifySeverity maps a violation kind and the fence it occurred against
// to a fixed severity. The rules are deterministic so downstream consumers
// can rely on identical classification across restarts.
func ClassifySeverity(kind ViolationKind, fence Geofence) Severity {
	switch kind {
	case ViolationUnauthorized:
		return SeverityCritical
	case ViolationSpeedLimit:
		return SeverityHigh
	case ViolationExit:
		if fence.Category == CategoryRestricted {
			return SeverityMedium
		}
		return SeverityLow
	case ViolationEntry:
		if fence.Authorized {
			return SeverityLow
		}
		return SeverityHigh
	default:
		return SeverityLow
	}
}
