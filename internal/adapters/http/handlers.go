package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/pkg/metrics"
)

var validate = validator.New()

// geofenceRequest is the admin payload for creating or replacing a fence.
// Shape-level checks run through validator tags; geometric invariants are
// enforced by the domain on write.
type geofenceRequest struct {
	Name       string            `json:"name" validate:"required,max=200"`
	Kind       string            `json:"kind" validate:"required,oneof=circle polygon"`
	Center     *domain.GeoPoint  `json:"center,omitempty"`
	RadiusM    float64           `json:"radius_m,omitempty" validate:"gte=0"`
	Vertices   []domain.GeoPoint `json:"vertices,omitempty"`
	MaxSpeed   *float64          `json:"max_speed,omitempty" validate:"omitempty,gt=0"`
	Category   string            `json:"category,omitempty"`
	Authorized bool              `json:"authorized"`
	Active     *bool             `json:"active,omitempty"` // omitted means active
}

func (r geofenceRequest) fence() domain.Geofence {
	f := domain.Geofence{
		Name:       r.Name,
		Kind:       domain.GeofenceKind(r.Kind),
		RadiusM:    r.RadiusM,
		Vertices:   r.Vertices,
		MaxSpeed:   r.MaxSpeed,
		Category:   r.Category,
		Authorized: r.Authorized,
		Active:     true,
	}
	if r.Center != nil {
		f.Center = *r.Center
	}
	if r.Active != nil {
		f.Active = *r.Active
	}
	return f
}

// positionRequest is the HTTP ingest payload, mirroring the MQTT wire shape.
type positionRequest struct {
	VehicleID  string  `json:"vehicle_id" validate:"required"`
	DriverID   string  `json:"driver_id,omitempty"`
	Latitude   float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Altitude   float64 `json:"altitude,omitempty"`
	Speed      float64 `json:"speed" validate:"gte=0"`
	Heading    float64 `json:"heading" validate:"gte=0,lt=360"`
	Accuracy   float64 `json:"accuracy,omitempty"`
	Satellites int     `json:"satellites,omitempty"`
	Timestamp  int64   `json:"timestamp,omitempty"`
}

func (r positionRequest) report() domain.PositionReport {
	ts := time.Now().UTC()
	if r.Timestamp > 0 {
		ts = time.Unix(r.Timestamp, 0).UTC()
	}
	return domain.PositionReport{
		Time:       ts,
		VehicleID:  r.VehicleID,
		DriverID:   r.DriverID,
		Location:   domain.GeoPoint{Lat: r.Latitude, Lon: r.Longitude},
		Altitude:   r.Altitude,
		Speed:      r.Speed,
		Heading:    r.Heading,
		Accuracy:   r.Accuracy,
		Satellites: r.Satellites,
	}
}

// CreateGeofenceHandler registers a new fence and returns it with its
// assigned id and timestamps.
func CreateGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geofenceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return errUnprocessable(c, "invalid_geofence", err.Error())
		}

		created, err := deps.Fences.Create(c.Context(), req.fence())
		if err != nil {
			if errors.Is(err, domain.ErrInvalidGeofence) {
				return errUnprocessable(c, "invalid_geofence", err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(created)
	}
}

// ListGeofencesHandler returns fences, active only unless
// include_inactive=true.
func ListGeofencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		includeInactive := c.QueryBool("include_inactive", false)
		fences, err := deps.Fences.List(c.Context(), includeInactive)
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset, limit := pageParams(c, 50, 200)
		page, pg := paginate(fences, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetGeofenceHandler returns a single fence by id.
func GetGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fence, err := deps.Fences.Get(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, domain.ErrFenceNotFound) {
				return errNotFound(c, "geofence not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(fence)
	}
}

// UpdateGeofenceHandler replaces a fence definition, keeping its identity
// and creation time.
func UpdateGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geofenceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return errUnprocessable(c, "invalid_geofence", err.Error())
		}

		fence := req.fence()
		fence.ID = c.Params("id")
		updated, err := deps.Fences.Update(c.Context(), fence)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrFenceNotFound):
				return errNotFound(c, "geofence not found")
			case errors.Is(err, domain.ErrInvalidGeofence):
				return errUnprocessable(c, "invalid_geofence", err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(updated)
	}
}

// DeleteGeofenceHandler removes a fence. Vehicles inside it simply stop
// being evaluated against it; no exit events are emitted.
func DeleteGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Fences.Delete(c.Context(), c.Params("id")); err != nil {
			if errors.Is(err, domain.ErrFenceNotFound) {
				return errNotFound(c, "geofence not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// ListVehiclesHandler returns the latest known position of every tracked
// vehicle.
func ListVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vehicles := deps.Vehicles.All()

		offset, limit := pageParams(c, 100, 500)
		page, pg := paginate(vehicles, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NearVehiclesHandler returns vehicles within a radius of a point, closest
// first.
func NearVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 20)

		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat or lon out of range")
		}
		if radius <= 0 || radius > 100000 {
			return errBadRequest(c, "radius must be between 1 and 100000 meters")
		}

		return c.JSON(deps.Vehicles.Near(lat, lon, radius, limit))
	}
}

// GetVehiclePositionHandler returns the latest position of one vehicle.
func GetVehiclePositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := deps.Vehicles.CurrentPosition(c.Params("id"))
		if err != nil {
			return errNotFound(c, "vehicle not tracked")
		}
		return c.JSON(report)
	}
}

// VehicleHistoryHandler returns a vehicle's recent positions, oldest first.
// The window query accepts Go duration syntax, e.g. window=15m.
func VehicleHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		window := time.Duration(0)
		if raw := c.Query("window"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil || parsed <= 0 {
				return errBadRequest(c, "window must be a positive duration like 15m")
			}
			window = parsed
		}

		history, err := deps.Vehicles.History(c.Params("id"), window)
		if err != nil {
			return errNotFound(c, "vehicle not tracked")
		}
		return c.JSON(history)
	}
}

// ForgetVehicleHandler evicts all tracked state for a vehicle: latest
// position, history, and fence memberships. The next report starts clean.
func ForgetVehicleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Processor.Forget(c.Context(), c.Params("id")); err != nil {
			if errors.Is(err, domain.ErrStopped) {
				return errUnavailable(c, "position processor is stopped")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// IngestPositionHandler accepts one position report over HTTP, for trackers
// that cannot speak MQTT. The report runs the full evaluation cycle before
// the response is written.
func IngestPositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return errUnprocessable(c, "invalid_position", err.Error())
		}

		if err := deps.Processor.Ingest(c.Context(), req.report()); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidPosition):
				return errUnprocessable(c, "invalid_position", err.Error())
			case errors.Is(err, domain.ErrStopped):
				return errUnavailable(c, "position processor is stopped")
			}
			return errInternal(c, err.Error())
		}

		metrics.ReportsIngested.WithLabelValues("http").Inc()
		return c.Status(202).JSON(fiber.Map{"status": "accepted"})
	}
}
