package http

import (
	"github.com/nats-io/nats.go"

	"github.com/khiwniti/geofleet/internal/adapters/valkey"
	"github.com/khiwniti/geofleet/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Fences    *usecases.GeofenceService
	Vehicles  *usecases.VehicleService
	Processor *usecases.Processor
	NATS      *nats.Conn
	Cache     *valkey.Cache
}
