// Package sim generates synthetic vehicle movement for demos and load
// exercises. The generator is pure state-step logic; Source drives it on a
// ticker through the same ingestion contract live feeds use, so detection
// never knows whether a report was real.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/pkg/geospatial"
)

// Params bound the random walk per step.
type Params struct {
	SpeedStepKmh   float64 // max speed change, either direction
	HeadingStepDeg float64 // max heading change, either direction
	MaxSpeedKmh    float64
}

// DefaultParams approximate city traffic: gentle acceleration, moderate
// turns.
var DefaultParams = Params{SpeedStepKmh: 8, HeadingStepDeg: 25, MaxSpeedKmh: 90}

// Vehicle is the mutable state of one simulated vehicle.
type Vehicle struct {
	ID       string
	DriverID string
	Pos      domain.GeoPoint
	SpeedKmh float64
	Heading  float64
}

// Generator advances a simulated fleet with a seeded random walk, so a run
// can be replayed exactly.
type Generator struct {
	params Params
	rng    *rand.Rand
}

func NewGenerator(params Params, seed int64) *Generator {
	if params.SpeedStepKmh <= 0 {
		params.SpeedStepKmh = DefaultParams.SpeedStepKmh
	}
	if params.HeadingStepDeg <= 0 {
		params.HeadingStepDeg = DefaultParams.HeadingStepDeg
	}
	if params.MaxSpeedKmh <= 0 {
		params.MaxSpeedKmh = DefaultParams.MaxSpeedKmh
	}
	return &Generator{params: params, rng: rand.New(rand.NewSource(seed))}
}

// Fleet seeds n vehicles scattered uniformly within radiusM of center.
func (g *Generator) Fleet(n int, center domain.GeoPoint, radiusM float64) []*Vehicle {
	out := make([]*Vehicle, n)
	for i := range out {
		lat, lon := geospatial.Destination(center.Lat, center.Lon,
			g.rng.Float64()*radiusM, g.rng.Float64()*360)
		out[i] = &Vehicle{
			ID:       fmt.Sprintf("sim-%03d", i+1),
			DriverID: fmt.Sprintf("driver-%03d", i+1),
			Pos:      domain.GeoPoint{Lat: lat, Lon: lon},
			SpeedKmh: g.rng.Float64() * 40,
			Heading:  g.rng.Float64() * 360,
		}
	}
	return out
}

// Step advances one vehicle by dt: jitter speed and heading inside the
// configured bounds, clamp speed to [0, max], wrap heading to [0, 360),
// then project the position along the new heading. The returned report is
// what a live feed would have delivered.
func (g *Generator) Step(v *Vehicle, dt time.Duration) domain.PositionReport {
	v.SpeedKmh += (g.rng.Float64() - 0.5) * 2 * g.params.SpeedStepKmh
	if v.SpeedKmh < 0 {
		v.SpeedKmh = 0
	}
	if v.SpeedKmh > g.params.MaxSpeedKmh {
		v.SpeedKmh = g.params.MaxSpeedKmh
	}

	v.Heading += (g.rng.Float64()*2 - 1) * g.params.HeadingStepDeg
	v.Heading = math.Mod(v.Heading, 360)
	if v.Heading < 0 {
		v.Heading += 360
	}

	distance := v.SpeedKmh / 3.6 * dt.Seconds()
	v.Pos.Lat, v.Pos.Lon = geospatial.Destination(v.Pos.Lat, v.Pos.Lon, distance, v.Heading)

	return domain.PositionReport{
		Time:       time.Now().UTC(),
		VehicleID:  v.ID,
		DriverID:   v.DriverID,
		Location:   v.Pos,
		Speed:      v.SpeedKmh,
		Heading:    v.Heading,
		Accuracy:   3 + g.rng.Float64()*5,
		Satellites: 7 + g.rng.Intn(6),
	}
}
