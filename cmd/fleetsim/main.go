package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/pkg/config"
	"github.com/khiwniti/geofleet/internal/sim"
)

// positionMessage mirrors the wire shape the api's MQTT feed expects.
type positionMessage struct {
	VehicleID  string  `json:"vehicle_id"`
	DriverID   string  `json:"driver_id,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude,omitempty"`
	Speed      float64 `json:"speed"`
	Heading    float64 `json:"heading"`
	Accuracy   float64 `json:"accuracy,omitempty"`
	Satellites int     `json:"satellites,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// fleetsim drives a simulated fleet over a real MQTT broker, for running the
// api with engine.feed=mqtt in development. The engine.synthetic settings
// control fleet size, tick rate, and the area the fleet roams.
func main() {
	cfg, err := config.Load("geofleet-fleetsim")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID("geofleet-fleetsim").
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	gen := sim.NewGenerator(sim.DefaultParams, cfg.Engine.Synthetic.Seed)
	center := domain.GeoPoint{Lat: cfg.Engine.Synthetic.CenterLat, Lon: cfg.Engine.Synthetic.CenterLon}
	fleet := gen.Fleet(cfg.Engine.Synthetic.Vehicles, center, cfg.Engine.Synthetic.RadiusM)
	interval := time.Duration(cfg.Engine.Synthetic.IntervalMS) * time.Millisecond

	log.Printf("connected to %s, %d vehicles, publishing every %s", cfg.MQTT.Broker, len(fleet), interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	published := 0
	for {
		select {
		case <-quit:
			log.Printf("stopping after %d messages", published)
			return
		case <-ticker.C:
			for _, v := range fleet {
				report := gen.Step(v, interval)
				payload, _ := json.Marshal(positionMessage{
					VehicleID:  report.VehicleID,
					DriverID:   report.DriverID,
					Latitude:   report.Location.Lat,
					Longitude:  report.Location.Lon,
					Altitude:   report.Altitude,
					Speed:      report.Speed,
					Heading:    report.Heading,
					Accuracy:   report.Accuracy,
					Satellites: report.Satellites,
					Timestamp:  report.Time.Unix(),
				})

				topic := fmt.Sprintf("fleet/vehicle/%s/position", report.VehicleID)
				client.Publish(topic, 1, false, payload)
				published++
			}
		}
	}
}
