package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gopkg.in/yaml.v3"

	"github.com/khiwniti/geofleet/internal/adapters/http"
	"github.com/khiwniti/geofleet/internal/adapters/memory"
	"github.com/khiwniti/geofleet/internal/adapters/mqtt"
	natsadapter "github.com/khiwniti/geofleet/internal/adapters/nats"
	"github.com/khiwniti/geofleet/internal/adapters/valkey"
	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/events"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/core/usecases"
	"github.com/khiwniti/geofleet/internal/pkg/config"
	"github.com/khiwniti/geofleet/internal/pkg/logging"
	"github.com/khiwniti/geofleet/internal/pkg/telemetry"
	"github.com/khiwniti/geofleet/internal/sim"
)

func main() {
	cfg, err := config.Load("geofleet-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("geofleet-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache. The service runs without it, reads just skip the cache layer.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS. Optional as well: without it events stay on the in-process bus
	// and the WebSocket relay is disabled.
	nc, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		nc = nil
	} else {
		defer nc.Drain()
	}

	// Engine
	registry := memory.NewGeofenceRegistry()
	store := memory.NewPositionStore()
	history := memory.NewHistory(cfg.Engine.HistoryPerVehicle)
	bus := events.NewBus()

	processor := usecases.NewProcessor(registry, store, history, bus,
		func() ports.MembershipTracker { return memory.NewTracker() },
		cfg.Engine.Workers)
	processor.Start()

	fenceSvc := usecases.NewGeofenceService(registry, cacheSvc)
	vehicleSvc := usecases.NewVehicleService(store, history)

	if cfg.Geofences.SeedPath != "" {
		n, err := seedGeofences(ctx, cfg.Geofences.SeedPath, fenceSvc)
		if err != nil {
			log.Fatalf("seed geofences from %s: %v", cfg.Geofences.SeedPath, err)
		}
		slog.Info("geofences seeded", "path", cfg.Geofences.SeedPath, "count", n)
	}

	// Bridge engine events onto NATS subjects for external consumers and
	// the WebSocket relay.
	var bridge *natsadapter.Bridge
	if nc != nil {
		bridge = natsadapter.NewBridge(nc, bus)
	}

	// Position feed
	var source ports.ReportSource
	switch cfg.Engine.Feed {
	case "mqtt":
		source = mqtt.New(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, processor)
	case "synthetic":
		gen := sim.NewGenerator(sim.DefaultParams, cfg.Engine.Synthetic.Seed)
		center := domain.GeoPoint{Lat: cfg.Engine.Synthetic.CenterLat, Lon: cfg.Engine.Synthetic.CenterLon}
		fleet := gen.Fleet(cfg.Engine.Synthetic.Vehicles, center, cfg.Engine.Synthetic.RadiusM)
		interval := time.Duration(cfg.Engine.Synthetic.IntervalMS) * time.Millisecond
		source = sim.NewSource(processor, gen, fleet, interval)
	case "none":
		slog.Info("no position feed configured, HTTP ingest only")
	}
	if source != nil {
		if err := source.Start(ctx); err != nil {
			log.Fatalf("start %s feed: %v", cfg.Engine.Feed, err)
		}
		slog.Info("position feed started", "feed", cfg.Engine.Feed)
	}

	deps := &http.Dependencies{
		Fences:    fenceSvc,
		Vehicles:  vehicleSvc,
		Processor: processor,
		NATS:      nc,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GeoFleet API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete, then stop the feed and
	// drain the engine before the deferred NATS and cache closes run.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if source != nil {
		source.Stop()
	}
	processor.Stop()
	if bridge != nil {
		bridge.Close()
	}

	slog.Info("server stopped")
}

type seedFence struct {
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`
	Center     domain.GeoPoint   `yaml:"center"`
	RadiusM    float64           `yaml:"radius_m"`
	Vertices   []domain.GeoPoint `yaml:"vertices"`
	MaxSpeed   *float64          `yaml:"max_speed"`
	Category   string            `yaml:"category"`
	Authorized bool              `yaml:"authorized"`
	Active     *bool             `yaml:"active"`
}

// seedGeofences registers fences from a YAML file at startup. The first
// invalid entry aborts the load; fence definitions are operator config and
// fail like any other config error.
func seedGeofences(ctx context.Context, path string, fences *usecases.GeofenceService) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file struct {
		Geofences []seedFence `yaml:"geofences"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	created := 0
	for _, s := range file.Geofences {
		fence := domain.Geofence{
			Name:       s.Name,
			Kind:       domain.GeofenceKind(s.Kind),
			Center:     s.Center,
			RadiusM:    s.RadiusM,
			Vertices:   s.Vertices,
			MaxSpeed:   s.MaxSpeed,
			Category:   s.Category,
			Authorized: s.Authorized,
			Active:     true,
		}
		if s.Active != nil {
			fence.Active = *s.Active
		}
		if _, err := fences.Create(ctx, fence); err != nil {
			return created, fmt.Errorf("geofence %q: %w", s.Name, err)
		}
		created++
	}
	return created, nil
}
