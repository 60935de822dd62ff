package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Geofences GeofencesConfig `mapstructure:"geofences"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// EngineConfig tunes the position processing engine. Feed selects where
// reports come from: "mqtt" for a live broker, "synthetic" for the built-in
// fleet simulator.
type EngineConfig struct {
	Workers           int             `mapstructure:"workers"`
	HistoryPerVehicle int             `mapstructure:"history_per_vehicle"`
	Feed              string          `mapstructure:"feed"`
	Synthetic         SyntheticConfig `mapstructure:"synthetic"`
}

type SyntheticConfig struct {
	Vehicles   int     `mapstructure:"vehicles"`
	IntervalMS int     `mapstructure:"interval_ms"`
	CenterLat  float64 `mapstructure:"center_lat"`
	CenterLon  float64 `mapstructure:"center_lon"`
	RadiusM    float64 `mapstructure:"radius_m"`
	Seed       int64   `mapstructure:"seed"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GeofencesConfig points at an optional YAML file of fences to register at
// startup. An empty path means start with no fences.
type GeofencesConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.history_per_vehicle", 360)
	v.SetDefault("engine.feed", "synthetic")
	v.SetDefault("engine.synthetic.vehicles", 25)
	v.SetDefault("engine.synthetic.interval_ms", 2000)
	v.SetDefault("engine.synthetic.center_lat", 43.2630)
	v.SetDefault("engine.synthetic.center_lon", -2.9350)
	v.SetDefault("engine.synthetic.radius_m", 4000)
	v.SetDefault("engine.synthetic.seed", 0)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", service)
	v.SetDefault("mqtt.topic", "fleet/vehicle/+/position")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("geofences.seed_path", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOFLEET_ENGINE_WORKERS → engine.workers
	v.SetEnvPrefix("GEOFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Engine.Workers <= 0 {
		errs = append(errs, "engine.workers must be positive")
	}
	if c.Engine.HistoryPerVehicle <= 0 {
		errs = append(errs, "engine.history_per_vehicle must be positive")
	}
	switch c.Engine.Feed {
	case "mqtt":
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when engine.feed is mqtt")
		}
		if c.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required when engine.feed is mqtt")
		}
	case "synthetic":
		if c.Engine.Synthetic.Vehicles <= 0 {
			errs = append(errs, "engine.synthetic.vehicles must be positive")
		}
		if c.Engine.Synthetic.IntervalMS <= 0 {
			errs = append(errs, "engine.synthetic.interval_ms must be positive")
		}
		if c.Engine.Synthetic.RadiusM <= 0 {
			errs = append(errs, "engine.synthetic.radius_m must be positive")
		}
	case "none":
		// HTTP-only ingest, nothing to validate.
	default:
		errs = append(errs, fmt.Sprintf("engine.feed must be mqtt, synthetic or none, got %q", c.Engine.Feed))
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
