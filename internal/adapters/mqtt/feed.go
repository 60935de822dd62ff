// Package mqtt subscribes to the live vehicle feed and pushes reports into
// the processing engine. Malformed or invalid payloads are logged and
// dropped; the broker session auto-reconnects and re-subscribes.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/pkg/metrics"
)

// DefaultTopic matches one position topic per vehicle.
const DefaultTopic = "fleet/vehicle/+/position"

// positionMessage is the wire shape published by trackers and by the
// fleetsim publisher.
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

// Feed implements ports.ReportSource over an MQTT subscription.
type Feed struct {
	client   paho.Client
	ingestor ports.ReportIngestor
	topic    string
	stopOnce sync.Once
}

// New builds a feed for the given broker. The client does not connect until
// Start. An empty topic selects DefaultTopic.
func New(broker, clientID, topic string, ingestor ports.ReportIngestor) *Feed {
	if topic == "" {
		topic = DefaultTopic
	}
	f := &Feed{ingestor: ingestor, topic: topic}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetOnConnectHandler(f.onConnect).
		SetConnectionLostHandler(f.onConnectionLost)
	f.client = paho.NewClient(opts)
	return f
}

// Start connects to the broker. With retry enabled the connect token only
// fails on unusable options, so a broker that is down at boot is a warning,
// not an error; the session lands in the background and onConnect
// subscribes.
func (f *Feed) Start(ctx context.Context) error {
	token := f.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	case <-time.After(5 * time.Second):
		slog.Warn("mqtt broker not reachable yet, retrying in background", "topic", f.topic)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop tears down the subscription and the broker session. Safe to call
// more than once.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		if f.client.IsConnectionOpen() {
			f.client.Unsubscribe(f.topic).WaitTimeout(time.Second)
		}
		f.client.Disconnect(250)
		metrics.FeedConnected.Set(0)
	})
}

func (f *Feed) onConnect(c paho.Client) {
	metrics.FeedConnected.Set(1)
	token := c.Subscribe(f.topic, 1, f.handleMessage)
	if token.Wait() && token.Error() != nil {
		slog.Error("mqtt subscribe failed", "topic", f.topic, "error", token.Error())
		return
	}
	slog.Info("mqtt feed subscribed", "topic", f.topic)
}

func (f *Feed) onConnectionLost(_ paho.Client, err error) {
	metrics.FeedConnected.Set(0)
	slog.Warn("mqtt connection lost", "error", err)
}

func (f *Feed) handleMessage(_ paho.Client, msg paho.Message) {
	var raw positionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		metrics.ReportsRejected.WithLabelValues("malformed").Inc()
		slog.Warn("malformed position payload", "topic", msg.Topic(), "error", err)
		return
	}

	report := raw.report(msg.Topic())
	if err := f.ingestor.Ingest(context.Background(), report); err != nil {
		if errors.Is(err, domain.ErrStopped) {
			return
		}
		slog.Warn("position report rejected", "vehicle_id", report.VehicleID, "error", err)
		return
	}
	metrics.ReportsIngested.WithLabelValues("mqtt").Inc()
}

// report converts the wire message to the domain type. A missing vehicle_id
// falls back to the topic segment; a missing timestamp means "now".
func (m positionMessage) report(topic string) domain.PositionReport {
	ts := time.Now().UTC()
	if m.Timestamp > 0 {
		ts = time.Unix(m.Timestamp, 0).UTC()
	}
	id := m.VehicleID
	if id == "" {
		id = vehicleFromTopic(topic)
	}
	return domain.PositionReport{
		Time:       ts,
		VehicleID:  id,
		DriverID:   m.DriverID,
		Location:   domain.GeoPoint{Lat: m.Latitude, Lon: m.Longitude},
		Altitude:   m.Altitude,
		Speed:      m.Speed,
		Heading:    m.Heading,
		Accuracy:   m.Accuracy,
		Satellites: m.Satellites,
	}
}

// vehicleFromTopic pulls the id out of fleet/vehicle/<id>/position.
func vehicleFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
