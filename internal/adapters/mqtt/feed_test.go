package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
)

type mockIngestor struct {
	ingestFn func(ctx context.Context, report domain.PositionReport) error
}

func (m *mockIngestor) Ingest(ctx context.Context, report domain.PositionReport) error {
	return m.ingestFn(ctx, report)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMessage) Duplicate() bool   { return false }
func (f *fakeMessage) Qos() byte         { return 1 }
func (f *fakeMessage) Retained() bool    { return false }
func (f *fakeMessage) Topic() string     { return f.topic }
func (f *fakeMessage) MessageID() uint16 { return 0 }
func (f *fakeMessage) Payload() []byte   { return f.payload }
func (f *fakeMessage) Ack()              {}

func TestHandleMessage_ValidPayload(t *testing.T) {
	var got *domain.PositionReport
	feed := &Feed{
		topic: DefaultTopic,
		ingestor: &mockIngestor{ingestFn: func(_ context.Context, r domain.PositionReport) error {
			got = &r
			return nil
		}},
	}

	msg := positionMessage{
		VehicleID: "bus-17",
		DriverID:  "driver-4",
		Latitude:  43.2627,
		Longitude: -2.9253,
		Speed:     38.5,
		Heading:   92,
		Timestamp: 1756116000,
	}
	payload, _ := json.Marshal(msg)
	feed.handleMessage(nil, &fakeMessage{topic: "fleet/vehicle/bus-17/position", payload: payload})

	if got == nil {
		t.Fatal("expected the report to reach the ingestor")
	}
	if got.VehicleID != "bus-17" || got.DriverID != "driver-4" {
		t.Errorf("identity fields wrong: %+v", got)
	}
	if got.Location.Lat != 43.2627 || got.Location.Lon != -2.9253 {
		t.Errorf("location wrong: %+v", got.Location)
	}
	if got.Speed != 38.5 || got.Heading != 92 {
		t.Errorf("motion fields wrong: %+v", got)
	}
	if !got.Time.Equal(time.Unix(1756116000, 0).UTC()) {
		t.Errorf("timestamp wrong: %v", got.Time)
	}
}

func TestHandleMessage_MalformedPayloadDropped(t *testing.T) {
	calls := 0
	feed := &Feed{
		topic: DefaultTopic,
		ingestor: &mockIngestor{ingestFn: func(context.Context, domain.PositionReport) error {
			calls++
			return nil
		}},
	}

	feed.handleMessage(nil, &fakeMessage{topic: "fleet/vehicle/bus-17/position", payload: []byte("{not json")})

	if calls != 0 {
		t.Fatalf("malformed payload reached the ingestor %d times", calls)
	}
}

func TestHandleMessage_VehicleIDFromTopic(t *testing.T) {
	var got domain.PositionReport
	feed := &Feed{
		topic: DefaultTopic,
		ingestor: &mockIngestor{ingestFn: func(_ context.Context, r domain.PositionReport) error {
			got = r
			return nil
		}},
	}

	payload, _ := json.Marshal(positionMessage{Latitude: 43.3, Longitude: -2.9, Timestamp: 1756116000})
	feed.handleMessage(nil, &fakeMessage{topic: "fleet/vehicle/tram-2/position", payload: payload})

	if got.VehicleID != "tram-2" {
		t.Fatalf("expected vehicle id from topic, got %q", got.VehicleID)
	}
}

func TestHandleMessage_MissingTimestampDefaultsToNow(t *testing.T) {
	var got domain.PositionReport
	feed := &Feed{
		topic: DefaultTopic,
		ingestor: &mockIngestor{ingestFn: func(_ context.Context, r domain.PositionReport) error {
			got = r
			return nil
		}},
	}

	before := time.Now().Add(-time.Second)
	payload, _ := json.Marshal(positionMessage{VehicleID: "bus-1", Latitude: 43.3, Longitude: -2.9})
	feed.handleMessage(nil, &fakeMessage{topic: "fleet/vehicle/bus-1/position", payload: payload})

	if got.Time.Before(before) || got.Time.After(time.Now().Add(time.Second)) {
		t.Fatalf("expected a current timestamp, got %v", got.Time)
	}
}

func TestHandleMessage_IngestErrorsDoNotPanic(t *testing.T) {
	for _, err := range []error{domain.ErrStopped, errors.New("queue full")} {
		feed := &Feed{
			topic: DefaultTopic,
			ingestor: &mockIngestor{ingestFn: func(context.Context, domain.PositionReport) error {
				return err
			}},
		}
		payload, _ := json.Marshal(positionMessage{VehicleID: "bus-1", Latitude: 43.3, Longitude: -2.9, Timestamp: 1756116000})
		feed.handleMessage(nil, &fakeMessage{topic: "fleet/vehicle/bus-1/position", payload: payload})
	}
}

func TestVehicleFromTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"fleet/vehicle/bus-17/position", "bus-17"},
		{"fleet/vehicle/a/position", "a"},
		{"noslashes", ""},
	}
	for _, tc := range cases {
		if got := vehicleFromTopic(tc.topic); got != tc.want {
			t.Errorf("vehicleFromTopic(%q) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}
