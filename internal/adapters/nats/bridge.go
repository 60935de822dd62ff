// Package natsadapter forwards in-process engine events onto NATS subjects
// so external collaborators (persistence, notification, dashboards) can
// consume them without coupling to this process. Delivery is fire-and-forget
// core NATS; durable streaming is out of scope here.
package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
)

// Subject layout. Wildcard forms are what relays subscribe with.
const (
	SubjectPositionPrefix  = "fleet.positions."
	SubjectViolationPrefix = "fleet.violations."
	SubjectPositionsAll    = "fleet.positions.>"
	SubjectViolationsAll   = "fleet.violations.>"
)

// PositionSubject returns the per-vehicle position subject.
func PositionSubject(vehicleID string) string {
	return SubjectPositionPrefix + vehicleID
}

// ViolationSubject returns the per-kind violation subject.
func ViolationSubject(kind domain.ViolationKind) string {
	return SubjectViolationPrefix + string(kind)
}

// Connect dials NATS with endless reconnects, the same way every consumer
// of this connection expects it.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge subscribes to the in-process event stream and republishes every
// event to NATS. It does not own the connection; the caller closes it.
type Bridge struct {
	pub    publisher
	stream ports.EventStream
	subs   []ports.SubscriptionID
}

// NewBridge wires the bridge into the stream. Events start flowing
// immediately.
func NewBridge(conn *nats.Conn, stream ports.EventStream) *Bridge {
	return newBridge(conn, stream)
}

func newBridge(pub publisher, stream ports.EventStream) *Bridge {
	b := &Bridge{pub: pub, stream: stream}
	b.subs = append(b.subs,
		stream.SubscribePositions(b.forwardPosition),
		stream.SubscribeViolations(b.forwardViolation),
	)
	return b
}

// Close detaches the bridge from the stream. The NATS connection is left
// open for its owner.
func (b *Bridge) Close() {
	for _, id := range b.subs {
		b.stream.Unsubscribe(id)
	}
	b.subs = nil
}

func (b *Bridge) forwardPosition(_ context.Context, report domain.PositionReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	return b.pub.Publish(PositionSubject(report.VehicleID), data)
}

func (b *Bridge) forwardViolation(_ context.Context, v domain.Violation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}
	return b.pub.Publish(ViolationSubject(v.Kind), data)
}
