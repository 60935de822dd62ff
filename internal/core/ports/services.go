package ports

import (
	"context"
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
)

// SubscriptionID identifies a stream subscription for later cancellation.
type SubscriptionID string

// PositionHandler consumes accepted position reports.
type PositionHandler func(ctx context.Context, report domain.PositionReport) error

// ViolationHandler consumes detected violations.
type ViolationHandler func(ctx context.Context, v domain.Violation) error

// EventStream fans accepted reports and detected violations out to
// in-process subscribers. Delivery is synchronous and best effort: a
// failing handler is logged and isolated, and late subscribers receive
// nothing retroactively.
type EventStream interface {
	SubscribePositions(fn PositionHandler) SubscriptionID
	SubscribeViolations(fn ViolationHandler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	PublishPosition(ctx context.Context, report domain.PositionReport)
	PublishViolation(ctx context.Context, v domain.Violation)
}

// ReportIngestor accepts position reports for evaluation. Feed adapters
// (MQTT, HTTP ingest, synthetic movement) depend on this and nothing else.
type ReportIngestor interface {
	// Ingest validates the report and, if accepted, runs the full
	// evaluation cycle before returning. Rejected reports leave no trace.
	Ingest(ctx context.Context, report domain.PositionReport) error
}

// ReportSource drives an external or synthetic feed into an ingestor.
type ReportSource interface {
	// Start connects the feed and begins delivering reports. It returns
	// once the feed is established, not when it ends.
	Start(ctx context.Context) error
	// Stop halts delivery. Safe to call more than once.
	Stop()
}

// CacheService provides read-through caching for query results.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
