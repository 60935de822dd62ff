// Package events implements the in-process fan-out connecting the position
// processor to its consumers: the NATS bridge, websocket feeds, and tests.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/pkg/metrics"
)

// Bus is a synchronous publish/subscribe hub. Handlers run on the
// publisher's goroutine; a failing or panicking handler is logged, counted,
// and skipped without affecting other handlers or the publisher. Publishing
// with no subscribers is a no-op.
type Bus struct {
	mu         sync.RWMutex
	positions  map[ports.SubscriptionID]ports.PositionHandler
	violations map[ports.SubscriptionID]ports.ViolationHandler
}

func NewBus() *Bus {
	return &Bus{
		positions:  make(map[ports.SubscriptionID]ports.PositionHandler),
		violations: make(map[ports.SubscriptionID]ports.ViolationHandler),
	}
}

func (b *Bus) SubscribePositions(fn ports.PositionHandler) ports.SubscriptionID {
	id := ports.SubscriptionID(uuid.NewString())
	b.mu.Lock()
	b.positions[id] = fn
	b.mu.Unlock()
	return id
}

func (b *Bus) SubscribeViolations(fn ports.ViolationHandler) ports.SubscriptionID {
	id := ports.SubscriptionID(uuid.NewString())
	b.mu.Lock()
	b.violations[id] = fn
	b.mu.Unlock()
	return id
}

// Unsubscribe removes the subscription. Unknown ids are ignored, so it is
// safe to call from a handler or after shutdown.
func (b *Bus) Unsubscribe(id ports.SubscriptionID) {
	b.mu.Lock()
	delete(b.positions, id)
	delete(b.violations, id)
	b.mu.Unlock()
}

func (b *Bus) PublishPosition(ctx context.Context, report domain.PositionReport) {
	b.mu.RLock()
	handlers := make([]ports.PositionHandler, 0, len(b.positions))
	for _, fn := range b.positions {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		deliver("positions", func() error { return fn(ctx, report) })
	}
}

func (b *Bus) PublishViolation(ctx context.Context, v domain.Violation) {
	b.mu.RLock()
	handlers := make([]ports.ViolationHandler, 0, len(b.violations))
	for _, fn := range b.violations {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		deliver("violations", func() error { return fn(ctx, v) })
	}
}

// deliver runs one handler, containing its error or panic. Handlers are
// copied out before invocation so one may unsubscribe itself without
// deadlocking.
func deliver(channel string, call func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.SubscriberErrors.WithLabelValues(channel).Inc()
			slog.Error("event handler panicked", "channel", channel, "panic", rec)
		}
	}()

	if err := call(); err != nil {
		metrics.SubscriberErrors.WithLabelValues(channel).Inc()
		slog.Warn("event handler failed", "channel", channel, "error", err)
	}
}
