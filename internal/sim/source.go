package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/pkg/metrics"
)

// Source feeds a simulated fleet into an ingestor on a fixed tick. It
// implements the same ReportSource contract as the MQTT feed, so the two
// are interchangeable at service construction.
type Source struct {
	gen      *Generator
	ingestor ports.ReportIngestor
	fleet    []*Vehicle
	interval time.Duration

	started  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSource creates a source stepping every vehicle in the fleet once per
// interval.
func NewSource(ingestor ports.ReportIngestor, gen *Generator, fleet []*Vehicle, interval time.Duration) *Source {
	if interval <= 0 {
		interval = time.Second
	}
	return &Source{
		gen:      gen,
		ingestor: ingestor,
		fleet:    fleet,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. The loop runs until Stop is called or the
// context is cancelled.
func (s *Source) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	go s.run(ctx)
	return nil
}

// Stop halts the loop and waits for the tick in flight to finish. Safe to
// call more than once.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Source) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, v := range s.fleet {
				report := s.gen.Step(v, s.interval)
				if err := s.ingestor.Ingest(ctx, report); err != nil {
					if errors.Is(err, domain.ErrStopped) {
						return
					}
					slog.Warn("synthetic report rejected", "vehicle_id", v.ID, "error", err)
					continue
				}
				metrics.ReportsIngested.WithLabelValues("synthetic").Inc()
			}
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		}
	}
}
