package usecases

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/pkg/metrics"
	"github.com/khiwniti/geofleet/internal/pkg/telemetry"
)

const defaultWorkers = 4

// Processor is the position stream engine. It validates incoming reports,
// shards them per vehicle across worker goroutines, runs detection against
// the current fence snapshot, and publishes results on the event stream.
//
// A vehicle always lands on the same shard, so its membership state needs no
// locking and its reports are evaluated in arrival order. The latest-position
// store is the only structure shared across shards.
type Processor struct {
	registry ports.GeofenceRegistry
	store    ports.PositionStore
	history  ports.PositionHistory
	stream   ports.EventStream
	trackers func() ports.MembershipTracker

	shards []chan job
	quit   chan struct{}
	wg     sync.WaitGroup

	running   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

type job struct {
	ctx    context.Context
	report domain.PositionReport
	forget string
	done   chan struct{}
}

// NewProcessor builds a processor with the given number of worker shards.
// trackers is called once per shard to give each worker its own membership
// tracker.
func NewProcessor(
	registry ports.GeofenceRegistry,
	store ports.PositionStore,
	history ports.PositionHistory,
	stream ports.EventStream,
	trackers func() ports.MembershipTracker,
	workers int,
) *Processor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &Processor{
		registry: registry,
		store:    store,
		history:  history,
		stream:   stream,
		trackers: trackers,
		shards:   make([]chan job, workers),
		quit:     make(chan struct{}),
	}
	for i := range p.shards {
		p.shards[i] = make(chan job)
	}
	return p
}

// Start launches the worker shards. Calling it again is a no-op, as is
// calling it after Stop.
func (p *Processor) Start() {
	p.startOnce.Do(func() {
		select {
		case <-p.quit:
			return
		default:
		}
		for i := range p.shards {
			p.wg.Add(1)
			go p.worker(NewDetector(p.trackers()), p.shards[i])
		}
		p.running.Store(true)
	})
}

// Stop rejects further ingests and halts every shard after at most its
// current job. Safe to call more than once and concurrently with Ingest.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.running.Store(false)
		close(p.quit)
		p.wg.Wait()
	})
}

// Running reports whether the processor accepts reports.
func (p *Processor) Running() bool {
	return p.running.Load()
}

// Tracked returns the number of vehicles with a known position.
func (p *Processor) Tracked() int {
	return p.store.Len()
}

// Ingest validates the report and runs the full evaluation cycle on the
// shard owning the vehicle. It returns once the cycle completed, so a nil
// error means the position is stored and all events were delivered.
func (p *Processor) Ingest(ctx context.Context, report domain.PositionReport) error {
	if !p.running.Load() {
		metrics.ReportsRejected.WithLabelValues("stopped").Inc()
		return domain.ErrStopped
	}
	if err := report.Validate(); err != nil {
		metrics.ReportsRejected.WithLabelValues("invalid").Inc()
		return err
	}

	j := job{ctx: ctx, report: report, done: make(chan struct{})}
	return p.dispatch(ctx, shardFor(report.VehicleID, len(p.shards)), j)
}

// Forget drops all evaluation state for the vehicle: memberships, latest
// position, and history. Its next report is treated as first contact, so no
// exit violations fire for fences it was inside.
func (p *Processor) Forget(ctx context.Context, vehicleID string) error {
	if vehicleID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if !p.running.Load() {
		return domain.ErrStopped
	}

	j := job{ctx: ctx, forget: vehicleID, done: make(chan struct{})}
	return p.dispatch(ctx, shardFor(vehicleID, len(p.shards)), j)
}

func (p *Processor) dispatch(ctx context.Context, shard int, j job) error {
	select {
	case p.shards[shard] <- j:
	case <-p.quit:
		metrics.ReportsRejected.WithLabelValues("stopped").Inc()
		return domain.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) worker(det *Detector, jobs chan job) {
	defer p.wg.Done()
	for {
		select {
		case j := <-jobs:
			if j.forget != "" {
				det.Forget(j.forget)
				p.store.Remove(j.forget)
				p.history.Drop(j.forget)
			} else {
				p.process(j.ctx, det, j.report)
			}
			close(j.done)
		case <-p.quit:
			return
		}
	}
}

func (p *Processor) process(ctx context.Context, det *Detector, report domain.PositionReport) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanEvaluateReport,
		trace.WithAttributes(attribute.String("vehicle.id", report.VehicleID)))
	defer span.End()

	start := time.Now()
	snapshot := p.registry.Snapshot()

	p.store.Put(report)
	p.history.Append(report)
	violations := det.Evaluate(report, snapshot)

	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	metrics.TrackedVehicles.Set(float64(p.store.Len()))
	metrics.ActiveFences.Set(float64(len(snapshot)))
	if len(violations) > 0 {
		span.SetAttributes(attribute.Int("violations.count", len(violations)))
	}

	p.stream.PublishPosition(ctx, report)
	for _, v := range violations {
		metrics.ViolationsDetected.WithLabelValues(string(v.Kind), string(v.Severity)).Inc()
		p.stream.PublishViolation(ctx, v)
	}
}

func shardFor(vehicleID string, shards int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(vehicleID))
	return int(h.Sum32() % uint32(shards))
}
