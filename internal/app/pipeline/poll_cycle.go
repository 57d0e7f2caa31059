package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// ErrCycleInProgress is returned when RunCycle is entered while another
// cycle is still running.
var ErrCycleInProgress = errors.New("poll cycle already in progress")

// CycleReport summarises one poll cycle.
type CycleReport struct {
	Started     time.Time
	Duration    time.Duration
	Connected   bool
	ConnectErr  error
	Published   int
	Unavailable int
}

// PollEngine reads every registered binding once per cycle and forwards the
// outcome to the publish sink. Exactly one cycle runs at a time.
type PollEngine struct {
	conn ports.Connection
	reg  *domain.Registry
	sink ports.PublishSink
	obs  ports.Observability
	now  func() time.Time

	running atomic.Bool
}

func NewPollEngine(conn ports.Connection, reg *domain.Registry, sink ports.PublishSink, obs ports.Observability) *PollEngine {
	if obs == nil {
		obs = nopObs{}
	}
	return &PollEngine{conn: conn, reg: reg, sink: sink, obs: obs, now: time.Now}
}

// RunCycle performs one connect-read-publish pass over the registry.
// Per-point failures never abort the cycle; they become unavailability.
func (e *PollEngine) RunCycle(ctx context.Context) (CycleReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer e.running.Store(false)

	rep := CycleReport{Started: e.now()}
	defer func() {
		rep.Duration = e.now().Sub(rep.Started)
		e.obs.IncCounter(ports.MetricCycles, 1)
		e.obs.ObserveLatency(ports.MetricCycleLatency, rep.Duration.Seconds())
	}()

	if err := e.conn.EnsureConnected(ctx); err != nil {
		rep.ConnectErr = err
		for b := range e.reg.Bindings() {
			e.markUnavailable(b, &rep)
		}
		e.obs.LogError("poll_cycle_disconnected", err, ports.Field{Key: "points", Value: rep.Unavailable})
		return rep, nil
	}
	rep.Connected = true

	for b := range e.reg.Bindings() {
		raw, err := e.conn.ReadScalar(ctx, b.Identifier)
		if err != nil {
			e.obs.LogError("point_read_failed", err, ports.Field{Key: "identifier", Value: b.Identifier})
			e.markUnavailable(b, &rep)
			continue
		}
		v, err := domain.Decode(b.Kind, b.Identifier, raw)
		if err != nil {
			e.obs.LogError("point_decode_failed", err,
				ports.Field{Key: "identifier", Value: b.Identifier},
				ports.Field{Key: "kind", Value: b.Kind.String()})
			e.markUnavailable(b, &rep)
			continue
		}
		e.sink.Publish(b.Slot, v)
		b.RecordGood(v, e.now())
		rep.Published++
		e.obs.IncCounter(ports.MetricPointsPublished, 1)
	}
	return rep, nil
}

func (e *PollEngine) markUnavailable(b *domain.Binding, rep *CycleReport) {
	e.sink.MarkUnavailable(b.Slot)
	b.RecordUnavailable(e.now())
	rep.Unavailable++
	e.obs.IncCounter(ports.MetricPointsUnavailable, 1)
}

// Run drives cycles at interval until ctx is cancelled. A tick that fires
// while a cycle is still running is dropped, not queued.
func (e *PollEngine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.runOnce(ctx)
			// The ticker channel buffers one tick; if it filled during the
			// cycle, that tick overlapped and is discarded.
			select {
			case <-ticker.C:
				e.obs.IncCounter(ports.MetricCyclesSkipped, 1)
			default:
			}
		}
	}
}

func (e *PollEngine) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := e.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			e.obs.IncCounter(ports.MetricCyclesSkipped, 1)
			return
		}
		e.obs.LogError("poll_cycle_failed", err)
	}
}

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}
