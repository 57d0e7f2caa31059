package opcbridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/opcbridge/internal/adapters/observability"
	"github.com/ghalamif/opcbridge/internal/adapters/opcua"
	"github.com/ghalamif/opcbridge/internal/adapters/queue"
	"github.com/ghalamif/opcbridge/internal/adapters/sink"
	"github.com/ghalamif/opcbridge/internal/adapters/statusapi"
	"github.com/ghalamif/opcbridge/internal/adapters/wal"
	"github.com/ghalamif/opcbridge/internal/app/connection"
	"github.com/ghalamif/opcbridge/internal/app/pipeline"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// BridgeOption customizes the dependencies used by Bridge.
type BridgeOption func(*bridgeOverrides)

type bridgeOverrides struct {
	factory       ports.ClientFactory
	batchSink     ports.BatchSink
	wal           ports.WAL
	queue         ports.ObservationQueue
	observability ports.Observability
	logger        *zap.Logger
	promRegistry  *prometheus.Registry
	publishSinks  []ports.PublishSink
	noPersistence bool
	noStatus      bool
}

// WithClientFactory replaces the gopcua client, e.g. with a simulator.
func WithClientFactory(f ClientFactory) BridgeOption {
	return func(o *bridgeOverrides) {
		o.factory = f
	}
}

// WithBatchSink injects a custom batch sink so observations can be sent to any database or API.
func WithBatchSink(s BatchSink) BridgeOption {
	return func(o *bridgeOverrides) {
		o.batchSink = s
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) BridgeOption {
	return func(o *bridgeOverrides) {
		o.wal = w
	}
}

// WithQueue injects a custom queue implementation.
func WithQueue(q ObservationQueue) BridgeOption {
	return func(o *bridgeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom metrics and logging backend.
func WithObservability(obs Observability) BridgeOption {
	return func(o *bridgeOverrides) {
		o.observability = obs
	}
}

// WithLogger sets the zap logger used by the default observability backend
// and the status server.
func WithLogger(l *zap.Logger) BridgeOption {
	return func(o *bridgeOverrides) {
		o.logger = l
	}
}

// WithPrometheusRegistry registers metrics on reg instead of a private registry.
func WithPrometheusRegistry(reg *prometheus.Registry) BridgeOption {
	return func(o *bridgeOverrides) {
		o.promRegistry = reg
	}
}

// WithPublishSink adds a sink that sees every publish and unavailability
// marker as it happens.
func WithPublishSink(s PublishSink) BridgeOption {
	return func(o *bridgeOverrides) {
		o.publishSinks = append(o.publishSinks, s)
	}
}

// WithoutPersistence disables the WAL, queue and batch sink.
func WithoutPersistence() BridgeOption {
	return func(o *bridgeOverrides) {
		o.noPersistence = true
	}
}

// WithoutStatusServer disables the HTTP status server.
func WithoutStatusServer() BridgeOption {
	return func(o *bridgeOverrides) {
		o.noStatus = true
	}
}

// Bridge wires the connection manager, registry and poll engine to the
// publish sinks and the WAL→queue→batch sink pipeline.
type Bridge struct {
	cfg      *Config
	policy   ports.Policy
	logger   *zap.Logger
	obs      ports.Observability
	prom     *prometheus.Registry
	registry *Registry
	conn     *connection.Manager
	engine   *pipeline.PollEngine
	sink     sink.Fanout

	publisher *pipeline.BufferedPublisher
	wal       ports.WAL
	ownsWAL   bool
	queue     ports.ObservationQueue
	batchSink ports.BatchSink
	db        *sql.DB
	status    *statusapi.Server

	started      bool
	pollCancel   context.CancelFunc
	pollDone     chan struct{}
	ingestCancel context.CancelFunc
	ingestDone   chan struct{}
	gaugeStopCh  chan struct{}
}

// NewBridge builds the registry from cfg and bootstraps the default adapters
// (gopcua client, point gauges, file WAL, in-memory queue, Timescale sink,
// Prometheus observability, gin status server). BridgeOption values override
// any of them.
func NewBridge(cfg *Config, opts ...BridgeOption) (*Bridge, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides bridgeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	reg, err := BuildRegistry(cfg.Data)
	if err != nil {
		return nil, err
	}

	logger := overrides.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prom := overrides.promRegistry
	if prom == nil {
		prom = prometheus.NewRegistry()
	}
	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(prom, logger)
	}

	b := &Bridge{
		cfg:      cfg,
		policy:   cfg.Policy,
		logger:   logger,
		obs:      obs,
		prom:     prom,
		registry: reg,
	}

	b.sink = append(b.sink, sink.NewPointGauges(prom))
	b.sink = append(b.sink, overrides.publishSinks...)

	if !overrides.noPersistence {
		if err := b.setupPersistence(&overrides); err != nil {
			b.closePersistence()
			return nil, err
		}
	}

	for binding := range reg.Bindings() {
		if err := b.sink.DeclareSlot(binding.Slot); err != nil {
			b.closePersistence()
			return nil, fmt.Errorf("declare slot %s: %w", binding.Slot.Name, err)
		}
	}

	factory := overrides.factory
	if factory == nil {
		factory = opcua.NewFactory(cfg.Communications)
	}
	b.conn, err = connection.NewManager(connection.Config{
		Endpoint: cfg.Communications.URL,
		Cooldown: cfg.Poll.ReconnectCooldown,
	}, factory, connection.WithObservability(obs))
	if err != nil {
		b.closePersistence()
		return nil, err
	}

	b.engine = pipeline.NewPollEngine(b.conn, reg, b.sink, obs)

	if !overrides.noStatus {
		b.status = statusapi.NewServer(cfg.Metrics.Addr, reg, b.conn, prom, logger)
	}
	return b, nil
}

func (b *Bridge) setupPersistence(o *bridgeOverrides) error {
	b.batchSink = o.batchSink
	if b.batchSink == nil {
		if b.cfg.Timescale.ConnString == "" {
			return nil
		}
		db, err := sql.Open("postgres", b.cfg.Timescale.ConnString)
		if err != nil {
			return err
		}
		b.db = db
		b.batchSink = sink.NewTimescaleSink(db, b.cfg.Timescale.Table)
	}

	if o.wal != nil {
		b.wal = o.wal
	} else {
		w, err := wal.NewFileWAL(b.cfg.WAL.Dir)
		if err != nil {
			return err
		}
		b.wal = w
		b.ownsWAL = true
	}

	b.queue = o.queue
	if b.queue == nil {
		b.queue = queue.NewMemQueue(b.policy.MaxQueueLen)
	}

	b.publisher = pipeline.NewBufferedPublisher(b.wal, b.queue, b.policy, b.obs)
	b.sink = append(b.sink, b.publisher)
	return nil
}

// Registry returns the frozen registry built from the configuration.
func (b *Bridge) Registry() *Registry { return b.registry }

// ConnectionStatus reports the connection manager diagnostics.
func (b *Bridge) ConnectionStatus() ConnectionStatus { return b.conn.Status() }

// PrometheusRegistry returns the registry the bridge's metrics live on.
func (b *Bridge) PrometheusRegistry() *prometheus.Registry { return b.prom }

// RunID identifies this process run in persisted observations. It is empty
// when persistence is disabled.
func (b *Bridge) RunID() string {
	if b.publisher == nil {
		return ""
	}
	return b.publisher.RunID()
}

// PollOnce runs a single poll cycle without starting the loop.
func (b *Bridge) PollOnce(ctx context.Context) (CycleReport, error) {
	return b.engine.RunCycle(ctx)
}

// Start replays the WAL, marks every slot unavailable, and launches the
// ingest pipeline, status server and poll loop. It returns immediately; call
// Run to block on a context instead.
func (b *Bridge) Start() error {
	if b == nil {
		return fmt.Errorf("bridge is nil")
	}
	if b.started {
		return fmt.Errorf("bridge already started")
	}
	b.started = true

	if b.batchSink != nil {
		ingestCtx, cancel := context.WithCancel(context.Background())
		b.ingestCancel = cancel
		b.ingestDone = make(chan struct{})
		go func() {
			defer close(b.ingestDone)
			pipeline.RunIngestPipeline(ingestCtx, b.wal, b.queue, b.batchSink, b.policy, b.obs)
		}()

		// ingest is already draining, so replay may wait for room
		replayPol := b.policy
		replayPol.OnQueueFull = "block"
		if _, err := pipeline.ReplayWAL(b.wal, b.queue, replayPol, b.obs); err != nil {
			return fmt.Errorf("wal replay: %w", err)
		}
		b.startResourceGauges()
	}

	now := time.Now()
	for binding := range b.registry.Bindings() {
		b.sink.MarkUnavailable(binding.Slot)
		binding.RecordUnavailable(now)
	}

	if b.status != nil {
		if err := b.status.Start(); err != nil {
			return err
		}
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	b.pollCancel = cancel
	b.pollDone = make(chan struct{})
	go func() {
		defer close(b.pollDone)
		_ = b.engine.Run(pollCtx, b.cfg.Poll.Interval)
	}()

	b.obs.LogInfo("bridge_started",
		ports.Field{Key: "endpoint", Value: b.cfg.Communications.URL},
		ports.Field{Key: "points", Value: b.registry.Len()},
		ports.Field{Key: "interval", Value: b.cfg.Poll.Interval.String()})
	return nil
}

// Run starts the bridge and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(); err != nil {
		return errors.Join(err, b.Shutdown(context.Background()))
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(shutdownCtx)
}

// Shutdown stops polling, waits for the in-flight cycle, closes the OPC UA
// session, drains the ingest pipeline and releases the database and status
// server.
func (b *Bridge) Shutdown(ctx context.Context) error {
	var errs []error

	if b.pollCancel != nil {
		b.pollCancel()
		if err := wait(ctx, b.pollDone); err != nil {
			errs = append(errs, fmt.Errorf("poll loop: %w", err))
		}
	}

	if b.conn != nil {
		if err := b.conn.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if b.gaugeStopCh != nil {
		close(b.gaugeStopCh)
		b.gaugeStopCh = nil
	}

	if b.ingestCancel != nil {
		b.ingestCancel()
		if err := wait(ctx, b.ingestDone); err != nil {
			errs = append(errs, fmt.Errorf("ingest pipeline: %w", err))
		}
	}

	if b.status != nil {
		if err := b.status.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := b.closePersistence(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (b *Bridge) closePersistence() error {
	var errs []error
	if b.ownsWAL && b.wal != nil {
		if err := b.wal.Close(); err != nil {
			errs = append(errs, err)
		}
		b.wal = nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, err)
		}
		b.db = nil
	}
	return errors.Join(errs...)
}

func (b *Bridge) startResourceGauges() {
	b.gaugeStopCh = make(chan struct{})
	go b.recordResourceGauges(b.gaugeStopCh, time.Second, b.wal, b.queue)
}

func (b *Bridge) recordResourceGauges(stop <-chan struct{}, interval time.Duration, w ports.WAL, q ports.ObservationQueue) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := w.Stats()
			b.obs.SetGauge(ports.MetricWALSize, float64(stats.SizeBytes))
			b.obs.SetGauge(ports.MetricQueueLength, float64(q.Len()))
		}
	}
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
