package observability

import (
	"github.com/ghalamif/opcbridge/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PromObs implements ports.Observability with Prometheus collectors and a zap
// logger.
type PromObs struct {
	logger   *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if logger == nil {
		logger = zap.NewNop()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	counters := map[string]prometheus.Counter{
		ports.MetricCycles:             counter(ports.MetricCycles, "Poll cycles executed."),
		ports.MetricCyclesSkipped:      counter(ports.MetricCyclesSkipped, "Ticks dropped because a cycle was still running."),
		ports.MetricConnectFailures:    counter(ports.MetricConnectFailures, "Failed or throttled connect attempts."),
		ports.MetricPointsPublished:    counter(ports.MetricPointsPublished, "Values decoded and published."),
		ports.MetricPointsUnavailable:  counter(ports.MetricPointsUnavailable, "Points marked unavailable."),
		ports.MetricObservationsStored: counter(ports.MetricObservationsStored, "Observations written to the batch sink."),
		ports.MetricQueueDropped:       counter(ports.MetricQueueDropped, "Observations lost due to queue or WAL policies."),
	}
	gauges := map[string]prometheus.Gauge{
		ports.MetricConnected:   gauge(ports.MetricConnected, "1 while the OPC UA session is connected."),
		ports.MetricQueueLength: gauge(ports.MetricQueueLength, "Observations buffered in the in-memory queue."),
		ports.MetricWALSize:     gauge(ports.MetricWALSize, "Size of the observation WAL on disk."),
	}
	cycleLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricCycleLatency,
		Help:    "Duration of one full poll cycle.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricSinkLatency,
		Help:    "Latency of one batch sink write.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	if reg != nil {
		for _, c := range counters {
			reg.MustRegister(c)
		}
		for _, g := range gauges {
			reg.MustRegister(g)
		}
		reg.MustRegister(cycleLatency, sinkLatency)
	}

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			ports.MetricCycleLatency: cycleLatency,
			ports.MetricSinkLatency:  sinkLatency,
		},
	}
}

func (p *PromObs) Logger() *zap.Logger { return p.logger }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(zapFields(fields), zap.Error(err), zap.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
