package observability

import (
	"errors"
	"testing"

	"github.com/ghalamif/opcbridge/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg, zap.NewNop())

	obs.IncCounter(ports.MetricPointsPublished, 5)
	if got := testutil.ToFloat64(obs.counters[ports.MetricPointsPublished]); got != 5 {
		t.Fatalf("expected published counter 5, got %f", got)
	}

	obs.IncCounter(ports.MetricQueueDropped, 2)
	if got := testutil.ToFloat64(obs.counters[ports.MetricQueueDropped]); got != 2 {
		t.Fatalf("expected queue drop counter 2, got %f", got)
	}

	obs.SetGauge(ports.MetricWALSize, 42)
	if got := testutil.ToFloat64(obs.gauges[ports.MetricWALSize]); got != 42 {
		t.Fatalf("expected wal gauge 42, got %f", got)
	}

	obs.ObserveLatency(ports.MetricCycleLatency, 0.5)
	hCollector := obs.histos[ports.MetricCycleLatency].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	// unknown names are ignored
	obs.IncCounter("nope", 1)
	obs.SetGauge("nope", 1)

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("expected registered metrics, got %d (%v)", n, err)
	}
}

func TestPromObsLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs := NewPromObs(nil, zap.New(core))

	obs.LogInfo("connected", ports.Field{Key: "endpoint", Value: "opc.tcp://plc:4840"})
	obs.LogError("read_failed", errors.New("boom"), ports.Field{Key: "identifier", Value: "n1"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Message != "connected" || entries[0].ContextMap()["endpoint"] != "opc.tcp://plc:4840" {
		t.Fatalf("unexpected info entry: %+v", entries[0])
	}
	ctx := entries[1].ContextMap()
	if ctx["identifier"] != "n1" || ctx["error"] != "boom" {
		t.Fatalf("unexpected error entry context: %v", ctx)
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	l, err := NewLogger(LogConfig{Level: "debug", Development: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}
