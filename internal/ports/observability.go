package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}

// Metric names shared by the pipeline and the observability adapter.
const (
	MetricCycles             = "opcbridge_poll_cycles_total"
	MetricCyclesSkipped      = "opcbridge_poll_cycles_skipped_total"
	MetricConnectFailures    = "opcbridge_connect_failures_total"
	MetricPointsPublished    = "opcbridge_points_published_total"
	MetricPointsUnavailable  = "opcbridge_points_unavailable_total"
	MetricObservationsStored = "opcbridge_observations_stored_total"
	MetricQueueDropped       = "opcbridge_queue_dropped_total"
	MetricCycleLatency       = "opcbridge_poll_cycle_seconds"
	MetricSinkLatency        = "opcbridge_sink_latency_seconds"
	MetricConnected          = "opcbridge_connected"
	MetricQueueLength        = "opcbridge_queue_length"
	MetricWALSize            = "opcbridge_wal_size_bytes"
)
