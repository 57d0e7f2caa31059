package opcbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	base "github.com/ghalamif/opcbridge/pkg/opcbridge"
)

// Re-exported errors for convenience.
var (
	ErrDuplicateIdentifier = base.ErrDuplicateIdentifier
	ErrUnknownKind         = base.ErrUnknownKind
	ErrConnectFailed       = base.ErrConnectFailed
	ErrNotConnected        = base.ErrNotConnected
	ErrClosed              = base.ErrClosed
	ErrReadFailed          = base.ErrReadFailed
	ErrNotScalar           = base.ErrNotScalar
	ErrConversionFailed    = base.ErrConversionFailed
	ErrCycleInProgress     = base.ErrCycleInProgress
	ErrChannelSinkClosed   = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/opcbridge directly.
type (
	Config                  = base.Config
	Policy                  = base.Policy
	CommunicationsConfig    = base.CommunicationsConfig
	PollConfig              = base.PollConfig
	DataPoint               = base.DataPoint
	TimescaleConfig         = base.TimescaleConfig
	MetricsConfig           = base.MetricsConfig
	WALConfig               = base.WALConfig
	LogConfig               = base.LogConfig
	Bridge                  = base.Bridge
	BridgeOption            = base.BridgeOption
	Kind                    = base.Kind
	TypedValue              = base.TypedValue
	RawScalar               = base.RawScalar
	Slot                    = base.Slot
	Binding                 = base.Binding
	Registry                = base.Registry
	Observation             = base.Observation
	ObservationBatchHandler = base.ObservationBatchHandler
	PublishFuncs            = base.PublishFuncs
	ReadClient              = base.ReadClient
	ClientFactory           = base.ClientFactory
	ConnectionStatus        = base.ConnectionStatus
	PublishSink             = base.PublishSink
	BatchSink               = base.BatchSink
	ObservationQueue        = base.ObservationQueue
	WAL                     = base.WAL
	Observability           = base.Observability
	QueuedObservation       = base.QueuedObservation
	WALEntryID              = base.WALEntryID
	WALStats                = base.WALStats
	CycleReport             = base.CycleReport
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	return base.NewLogger(cfg)
}

func BuildRegistry(points []DataPoint) (*Registry, error) {
	return base.BuildRegistry(points)
}

// Bridge runtime and options.
func NewBridge(cfg *Config, opts ...BridgeOption) (*Bridge, error) {
	return base.NewBridge(cfg, opts...)
}

func WithClientFactory(f ClientFactory) BridgeOption {
	return base.WithClientFactory(f)
}

func WithBatchSink(s BatchSink) BridgeOption {
	return base.WithBatchSink(s)
}

func WithWAL(w WAL) BridgeOption {
	return base.WithWAL(w)
}

func WithQueue(q ObservationQueue) BridgeOption {
	return base.WithQueue(q)
}

func WithObservability(obs Observability) BridgeOption {
	return base.WithObservability(obs)
}

func WithLogger(l *zap.Logger) BridgeOption {
	return base.WithLogger(l)
}

func WithPrometheusRegistry(reg *prometheus.Registry) BridgeOption {
	return base.WithPrometheusRegistry(reg)
}

func WithPublishSink(s PublishSink) BridgeOption {
	return base.WithPublishSink(s)
}

func WithoutPersistence() BridgeOption {
	return base.WithoutPersistence()
}

func WithoutStatusServer() BridgeOption {
	return base.WithoutStatusServer()
}

// Sink adapters.
func NewCallbackSink(name string, fn ObservationBatchHandler) BatchSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (BatchSink, <-chan []Observation, func()) {
	return base.NewChannelSink(name, buffer)
}
