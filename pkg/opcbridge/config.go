package opcbridge

import (
	"go.uber.org/zap"

	"github.com/ghalamif/opcbridge/internal/adapters/observability"
	"github.com/ghalamif/opcbridge/internal/adapters/opcua"
	"github.com/ghalamif/opcbridge/internal/app/config"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds.
	Policy = ports.Policy
	// CommunicationsConfig holds the OPC UA endpoint and session settings.
	CommunicationsConfig = opcua.Config
	// PollConfig sets the cycle interval and reconnect cooldown.
	PollConfig = config.PollConfig
	// DataPoint declares one polled value.
	DataPoint = config.DataPoint
	// TimescaleConfig configures the optional batch sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the status HTTP server.
	MetricsConfig = config.MetricsConfig
	// WALConfig configures on-disk durability.
	WALConfig = config.WALConfig
	// LogConfig selects the logger preset and level.
	LogConfig = observability.LogConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig decodes, defaults and validates YAML bytes.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	return observability.NewLogger(cfg)
}
