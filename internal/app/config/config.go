package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/opcbridge/internal/adapters/observability"
	"github.com/ghalamif/opcbridge/internal/adapters/opcua"
	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

type Config struct {
	Communications opcua.Config            `yaml:"communications"`
	Poll           PollConfig              `yaml:"poll"`
	Data           []DataPoint             `yaml:"data"`
	Policy         ports.Policy            `yaml:"policy"`
	Timescale      TimescaleConfig         `yaml:"timescale"`
	Metrics        MetricsConfig           `yaml:"metrics"`
	WAL            WALConfig               `yaml:"wal"`
	Log            observability.LogConfig `yaml:"log"`
}

type PollConfig struct {
	Interval          time.Duration `yaml:"interval"`
	ReconnectCooldown time.Duration `yaml:"reconnect_cooldown"`
}

// DataPoint declares one remote value to poll. Name is the local slot and
// defaults to Identifier.
type DataPoint struct {
	Type       string `yaml:"type"`
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
}

// TimescaleConfig configures the optional batch sink. An empty ConnString
// disables it.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &domain.ConfigError{Err: err}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = time.Second
	}
	if c.Poll.ReconnectCooldown < 5*time.Second {
		c.Poll.ReconnectCooldown = 5 * time.Second
	}
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	// the poll cycle publishes inline, so a stalled sink must not block it
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "drop"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "observations"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Data {
		if c.Data[i].Name == "" {
			c.Data[i].Name = c.Data[i].Identifier
		}
	}

	c.Communications.ApplyDefaults()
}

func (c *Config) validate() error {
	if err := c.Communications.Validate(); err != nil {
		return &domain.ConfigError{Field: "communications", Err: err}
	}

	seen := make(map[string]struct{}, len(c.Data))
	for i, dp := range c.Data {
		field := fmt.Sprintf("data[%d]", i)
		if dp.Identifier == "" {
			return &domain.ConfigError{Field: field, Err: domain.ErrEmptyIdentifier}
		}
		if _, err := domain.ParseKind(dp.Type); err != nil {
			return &domain.ConfigError{Field: field + ".type", Err: err}
		}
		if _, dup := seen[dp.Identifier]; dup {
			return &domain.ConfigError{Field: field, Err: fmt.Errorf("%w: %q", domain.ErrDuplicateIdentifier, dp.Identifier)}
		}
		seen[dp.Identifier] = struct{}{}
	}

	if err := validPolicy("policy.on_queue_full", c.Policy.OnQueueFull, "block", "drop", "reject"); err != nil {
		return err
	}
	if err := validPolicy("policy.on_wal_full", c.Policy.OnWALFull, "block", "drop"); err != nil {
		return err
	}
	if c.Metrics.Addr == "" {
		return &domain.ConfigError{Field: "metrics.addr", Err: errors.New("required")}
	}
	if c.WAL.Dir == "" {
		return &domain.ConfigError{Field: "wal.dir", Err: errors.New("required")}
	}
	return nil
}

func validPolicy(field, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return &domain.ConfigError{Field: field, Err: fmt.Errorf("unsupported value %q", got)}
}
