package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// MinCooldown is the shortest pause allowed between two connect attempts
// against an unreachable device.
const MinCooldown = 5 * time.Second

type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

type Config struct {
	Endpoint string
	Cooldown time.Duration
}

type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithObservability routes connect logs and metrics.
func WithObservability(obs ports.Observability) Option {
	return func(m *Manager) { m.obs = obs }
}

// Manager exclusively owns the client handle. After a failed connect the
// handle is closed and replaced through the factory; it is released for good
// on Shutdown.
type Manager struct {
	endpoint string
	cooldown time.Duration
	factory  ports.ClientFactory
	now      func() time.Time
	obs      ports.Observability

	mu          sync.Mutex
	handle      ports.ReadClient
	state       State
	closed      bool
	lastFailure time.Time
	lastAttempt time.Time
	lastErr     error
	attempts    uint64
	failures    uint64
}

// NewManager allocates the initial handle. A factory error here is a startup
// error: the client options themselves are unusable.
func NewManager(cfg Config, factory ports.ClientFactory, opts ...Option) (*Manager, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("connection: endpoint required")
	}
	if factory == nil {
		return nil, errors.New("connection: client factory required")
	}
	if cfg.Cooldown < MinCooldown {
		cfg.Cooldown = MinCooldown
	}

	m := &Manager{
		endpoint: cfg.Endpoint,
		cooldown: cfg.Cooldown,
		factory:  factory,
		now:      time.Now,
		obs:      nopObservability{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	h, err := factory(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("connection: allocate client: %w", err)
	}
	m.handle = h
	return m, nil
}

// EnsureConnected is a no-op while connected. Otherwise it issues at most
// one connect call, and none at all while the cooldown after the previous
// failure is still running.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrClosed
	}
	if m.state == Connected {
		return nil
	}

	now := m.now()
	if !m.lastFailure.IsZero() {
		if wait := m.cooldown - now.Sub(m.lastFailure); wait > 0 {
			m.obs.IncCounter(ports.MetricConnectFailures, 1)
			return fmt.Errorf("%w: cooling down, next attempt in %s", domain.ErrConnectFailed, wait.Round(time.Millisecond))
		}
	}

	if m.handle == nil {
		h, err := m.factory(m.endpoint)
		if err != nil {
			return m.failLocked(now, fmt.Errorf("allocate client: %w", err))
		}
		m.handle = h
	}

	m.attempts++
	m.lastAttempt = now
	if err := m.handle.Connect(ctx); err != nil {
		m.replaceHandleLocked(ctx)
		return m.failLocked(now, err)
	}

	m.state = Connected
	m.lastErr = nil
	m.lastFailure = time.Time{}
	m.obs.SetGauge(ports.MetricConnected, 1)
	m.obs.LogInfo("connected", ports.Field{Key: "endpoint", Value: m.endpoint})
	return nil
}

func (m *Manager) failLocked(at time.Time, err error) error {
	m.failures++
	m.lastFailure = at
	m.lastErr = err
	m.obs.IncCounter(ports.MetricConnectFailures, 1)
	m.obs.SetGauge(ports.MetricConnected, 0)
	m.obs.LogError("connect_failed", err,
		ports.Field{Key: "endpoint", Value: m.endpoint},
		ports.Field{Key: "retry_in", Value: m.cooldown.String()})
	return fmt.Errorf("%w: %v", domain.ErrConnectFailed, err)
}

// replaceHandleLocked discards a handle whose connect failed and allocates a
// fresh one for the next attempt.
func (m *Manager) replaceHandleLocked(ctx context.Context) {
	if m.handle != nil {
		_ = m.handle.Close(ctx)
		m.handle = nil
	}
	h, err := m.factory(m.endpoint)
	if err != nil {
		m.obs.LogError("client_allocate_failed", err, ports.Field{Key: "endpoint", Value: m.endpoint})
		return
	}
	m.handle = h
}

// ReadScalar issues one synchronous read. A failed read leaves the
// connection state untouched.
func (m *Manager) ReadScalar(ctx context.Context, identifier string) (domain.RawScalar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.RawScalar{}, domain.ErrClosed
	}
	if m.state != Connected || m.handle == nil {
		return domain.RawScalar{}, domain.ErrNotConnected
	}
	raw, err := m.handle.Read(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrReadFailed) || errors.Is(err, domain.ErrNotScalar) {
			return domain.RawScalar{}, err
		}
		return domain.RawScalar{}, fmt.Errorf("%w: %s: %v", domain.ErrReadFailed, identifier, err)
	}
	return raw, nil
}

// Shutdown releases the handle. Calling it more than once is harmless.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.state = Disconnected
	m.obs.SetGauge(ports.MetricConnected, 0)

	h := m.handle
	m.handle = nil
	if h == nil {
		return nil
	}
	if err := h.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("connection: close: %w", err)
	}
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Status() ports.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := ports.ConnectionStatus{
		Endpoint:    m.endpoint,
		Connected:   m.state == Connected,
		Attempts:    m.attempts,
		Failures:    m.failures,
		LastAttempt: m.lastAttempt,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

type nopObservability struct{}

func (nopObservability) LogInfo(string, ...ports.Field)            {}
func (nopObservability) LogError(string, error, ...ports.Field)    {}
func (nopObservability) LogCritical(string, error, ...ports.Field) {}
func (nopObservability) IncCounter(string, float64)                {}
func (nopObservability) ObserveLatency(string, float64)            {}
func (nopObservability) SetGauge(string, float64)                  {}

var _ ports.Connection = (*Manager)(nil)
