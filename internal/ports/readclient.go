package ports

import (
	"context"
	"time"

	"github.com/ghalamif/opcbridge/internal/domain"
)

// ReadClient is one handle onto the remote device. A handle whose Connect
// failed is not reused; it is closed and replaced by a fresh one.
type ReadClient interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context, identifier string) (domain.RawScalar, error)
	Close(ctx context.Context) error
}

// ClientFactory allocates a new, unconnected handle for endpoint.
type ClientFactory func(endpoint string) (ReadClient, error)

// Connection is what the poll cycle needs from the connection manager.
type Connection interface {
	EnsureConnected(ctx context.Context) error
	ReadScalar(ctx context.Context, identifier string) (domain.RawScalar, error)
}

// ConnectionStatus is a diagnostic snapshot of the connection manager.
type ConnectionStatus struct {
	Endpoint    string    `json:"endpoint"`
	Connected   bool      `json:"connected"`
	Attempts    uint64    `json:"attempts"`
	Failures    uint64    `json:"failures"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}
