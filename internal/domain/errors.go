package domain

import "errors"

// Configuration errors. They are fatal at startup.
var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrUnknownKind         = errors.New("unknown data point type")
	ErrEmptyIdentifier     = errors.New("identifier is required")
	ErrRegistryFrozen      = errors.New("registry is frozen")
)

// Runtime errors. The poll cycle absorbs them into unavailability.
var (
	ErrConnectFailed    = errors.New("connect failed")
	ErrNotConnected     = errors.New("not connected")
	ErrClosed           = errors.New("connection manager closed")
	ErrReadFailed       = errors.New("read failed")
	ErrNotScalar        = errors.New("value is not a scalar")
	ErrConversionFailed = errors.New("conversion failed")
)

// ConfigError marks a problem that must stop the process before polling
// starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Err.Error()
	}
	return "config " + e.Field + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
