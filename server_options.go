package mcpulse

import (
	"errors"
	"time"
)

// serverConfig holds mutable state during server construction.
type serverConfig struct {
	labels   map[string]string
	interval time.Duration
}

// ServerOption configures a [Server] during construction.
type ServerOption func(*serverConfig) error

// WithLabels adds key-value metadata shown on the dashboard.
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) ServerOption {
	return func(cfg *serverConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithInterval sets a polling interval for this server instead of the
// monitor's global interval.
//
// The interval must be between 1 second and 1 hour. It is measured from
// when a poll starts, so a slow server is polled at interval + probe time.
func WithInterval(d time.Duration) ServerOption {
	return func(cfg *serverConfig) error {
		if d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("interval must not exceed 1 hour")
		}
		cfg.interval = d
		return nil
	}
}
