package mcpulse

import (
	"errors"
	"fmt"
	"time"
)

// targetConfig holds mutable state during target construction.
type targetConfig struct {
	protocol Protocol
	port     int
	timeout  time.Duration
}

// TargetOption configures a [Target] during construction.
//
// Built-in options: [WithPort], [WithTimeout].
type TargetOption func(*targetConfig) error

// WithPort overrides the protocol's default port.
//
// Returns an error if the port is outside 1-65535.
func WithPort(port int) TargetOption {
	return func(cfg *targetConfig) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", port)
		}
		cfg.port = port
		return nil
	}
}

// WithTimeout sets the Java status exchange timeout, covering connect,
// status and ping. Defaults to [DefaultJavaTimeout].
//
// The Bedrock exchange has a fixed bound, so WithTimeout returns an error
// for Bedrock targets rather than being silently ignored.
func WithTimeout(d time.Duration) TargetOption {
	return func(cfg *targetConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		if cfg.protocol == ProtocolBedrock {
			return errors.New("timeout is not configurable for bedrock targets")
		}
		cfg.timeout = d
		return nil
	}
}
