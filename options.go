package mcpulse

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/mcpulse/internal/protocol"
)

// pollerConfig holds mutable state during Poller construction.
type pollerConfig struct {
	logger          *slog.Logger
	cache           *Cache
	isolationMargin time.Duration
	bedrockTimeout  time.Duration
	skipLatency     bool
	clients         map[Protocol]protocol.Client
}

// Option configures a [Poller] during construction.
//
// Built-in options: [WithLogger], [WithCache], [WithIsolationMargin],
// [WithBedrockTimeout], [WithoutLatency].
type Option func(*pollerConfig) error

// WithLogger sets the logger for probe faults and debug output. If not
// specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pollerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithCache injects the status cache. Without it the poller creates its
// own, reachable through [Poller.Cache].
//
// Returns an error if the cache is nil.
func WithCache(c *Cache) Option {
	return func(cfg *pollerConfig) error {
		if c == nil {
			return errors.New("cache cannot be nil")
		}
		cfg.cache = c
		return nil
	}
}

// WithIsolationMargin sets the grace period added to a probe's own timeout
// before an isolated probe that has not replied is reported as a
// [ProbeExecutionError]. Defaults to 2 seconds.
//
// Returns an error if the duration is zero or negative.
func WithIsolationMargin(d time.Duration) Option {
	return func(cfg *pollerConfig) error {
		if d <= 0 {
			return errors.New("isolation margin must be positive")
		}
		cfg.isolationMargin = d
		return nil
	}
}

// WithBedrockTimeout overrides the fixed reply wait of the Bedrock
// exchange. Defaults to 5 seconds. It applies to every Bedrock target;
// individual targets cannot change it.
//
// Returns an error if the duration is zero or negative.
func WithBedrockTimeout(d time.Duration) Option {
	return func(cfg *pollerConfig) error {
		if d <= 0 {
			return errors.New("bedrock timeout must be positive")
		}
		cfg.bedrockTimeout = d
		return nil
	}
}

// WithoutLatency skips the ping/pong step of the Java exchange, so
// results carry no latency. The status request alone decides the state.
func WithoutLatency() Option {
	return func(cfg *pollerConfig) error {
		cfg.skipLatency = true
		return nil
	}
}

// pingOptions holds per-call settings for [Poller.Ping].
type pingOptions struct {
	isolate bool
	cache   bool
}

// PingOption adjusts a single [Poller.Ping] call.
type PingOption func(*pingOptions)

// WithoutIsolation runs the probe on the calling goroutine. Panics are
// still recovered, but no extra wall-clock bound is applied beyond the
// protocol timeout.
func WithoutIsolation() PingOption {
	return func(o *pingOptions) {
		o.isolate = false
	}
}

// WithoutCache skips the cache write for this call.
func WithoutCache() PingOption {
	return func(o *pingOptions) {
		o.cache = false
	}
}
