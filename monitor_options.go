package mcpulse

import (
	"errors"
	"time"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	title           string
	servers         []Server
	pollingInterval time.Duration
	port            int
	maxConcurrency  int
	statusCallbacks []func(PollEvent)
	lookupRate      float64
	lookupBurst     int
	isolation       bool
}

// MonitorOption configures a [Monitor] during construction.
//
// Built-in options: [WithServer], [WithServers], [WithPollingInterval],
// [WithHTTPPort], [WithMaxConcurrency], [WithStatusCallback], [WithTitle],
// [WithLookupLimit], [WithProbeIsolation].
type MonitorOption func(*monitorConfig) error

// WithServer adds a single [Server] to the polling list.
//
// Can be called multiple times. At least one server must be configured for
// [NewMonitor] to succeed.
func WithServer(s Server) MonitorOption {
	return func(cfg *monitorConfig) error {
		if s.target.IsZero() {
			return errors.New("server is not initialized")
		}
		cfg.servers = append(cfg.servers, s)
		return nil
	}
}

// WithServers adds multiple [Server] values to the polling list.
//
// Equivalent to calling [WithServer] for each one.
//
// Example:
//
//	m, err := mcpulse.NewMonitor(p,
//	    mcpulse.WithServers(lobby, survival, creative),
//	)
func WithServers(servers ...Server) MonitorOption {
	return func(cfg *monitorConfig) error {
		for _, s := range servers {
			if err := WithServer(s)(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithPollingInterval sets how often each server is polled when it has no
// interval of its own. Defaults to 30 seconds.
//
// Returns an error if the duration is below 1 second.
func WithPollingInterval(d time.Duration) MonitorOption {
	return func(cfg *monitorConfig) error {
		if d < time.Second {
			return errors.New("polling interval must be at least 1 second")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithHTTPPort sets the port of the dashboard server. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithHTTPPort(port int) MonitorOption {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency sets the maximum number of probes in flight during a
// polling cycle. Defaults to 10.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) MonitorOption {
	return func(cfg *monitorConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithStatusCallback registers a function called after every scheduled
// poll, once the cache has been updated.
//
// Callbacks run in registration order on a single goroutine and must not
// block. Panics are recovered and logged with a correlation ID.
//
// Example:
//
//	m, err := mcpulse.NewMonitor(p,
//	    mcpulse.WithServer(lobby),
//	    mcpulse.WithStatusCallback(func(ev mcpulse.PollEvent) {
//	        if ev.Err == nil && !ev.Result.Online() {
//	            log.Printf("%s is offline", ev.Server.Name())
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(PollEvent)) MonitorOption {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and
// header. Defaults to "mcpulse".
func WithTitle(title string) MonitorOption {
	return func(cfg *monitorConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLookupLimit sets how many ad-hoc lookups per second each client IP
// may make against GET /api/lookup, with the given burst. A zero rate
// disables the endpoint. Defaults to 1 per second with a burst of 3.
//
// Returns an error if either value is negative, or if burst is zero while
// the rate is positive.
func WithLookupLimit(perSecond float64, burst int) MonitorOption {
	return func(cfg *monitorConfig) error {
		if perSecond < 0 || burst < 0 {
			return errors.New("lookup limit must not be negative")
		}
		if perSecond > 0 && burst == 0 {
			return errors.New("lookup burst must be positive when lookups are enabled")
		}
		cfg.lookupRate = perSecond
		cfg.lookupBurst = burst
		return nil
	}
}

// WithProbeIsolation selects whether scheduled probes run in isolated
// goroutines (the default) or inline on the worker goroutine.
func WithProbeIsolation(enabled bool) MonitorOption {
	return func(cfg *monitorConfig) error {
		cfg.isolation = enabled
		return nil
	}
}
