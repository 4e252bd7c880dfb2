package mcpulse

import (
	"errors"
	"maps"
	"time"
)

// Server is a named target watched by a [Monitor].
//
// Server is immutable after creation via [NewServer]. Getters return copies
// of mutable data.
type Server struct {
	name     string
	target   Target
	labels   map[string]string
	interval time.Duration
}

// Name returns the configured name, or the target address when none was
// given.
func (s Server) Name() string {
	if s.name == "" {
		return s.target.Address()
	}
	return s.name
}

// Target returns the probed target.
func (s Server) Target() Target {
	return s.target
}

// Labels returns a copy of the server's labels. Returns nil if none are set.
func (s Server) Labels() map[string]string {
	return copyMap(s.labels)
}

// Interval returns the server's polling interval, or 0 when the monitor's
// global interval applies.
func (s Server) Interval() time.Duration {
	return s.interval
}

// NewServer creates a [Server]. An empty name is allowed; the display name
// then falls back to the target address.
//
// Example:
//
//	t, _ := mcpulse.ParseTarget(mcpulse.ProtocolBedrock, "bedrock.example.com")
//	srv, err := mcpulse.NewServer("Survival", t,
//	    mcpulse.WithLabels("region", "eu"),
//	    mcpulse.WithInterval(time.Minute),
//	)
func NewServer(name string, target Target, opts ...ServerOption) (Server, error) {
	if target.IsZero() {
		return Server{}, errors.New("server target is required")
	}

	cfg := &serverConfig{labels: make(map[string]string)}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Server{}, err
		}
	}

	return Server{
		name:     name,
		target:   target,
		labels:   cfg.labels,
		interval: cfg.interval,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
