package mcpulse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// gridConfig holds configuration during server grid construction.
type gridConfig struct {
	addressTemplate string
	dimensions      map[string][]string
	staticLabels    map[string]string
	timeout         time.Duration
	interval        time.Duration
}

// GridOption configures [NewServerGrid].
type GridOption func(*gridConfig) error

// WithAddressTemplate sets the template each server address is rendered
// from. Dimension keys are the template variables.
//
// Example:
//
//	WithAddressTemplate("{{.region}}.mc.example.com:{{.port}}")
//
// Returns an error if the template string is empty.
func WithAddressTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("address template required")
		}
		cfg.addressTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
//
// Returns an error if the map is empty, any dimension has no values, or
// any value is empty or contains whitespace or a slash.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
				if strings.ContainsAny(v, " \t/") {
					return fmt.Errorf("dimension '%s' value %q cannot be used in an address", k, v)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to all generated servers. On collision
// with a dimension label, the static label wins.
//
// Returns an error if an odd number of arguments is provided.
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.staticLabels == nil {
			cfg.staticLabels = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridTimeout sets the Java exchange timeout for all generated
// servers. Zero keeps the default. Bedrock grids reject a timeout.
//
// Returns an error if the duration is negative.
func WithGridTimeout(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithGridInterval sets a polling interval for all generated servers.
// Zero means the monitor's global interval.
//
// Returns an error unless the duration is zero or between 1 second and
// 1 hour.
func WithGridInterval(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("interval cannot be negative")
		}
		if d != 0 && d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("interval must not exceed 1 hour")
		}
		cfg.interval = d
		return nil
	}
}
