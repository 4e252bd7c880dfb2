// Package config provides YAML configuration parsing for mcpulse.
//
// This package enables running mcpulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: My Network
//	port: 8080
//	poll_interval: 30s
//
//	servers:
//	  - name: Lobby
//	    address: play.example.com
//	    protocol: java
//	  - name: Pocket
//	    address: ${BEDROCK_HOST:-be.example.com}:19132
//	    protocol: bedrock
//
//	grids:
//	  - name: Shard
//	    address_template: "shard-{{.n}}.example.com"
//	    dimensions:
//	      n: ["1", "2"]
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/mcpulse"
)

// minPollInterval is the minimum allowed polling interval.
const minPollInterval = 1 * time.Second

const (
	defaultPort            = 8080
	defaultPollInterval    = 30 * time.Second
	defaultMaxConcurrency  = 10
	defaultIsolationMargin = 2 * time.Second
	defaultLookupRate      = 1.0
	defaultLookupBurst     = 3
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 28
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "mcpulse" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the default time between polls of a server.
	// Defaults to 30s.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxConcurrency caps the probes in flight. Defaults to 10.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Isolation runs each probe in its own goroutine. Defaults to true.
	Isolation *bool `yaml:"isolation"`

	// IsolationMargin is added to a probe's timeout before an isolated
	// probe that has not replied counts as failed. Defaults to 2s.
	IsolationMargin Duration `yaml:"isolation_margin"`

	// MeasureLatency runs the ping step of the Java exchange. Defaults to
	// true.
	MeasureLatency *bool `yaml:"measure_latency"`

	// LookupRate is the number of ad-hoc lookups per second allowed per
	// client IP. Zero disables the lookup endpoint. Defaults to 1.
	LookupRate *float64 `yaml:"lookup_rate"`

	// LookupBurst is the lookup burst per client IP. Defaults to 3.
	LookupBurst int `yaml:"lookup_burst"`

	// Log configures the binary's logging.
	Log LogConfig `yaml:"log"`

	// Servers defines individual servers.
	Servers []ServerConfig `yaml:"servers"`

	// Grids defines server grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// LogConfig configures log level and the optional rotating log file.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// File, when set, receives a copy of every log line, rotated by size.
	File string `yaml:"file"`

	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// ServerConfig defines a single server.
type ServerConfig struct {
	// Name is the display name. Defaults to the address.
	Name string `yaml:"name"`

	// Address is host or host:port.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Address string `yaml:"address"`

	// Protocol is java or bedrock. Defaults to java.
	Protocol string `yaml:"protocol"`

	// Timeout is the Java exchange timeout. Not allowed for bedrock.
	Timeout Duration `yaml:"timeout"`

	// Interval is this server's polling interval. Must be between 1s
	// and 1h; defaults to the global poll_interval.
	Interval Duration `yaml:"interval"`

	// Labels are metadata key-value pairs shown on the dashboard.
	Labels map[string]string `yaml:"labels"`
}

// GridConfig defines a server grid that expands via cartesian product.
//
// For example, with dimensions {region: [eu, us], n: ["1", "2"]}, the grid
// expands to 4 servers.
type GridConfig struct {
	// Name is the base name for generated servers.
	Name string `yaml:"name"`

	// AddressTemplate is a Go template rendering host or host:port.
	// Dimension keys are available as template variables: {{.region}}
	// Supports environment variable substitution.
	AddressTemplate string `yaml:"address_template"`

	// Protocol is java or bedrock. Defaults to java.
	Protocol string `yaml:"protocol"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	// Timeout is the Java exchange timeout for all generated servers.
	Timeout Duration `yaml:"timeout"`

	// Interval is the polling interval for all generated servers.
	Interval Duration `yaml:"interval"`

	// Labels are added to every generated server, over dimension labels.
	Labels map[string]string `yaml:"labels"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// IsolationEnabled reports whether probes run isolated.
func (c *Config) IsolationEnabled() bool {
	return c.Isolation == nil || *c.Isolation
}

// LatencyEnabled reports whether Java probes measure latency.
func (c *Config) LatencyEnabled() bool {
	return c.MeasureLatency == nil || *c.MeasureLatency
}

// lookupLimit returns the lookup rate and burst, falling back to the
// defaults for values Parse would have filled in.
func (c *Config) lookupLimit() (float64, int) {
	if c.LookupRate == nil {
		return defaultLookupRate, defaultLookupBurst
	}
	burst := c.LookupBurst
	if *c.LookupRate > 0 && burst == 0 {
		burst = defaultLookupBurst
	}
	return *c.LookupRate, burst
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in Address and AddressTemplate
// values. Defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.IsolationMargin == 0 {
		c.IsolationMargin = Duration(defaultIsolationMargin)
	}
	if c.LookupRate == nil {
		r := defaultLookupRate
		c.LookupRate = &r
	}
	if c.LookupBurst == 0 && *c.LookupRate > 0 {
		c.LookupBurst = defaultLookupBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = defaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = defaultLogMaxAgeDays
	}
	for i := range c.Servers {
		if c.Servers[i].Protocol == "" {
			c.Servers[i].Protocol = mcpulse.ProtocolJava.String()
		}
	}
	for i := range c.Grids {
		if c.Grids[i].Protocol == "" {
			c.Grids[i].Protocol = mcpulse.ProtocolJava.String()
		}
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.IsolationMargin.Duration() < 0 {
		return fmt.Errorf("isolation_margin cannot be negative, got %s", c.IsolationMargin.Duration())
	}
	if *c.LookupRate < 0 {
		return fmt.Errorf("lookup_rate cannot be negative, got %v", *c.LookupRate)
	}
	if c.LookupBurst < 0 {
		return fmt.Errorf("lookup_burst cannot be negative, got %d", c.LookupBurst)
	}
	if err := validateLog(c.Log); err != nil {
		return err
	}

	for i := range c.Servers {
		s := &c.Servers[i]
		ctx := fmt.Sprintf("servers[%d] (%s)", i, s.Name)
		if s.Name == "" {
			ctx = fmt.Sprintf("servers[%d]", i)
		}

		if s.Address == "" {
			return fmt.Errorf("%s: address is required", ctx)
		}
		expanded, err := expandEnvVars(s.Address)
		if err != nil {
			return fmt.Errorf("%s: address: %w", ctx, err)
		}
		s.Address = expanded

		p, err := mcpulse.ParseProtocol(s.Protocol)
		if err != nil {
			return fmt.Errorf("%s: %w", ctx, err)
		}
		if _, err := mcpulse.ParseTarget(p, s.Address); err != nil {
			return fmt.Errorf("%s: %w", ctx, err)
		}

		if err := validateTimeout(ctx, p, s.Timeout); err != nil {
			return err
		}
		if err := validateInterval(ctx, s.Interval); err != nil {
			return err
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}
		ctx := fmt.Sprintf("grids[%d] (%s)", i, g.Name)

		if g.AddressTemplate == "" {
			return fmt.Errorf("%s: address_template is required", ctx)
		}
		expanded, err := expandEnvVars(g.AddressTemplate)
		if err != nil {
			return fmt.Errorf("%s: address_template: %w", ctx, err)
		}
		g.AddressTemplate = expanded

		// fail fast before the SDK tries to use an invalid template
		if _, err := template.New("").Parse(g.AddressTemplate); err != nil {
			return fmt.Errorf("%s: invalid address_template: %w", ctx, err)
		}

		p, err := mcpulse.ParseProtocol(g.Protocol)
		if err != nil {
			return fmt.Errorf("%s: %w", ctx, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", ctx)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", ctx, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", ctx, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if err := validateTimeout(ctx, p, g.Timeout); err != nil {
			return err
		}
		if err := validateInterval(ctx, g.Interval); err != nil {
			return err
		}
	}

	if len(c.Servers) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one server or grid must be defined")
	}

	return nil
}

func validateTimeout(ctx string, p mcpulse.Protocol, d Duration) error {
	if d == 0 {
		return nil
	}
	if p == mcpulse.ProtocolBedrock {
		return fmt.Errorf("%s: timeout is not configurable for bedrock", ctx)
	}
	if d.Duration() < 100*time.Millisecond {
		return fmt.Errorf("%s: timeout must be at least 100ms if specified, got %s", ctx, d.Duration())
	}
	return nil
}

func validateInterval(ctx string, d Duration) error {
	if d == 0 {
		return nil
	}
	if d.Duration() < time.Second {
		return fmt.Errorf("%s: interval must be at least 1s, got %s", ctx, d.Duration())
	}
	if d.Duration() > time.Hour {
		return fmt.Errorf("%s: interval must not exceed 1h, got %s", ctx, d.Duration())
	}
	return nil
}

func validateLog(l LogConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return errors.New("log rotation settings cannot be negative")
	}
	return nil
}
