package config

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jpalmerr/mcpulse"
)

// BuildServers converts parsed configuration into SDK Server values.
//
// It processes both direct servers and grids, returning a combined slice.
// Grid dimensions are expanded via cartesian product. Display names must
// be unique across the result.
func BuildServers(cfg *Config) ([]mcpulse.Server, error) {
	var servers []mcpulse.Server

	for i, sc := range cfg.Servers {
		srv, err := buildServer(sc)
		if err != nil {
			return nil, fmt.Errorf("servers[%d] (%s): %w", i, sc.Name, err)
		}
		servers = append(servers, srv)
	}

	for i, gc := range cfg.Grids {
		gridServers, err := buildGridServers(gc)
		if err != nil {
			return nil, fmt.Errorf("grids[%d] (%s): %w", i, gc.Name, err)
		}
		servers = append(servers, gridServers...)
	}

	seen := make(map[string]bool, len(servers))
	for _, s := range servers {
		if seen[s.Name()] {
			return nil, fmt.Errorf("duplicate server name: %q", s.Name())
		}
		seen[s.Name()] = true
	}

	return servers, nil
}

// buildServer converts a single ServerConfig to an SDK Server.
func buildServer(sc ServerConfig) (mcpulse.Server, error) {
	p, err := parseProtocol(sc.Protocol)
	if err != nil {
		return mcpulse.Server{}, err
	}

	var targetOpts []mcpulse.TargetOption
	if sc.Timeout != 0 {
		targetOpts = append(targetOpts, mcpulse.WithTimeout(sc.Timeout.Duration()))
	}
	target, err := mcpulse.ParseTarget(p, sc.Address, targetOpts...)
	if err != nil {
		return mcpulse.Server{}, err
	}

	var opts []mcpulse.ServerOption
	if len(sc.Labels) > 0 {
		opts = append(opts, mcpulse.WithLabels(mapToKeyValuePairs(sc.Labels)...))
	}
	if sc.Interval != 0 {
		opts = append(opts, mcpulse.WithInterval(sc.Interval.Duration()))
	}

	return mcpulse.NewServer(sc.Name, target, opts...)
}

// buildGridServers expands a GridConfig through the SDK's grid builder.
func buildGridServers(gc GridConfig) ([]mcpulse.Server, error) {
	p, err := parseProtocol(gc.Protocol)
	if err != nil {
		return nil, err
	}

	opts := []mcpulse.GridOption{
		mcpulse.WithAddressTemplate(gc.AddressTemplate),
		mcpulse.WithDimensions(gc.Dimensions),
	}
	if len(gc.Labels) > 0 {
		opts = append(opts, mcpulse.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}
	if gc.Timeout != 0 {
		opts = append(opts, mcpulse.WithGridTimeout(gc.Timeout.Duration()))
	}
	if gc.Interval != 0 {
		opts = append(opts, mcpulse.WithGridInterval(gc.Interval.Duration()))
	}

	return mcpulse.NewServerGrid(gc.Name, p, opts...)
}

// BuildPoller creates the Poller described by cfg. Zero values fall back
// to the SDK defaults, so cfg need not come from [Parse].
func BuildPoller(cfg *Config, logger *slog.Logger) (*mcpulse.Poller, error) {
	var opts []mcpulse.Option
	if logger != nil {
		opts = append(opts, mcpulse.WithLogger(logger))
	}
	if cfg.IsolationMargin > 0 {
		opts = append(opts, mcpulse.WithIsolationMargin(cfg.IsolationMargin.Duration()))
	}
	if !cfg.LatencyEnabled() {
		opts = append(opts, mcpulse.WithoutLatency())
	}
	return mcpulse.New(opts...)
}

// BuildMonitor creates the Poller and Monitor described by cfg. Zero
// values fall back to the SDK defaults.
func BuildMonitor(cfg *Config, logger *slog.Logger) (*mcpulse.Monitor, error) {
	servers, err := BuildServers(cfg)
	if err != nil {
		return nil, err
	}

	p, err := BuildPoller(cfg, logger)
	if err != nil {
		return nil, err
	}

	lookupRate, lookupBurst := cfg.lookupLimit()
	opts := []mcpulse.MonitorOption{
		mcpulse.WithServers(servers...),
		mcpulse.WithLookupLimit(lookupRate, lookupBurst),
		mcpulse.WithProbeIsolation(cfg.IsolationEnabled()),
	}
	if cfg.PollInterval != 0 {
		opts = append(opts, mcpulse.WithPollingInterval(cfg.PollInterval.Duration()))
	}
	if cfg.Port != 0 {
		opts = append(opts, mcpulse.WithHTTPPort(cfg.Port))
	}
	if cfg.MaxConcurrency != 0 {
		opts = append(opts, mcpulse.WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if cfg.Title != "" {
		opts = append(opts, mcpulse.WithTitle(cfg.Title))
	}

	return mcpulse.NewMonitor(p, opts...)
}

// parseProtocol is [mcpulse.ParseProtocol] with java as the default.
func parseProtocol(s string) (mcpulse.Protocol, error) {
	if s == "" {
		return mcpulse.ProtocolJava, nil
	}
	return mcpulse.ParseProtocol(s)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
