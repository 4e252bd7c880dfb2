package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
servers:
  - name: Lobby
    address: play.example.com
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PollInterval.Duration() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval.Duration())
	}
	if cfg.MaxConcurrency != 10 {
		t.Errorf("MaxConcurrency = %d, want 10", cfg.MaxConcurrency)
	}
	if !cfg.IsolationEnabled() {
		t.Error("isolation should default to on")
	}
	if !cfg.LatencyEnabled() {
		t.Error("latency measurement should default to on")
	}
	if cfg.IsolationMargin.Duration() != 2*time.Second {
		t.Errorf("IsolationMargin = %v, want 2s", cfg.IsolationMargin.Duration())
	}
	if *cfg.LookupRate != 1 || cfg.LookupBurst != 3 {
		t.Errorf("lookup = %v/%d, want 1/3", *cfg.LookupRate, cfg.LookupBurst)
	}
	if cfg.Log.Level != "info" || cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 28 {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Servers[0].Protocol != "java" {
		t.Errorf("Protocol = %q, want java default", cfg.Servers[0].Protocol)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: My Network
port: 9090
poll_interval: 1m
max_concurrency: 4
isolation: false
isolation_margin: 3s
measure_latency: false
lookup_rate: 0.5
lookup_burst: 2
log:
  level: debug
  file: /var/log/mcpulse.log
  max_size_mb: 50
  max_backups: 7
  max_age_days: 14
  compress: true

servers:
  - name: Lobby
    address: play.example.com:25570
    protocol: java
    timeout: 3s
    interval: 2m
    labels:
      region: eu
  - name: Pocket
    address: be.example.com
    protocol: bedrock
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "My Network" || cfg.Port != 9090 || cfg.MaxConcurrency != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PollInterval.Duration() != time.Minute {
		t.Errorf("PollInterval = %v, want 1m", cfg.PollInterval.Duration())
	}
	if cfg.IsolationEnabled() {
		t.Error("isolation: false should disable isolation")
	}
	if cfg.LatencyEnabled() {
		t.Error("measure_latency: false should disable latency measurement")
	}
	if cfg.IsolationMargin.Duration() != 3*time.Second {
		t.Errorf("IsolationMargin = %v", cfg.IsolationMargin.Duration())
	}
	if *cfg.LookupRate != 0.5 || cfg.LookupBurst != 2 {
		t.Errorf("lookup = %v/%d", *cfg.LookupRate, cfg.LookupBurst)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/var/log/mcpulse.log" || !cfg.Log.Compress || cfg.Log.MaxBackups != 7 {
		t.Errorf("Log = %+v", cfg.Log)
	}

	lobby := cfg.Servers[0]
	if lobby.Address != "play.example.com:25570" || lobby.Timeout.Duration() != 3*time.Second {
		t.Errorf("Lobby = %+v", lobby)
	}
	if lobby.Interval.Duration() != 2*time.Minute || lobby.Labels["region"] != "eu" {
		t.Errorf("Lobby = %+v", lobby)
	}
	if cfg.Servers[1].Protocol != "bedrock" {
		t.Errorf("Pocket protocol = %q", cfg.Servers[1].Protocol)
	}
}

func TestParse_LookupDisabled(t *testing.T) {
	yaml := `
lookup_rate: 0
servers:
  - address: play.example.com
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if *cfg.LookupRate != 0 || cfg.LookupBurst != 0 {
		t.Errorf("lookup = %v/%d, want disabled", *cfg.LookupRate, cfg.LookupBurst)
	}
}

func TestParse_GridConfig(t *testing.T) {
	yaml := `
grids:
  - name: Shard
    address_template: "{{.region}}-{{.n}}.example.com"
    protocol: bedrock
    interval: 1m
    labels:
      network: main
    dimensions:
      region: [eu, us]
      n: ["1", "2"]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	g := cfg.Grids[0]
	if g.Name != "Shard" || g.Protocol != "bedrock" || g.AddressTemplate != "{{.region}}-{{.n}}.example.com" {
		t.Errorf("grid = %+v", g)
	}
	if len(g.Dimensions["region"]) != 2 || g.Labels["network"] != "main" {
		t.Errorf("grid = %+v", g)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("MC_HOST", "play.example.com")
	t.Setenv("MC_DOMAIN", "example.net")

	yaml := `
servers:
  - name: Lobby
    address: ${MC_HOST}:25570
grids:
  - name: Shard
    address_template: "shard-{{.n}}.${MC_DOMAIN}"
    dimensions:
      n: ["1"]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Servers[0].Address != "play.example.com:25570" {
		t.Errorf("Address = %q", cfg.Servers[0].Address)
	}
	if cfg.Grids[0].AddressTemplate != "shard-{{.n}}.example.net" {
		t.Errorf("AddressTemplate = %q", cfg.Grids[0].AddressTemplate)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
servers:
  - name: Lobby
    address: ${MCPULSE_TEST_UNSET_HOST:-fallback.example.com}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Servers[0].Address != "fallback.example.com" {
		t.Errorf("Address = %q, want fallback", cfg.Servers[0].Address)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
servers:
  - name: Lobby
    address: ${MCPULSE_TEST_UNSET_HOST}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for unset variable")
	}
	if !strings.Contains(err.Error(), "servers[0] (Lobby): address") {
		t.Errorf("error = %q, want it to name the entry", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no servers",
			yaml:    `port: 8080`,
			wantErr: "at least one server or grid",
		},
		{
			name: "missing address",
			yaml: `
servers:
  - name: Lobby
  - name: Hub
`,
			wantErr: "servers[0] (Lobby): address is required",
		},
		{
			name: "unknown protocol",
			yaml: `
servers:
  - name: Lobby
    address: a.example.com
  - name: Arena
    address: b.example.com
  - name: Quake
    address: c.example.com
    protocol: quake3
`,
			wantErr: "servers[2] (Quake): unknown protocol",
		},
		{
			name: "bad port in address",
			yaml: `
servers:
  - name: Lobby
    address: a.example.com:70000
`,
			wantErr: "servers[0] (Lobby): port must be between",
		},
		{
			name: "bedrock timeout",
			yaml: `
servers:
  - name: Pocket
    address: be.example.com
    protocol: bedrock
    timeout: 2s
`,
			wantErr: "not configurable for bedrock",
		},
		{
			name: "timeout too short",
			yaml: `
servers:
  - name: Lobby
    address: a.example.com
    timeout: 10ms
`,
			wantErr: "timeout must be at least 100ms",
		},
		{
			name: "interval too short",
			yaml: `
servers:
  - name: Lobby
    address: a.example.com
    interval: 500ms
`,
			wantErr: "interval must be at least 1s",
		},
		{
			name: "interval too long",
			yaml: `
servers:
  - name: Lobby
    address: a.example.com
    interval: 2h
`,
			wantErr: "interval must not exceed 1h",
		},
		{
			name: "poll interval too short",
			yaml: `
poll_interval: 100ms
servers:
  - address: a.example.com
`,
			wantErr: "poll_interval must be at least",
		},
		{
			name: "bad log level",
			yaml: `
log:
  level: verbose
servers:
  - address: a.example.com
`,
			wantErr: "log.level",
		},
		{
			name: "negative lookup rate",
			yaml: `
lookup_rate: -1
servers:
  - address: a.example.com
`,
			wantErr: "lookup_rate cannot be negative",
		},
		{
			name: "grid without name",
			yaml: `
grids:
  - address_template: a.example.com
    dimensions:
      n: ["1"]
`,
			wantErr: "grids[0]: name is required",
		},
		{
			name: "grid without template",
			yaml: `
grids:
  - name: Shard
    dimensions:
      n: ["1"]
`,
			wantErr: "grids[0] (Shard): address_template is required",
		},
		{
			name: "grid bad template",
			yaml: `
grids:
  - name: Shard
    address_template: "{{.n"
    dimensions:
      n: ["1"]
`,
			wantErr: "invalid address_template",
		},
		{
			name: "grid without dimensions",
			yaml: `
grids:
  - name: Shard
    address_template: a.example.com
`,
			wantErr: "at least one dimension",
		},
		{
			name: "grid empty dimension",
			yaml: `
grids:
  - name: Shard
    address_template: a.example.com
    dimensions:
      n: []
`,
			wantErr: `dimension "n" has no values`,
		},
		{
			name: "grid duplicate dimension value",
			yaml: `
grids:
  - name: Shard
    address_template: "s{{.n}}.example.com"
    dimensions:
      n: ["1", "1"]
`,
			wantErr: `duplicate value "1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("servers: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
poll_interval: soon
servers:
  - address: a.example.com
`
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want invalid duration", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpulse.yaml")
	content := `
servers:
  - name: Lobby
    address: play.example.com
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Servers[0].Name != "Lobby" {
		t.Errorf("Servers[0].Name = %q", cfg.Servers[0].Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MCPULSE_TEST_SET", "value")
	t.Setenv("MCPULSE_TEST_EMPTY", "")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"${MCPULSE_TEST_SET}", "value", false},
		{"a-${MCPULSE_TEST_SET}-b", "a-value-b", false},
		{"${MCPULSE_TEST_EMPTY:-default}", "", false},
		{"${MCPULSE_TEST_UNSET:-default}", "default", false},
		{"${MCPULSE_TEST_UNSET:-}", "", false},
		{"${MCPULSE_TEST_UNSET}", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandEnvVars(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVars(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
