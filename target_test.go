package mcpulse

import (
	"strings"
	"testing"
	"time"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{"java", ProtocolJava, false},
		{"TCP", ProtocolJava, false},
		{" tcp_status ", ProtocolJava, false},
		{"bedrock", ProtocolBedrock, false},
		{"UDP", ProtocolBedrock, false},
		{"udp_status", ProtocolBedrock, false},
		{"quake", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProtocol(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProtocol_DefaultPort(t *testing.T) {
	if got := ProtocolJava.DefaultPort(); got != 25565 {
		t.Errorf("java DefaultPort() = %d, want 25565", got)
	}
	if got := ProtocolBedrock.DefaultPort(); got != 19132 {
		t.Errorf("bedrock DefaultPort() = %d, want 19132", got)
	}
	if got := Protocol("quake").DefaultPort(); got != 0 {
		t.Errorf("unknown DefaultPort() = %d, want 0", got)
	}
}

func TestNewTarget_Defaults(t *testing.T) {
	java, err := NewTarget(ProtocolJava, "play.example.com")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	if java.Port() != 25565 || java.Timeout() != 5*time.Second {
		t.Errorf("java target = %+v", java)
	}

	bedrock, err := NewTarget(ProtocolBedrock, "bedrock.example.com")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	if bedrock.Port() != 19132 || bedrock.Timeout() != 0 {
		t.Errorf("bedrock target = %+v", bedrock)
	}
}

func TestNewTarget_Options(t *testing.T) {
	target, err := NewTarget(ProtocolJava, "play.example.com", WithPort(25570), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	if target.Port() != 25570 || target.Timeout() != 2*time.Second {
		t.Errorf("target = %+v", target)
	}
	if target.Protocol() != ProtocolJava || target.Host() != "play.example.com" {
		t.Errorf("target = %+v", target)
	}
}

func TestNewTarget_Errors(t *testing.T) {
	tests := []struct {
		name    string
		proto   Protocol
		host    string
		opts    []TargetOption
		wantErr string
	}{
		{"unknown protocol", Protocol("quake"), "a.example.com", nil, "unknown protocol"},
		{"empty host", ProtocolJava, "  ", nil, "host cannot be empty"},
		{"host with space", ProtocolJava, "a b", nil, "invalid host"},
		{"host with slash", ProtocolJava, "a/b", nil, "invalid host"},
		{"port zero", ProtocolJava, "a.example.com", []TargetOption{WithPort(0)}, "port must be between"},
		{"port too high", ProtocolJava, "a.example.com", []TargetOption{WithPort(70000)}, "port must be between"},
		{"zero timeout", ProtocolJava, "a.example.com", []TargetOption{WithTimeout(0)}, "timeout must be positive"},
		{"bedrock timeout", ProtocolBedrock, "a.example.com", []TargetOption{WithTimeout(time.Second)}, "not configurable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTarget(tt.proto, tt.host, tt.opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		proto    Protocol
		address  string
		wantHost string
		wantPort int
	}{
		{"host only java", ProtocolJava, "play.example.com", "play.example.com", 25565},
		{"host only bedrock", ProtocolBedrock, "be.example.com", "be.example.com", 19132},
		{"host and port", ProtocolJava, "play.example.com:25570", "play.example.com", 25570},
		{"ipv4 and port", ProtocolBedrock, "10.0.0.5:19133", "10.0.0.5", 19133},
		{"bracketed ipv6", ProtocolJava, "[2001:db8::1]", "2001:db8::1", 25565},
		{"bracketed ipv6 and port", ProtocolJava, "[2001:db8::1]:25570", "2001:db8::1", 25570},
		{"bare ipv6", ProtocolBedrock, "2001:db8::1", "2001:db8::1", 19132},
		{"surrounding space", ProtocolJava, "  play.example.com  ", "play.example.com", 25565},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.proto, tt.address)
			if err != nil {
				t.Fatalf("ParseTarget(%q) error = %v", tt.address, err)
			}
			if got.Host() != tt.wantHost || got.Port() != tt.wantPort {
				t.Errorf("ParseTarget(%q) = %s:%d, want %s:%d", tt.address, got.Host(), got.Port(), tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestParseTarget_Errors(t *testing.T) {
	for _, address := range []string{"", "host:", "host:abc", "host:0", "host:65536", "[::1"} {
		if _, err := ParseTarget(ProtocolJava, address); err == nil {
			t.Errorf("ParseTarget(%q) should fail", address)
		}
	}
}

func TestParseTarget_ExplicitPortWins(t *testing.T) {
	got, err := ParseTarget(ProtocolJava, "play.example.com:25570", WithPort(25599))
	if err != nil {
		t.Fatalf("ParseTarget() error = %v", err)
	}
	if got.Port() != 25599 {
		t.Errorf("Port() = %d, want 25599", got.Port())
	}
}

func TestTarget_Address(t *testing.T) {
	a := mustTarget(t, ProtocolJava, "Play.Example.com")
	b := mustTarget(t, ProtocolBedrock, "play.example.com:25565")

	if a.Address() != "play.example.com:25565" {
		t.Errorf("Address() = %q", a.Address())
	}
	// protocol is not part of the cache key
	if a.Address() != b.Address() {
		t.Errorf("addresses differ: %q vs %q", a.Address(), b.Address())
	}

	v6 := mustTarget(t, ProtocolJava, "[2001:db8::1]")
	if v6.Address() != "[2001:db8::1]:25565" {
		t.Errorf("IPv6 Address() = %q", v6.Address())
	}
	if v6.String() != v6.Address() {
		t.Errorf("String() = %q, want Address()", v6.String())
	}
}

func TestTarget_IsZero(t *testing.T) {
	if !(Target{}).IsZero() {
		t.Error("zero Target should report IsZero")
	}
	if mustTarget(t, ProtocolJava, "a.example.com").IsZero() {
		t.Error("constructed Target should not report IsZero")
	}
}
