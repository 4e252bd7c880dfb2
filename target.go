package mcpulse

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/mcpulse/internal/protocol"
)

// DefaultJavaTimeout bounds a Java status exchange when [WithTimeout] is
// not given.
const DefaultJavaTimeout = protocol.DefaultJavaTimeout

// Target identifies one server to probe.
//
// Target is immutable after creation via [NewTarget] or [ParseTarget]. Two
// targets with the same host (case-insensitively) and resolved port share
// a cache entry regardless of protocol.
type Target struct {
	protocol Protocol
	host     string
	port     int
	timeout  time.Duration
}

// Protocol returns the status exchange used for this target.
func (t Target) Protocol() Protocol {
	return t.protocol
}

// Host returns the host as given.
func (t Target) Host() string {
	return t.host
}

// Port returns the port after default resolution.
func (t Target) Port() int {
	return t.port
}

// Timeout returns the Java exchange timeout. For Bedrock targets it is
// zero; the UDP exchange uses the poller's fixed bound.
func (t Target) Timeout() time.Duration {
	return t.timeout
}

// Address returns lower(host):port. It is the cache key.
func (t Target) Address() string {
	return net.JoinHostPort(strings.ToLower(t.host), strconv.Itoa(t.port))
}

// String returns the address.
func (t Target) String() string {
	return t.Address()
}

// IsZero reports whether t was never constructed.
func (t Target) IsZero() bool {
	return t.host == ""
}

// NewTarget creates a [Target] for host using the given protocol.
//
// The port defaults to [Protocol.DefaultPort] and the Java timeout to
// [DefaultJavaTimeout]. See [WithPort] and [WithTimeout].
//
// Example:
//
//	t, err := mcpulse.NewTarget(mcpulse.ProtocolJava, "play.example.com",
//	    mcpulse.WithTimeout(3*time.Second),
//	)
func NewTarget(p Protocol, host string, opts ...TargetOption) (Target, error) {
	if !p.Valid() {
		return Target{}, fmt.Errorf("unknown protocol %q", p)
	}

	host = strings.TrimSpace(host)
	if host == "" {
		return Target{}, errors.New("host cannot be empty")
	}
	if strings.ContainsAny(host, " \t/") {
		return Target{}, fmt.Errorf("invalid host %q", host)
	}

	cfg := &targetConfig{protocol: p}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Target{}, err
		}
	}

	port := cfg.port
	if port == 0 {
		port = p.DefaultPort()
	}

	var timeout time.Duration
	if p == ProtocolJava {
		timeout = cfg.timeout
		if timeout == 0 {
			timeout = DefaultJavaTimeout
		}
	}

	return Target{
		protocol: p,
		host:     host,
		port:     port,
		timeout:  timeout,
	}, nil
}

// ParseTarget parses "host", "host:port", "[ipv6]" or "[ipv6]:port" and
// builds a [Target]. An unbracketed IPv6 literal is taken as a host with
// no port. Options are applied after the parsed port, so an explicit
// [WithPort] wins.
func ParseTarget(p Protocol, address string, opts ...TargetOption) (Target, error) {
	host, port, err := splitAddress(strings.TrimSpace(address))
	if err != nil {
		return Target{}, err
	}

	if port != 0 {
		opts = append([]TargetOption{WithPort(port)}, opts...)
	}
	return NewTarget(p, host, opts...)
}

func splitAddress(address string) (string, int, error) {
	if address == "" {
		return "", 0, errors.New("address cannot be empty")
	}

	// bracketed IPv6 without port
	if strings.HasPrefix(address, "[") && strings.HasSuffix(address, "]") {
		return address[1 : len(address)-1], 0, nil
	}

	// bare IPv6 literal
	if strings.Count(address, ":") > 1 && !strings.HasPrefix(address, "[") {
		return address, 0, nil
	}

	if !strings.Contains(address, ":") {
		return address, 0, nil
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q in address %q", portStr, address)
	}
	if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return host, port, nil
}
