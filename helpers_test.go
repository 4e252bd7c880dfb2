package mcpulse

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/mcpulse/internal/protocol"
	"github.com/jpalmerr/mcpulse/internal/status"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// probeCall records the arguments of one fakeClient probe.
type probeCall struct {
	host    string
	port    int
	timeout time.Duration
}

// fakeClient is a protocol.Client driven by a function.
type fakeClient struct {
	name  string
	probe func(ctx context.Context, host string, port int, timeout time.Duration) status.Result

	count atomic.Int32
	mu    sync.Mutex
	calls []probeCall
}

func (c *fakeClient) Probe(ctx context.Context, host string, port int, timeout time.Duration) status.Result {
	c.count.Add(1)
	c.mu.Lock()
	c.calls = append(c.calls, probeCall{host: host, port: port, timeout: timeout})
	c.mu.Unlock()
	return c.probe(ctx, host, port, timeout)
}

func (c *fakeClient) Name() string {
	return c.name
}

func (c *fakeClient) lastCall() probeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return probeCall{}
	}
	return c.calls[len(c.calls)-1]
}

// returning builds a fakeClient whose probes all return r.
func returning(r status.Result) *fakeClient {
	return &fakeClient{
		name: "fake",
		probe: func(context.Context, string, int, time.Duration) status.Result {
			return r
		},
	}
}

// scripted builds a fakeClient that returns each result in turn, repeating
// the last one.
func scripted(results ...status.Result) *fakeClient {
	var i atomic.Int32
	return &fakeClient{
		name: "fake",
		probe: func(context.Context, string, int, time.Duration) status.Result {
			n := int(i.Add(1)) - 1
			if n >= len(results) {
				n = len(results) - 1
			}
			return results[n]
		},
	}
}

// withClients replaces the protocol clients of a Poller.
func withClients(clients map[Protocol]protocol.Client) Option {
	return func(cfg *pollerConfig) error {
		cfg.clients = clients
		return nil
	}
}

// newTestPoller creates a Poller whose Java and Bedrock probes are fakes.
func newTestPoller(t *testing.T, java, bedrock protocol.Client, opts ...Option) *Poller {
	t.Helper()

	clients := map[Protocol]protocol.Client{}
	if java != nil {
		clients[ProtocolJava] = java
	}
	if bedrock != nil {
		clients[ProtocolBedrock] = bedrock
	}

	opts = append([]Option{WithLogger(testLogger()), withClients(clients)}, opts...)
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

// onlineResult is a typical online Java status with 5/20 players.
func onlineResult(motd string) status.Result {
	latency := 12 * time.Millisecond
	return status.Result{
		State:         status.Online,
		OnlinePlayers: 5,
		MaxPlayers:    20,
		Version:       status.StringPtr("1.20.1"),
		MOTD:          status.StringPtr(motd),
		Latency:       &latency,
		Favicon:       []byte{0x89, 'P', 'N', 'G'},
	}
}

func mustTarget(t *testing.T, p Protocol, address string, opts ...TargetOption) Target {
	t.Helper()
	target, err := ParseTarget(p, address, opts...)
	if err != nil {
		t.Fatalf("ParseTarget(%q) error = %v", address, err)
	}
	return target
}

func mustServer(t *testing.T, name string, target Target, opts ...ServerOption) Server {
	t.Helper()
	s, err := NewServer(name, target, opts...)
	if err != nil {
		t.Fatalf("NewServer(%q) error = %v", name, err)
	}
	return s
}
