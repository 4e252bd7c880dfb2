package mcpulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/mcpulse/dashboard"
	"github.com/jpalmerr/mcpulse/internal/poller"
	"github.com/jpalmerr/mcpulse/internal/server"
	"github.com/jpalmerr/mcpulse/internal/status"
)

const (
	defaultPollingInterval = 30 * time.Second
	defaultHTTPPort        = 8080
	defaultMaxConcurrency  = 10
	defaultLookupRate      = 1.0
	defaultLookupBurst     = 3
)

// ErrUnknownServer is returned by [Monitor.Refresh] for a name that is not
// configured.
var ErrUnknownServer = server.ErrUnknownServer

// PollEvent is the outcome of one scheduled poll, delivered to status
// callbacks.
type PollEvent struct {
	// Server is the polled server.
	Server Server

	// Result is what the probe observed. It is the zero value when Err is
	// set.
	Result StatusResult

	// Err is a *[ProbeExecutionError] when the probe could not be carried
	// out. An offline server is not an error.
	Err error

	// Duration is how long the poll took.
	Duration time.Duration
}

// Monitor polls a fixed set of servers on an interval and serves a live
// dashboard of their cached status.
//
// Probes go through the [Poller] given to [NewMonitor], so the dashboard
// shows exactly what [Poller.Cached] would return. The typical lifecycle is:
//
//	p, _ := mcpulse.New()
//	m, err := mcpulse.NewMonitor(p, mcpulse.WithServer(lobby))
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
type Monitor struct {
	title           string
	servers         []Server
	byName          map[string]Server
	pollingInterval time.Duration
	port            int
	maxConcurrency  int
	poller          *Poller
	logger          *slog.Logger
	statusCallbacks []func(PollEvent)
	lookupRate      float64
	lookupBurst     int
	pingOpts        []PingOption

	mu      sync.Mutex
	lastErr map[string]string
}

// NewMonitor creates a [Monitor] that probes through p.
//
// At least one server must be configured via [WithServer] or [WithServers],
// and display names must be unique. Defaults:
//   - Polling interval: 30 seconds
//   - HTTP port: 8080
//   - Max concurrency: 10
//   - Lookups: 1 per second per client IP, burst 3
//   - Probe isolation: on
func NewMonitor(p *Poller, opts ...MonitorOption) (*Monitor, error) {
	if p == nil {
		return nil, errors.New("poller cannot be nil")
	}

	cfg := &monitorConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultHTTPPort,
		maxConcurrency:  defaultMaxConcurrency,
		lookupRate:      defaultLookupRate,
		lookupBurst:     defaultLookupBurst,
		isolation:       true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.servers) == 0 {
		return nil, errors.New("at least one server is required")
	}

	// names key the scheduler's per-server timing and the refresh route
	byName := make(map[string]Server, len(cfg.servers))
	for _, s := range cfg.servers {
		if _, dup := byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate server name: %q", s.Name())
		}
		byName[s.Name()] = s
	}

	var pingOpts []PingOption
	if !cfg.isolation {
		pingOpts = append(pingOpts, WithoutIsolation())
	}

	return &Monitor{
		title:           cfg.title,
		servers:         cfg.servers,
		byName:          byName,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		maxConcurrency:  cfg.maxConcurrency,
		poller:          p,
		logger:          p.logger,
		statusCallbacks: cfg.statusCallbacks,
		lookupRate:      cfg.lookupRate,
		lookupBurst:     cfg.lookupBurst,
		pingOpts:        pingOpts,
		lastErr:         make(map[string]string),
	}, nil
}

// Servers returns a copy of the configured servers.
func (m *Monitor) Servers() []Server {
	cp := make([]Server, len(m.servers))
	copy(cp, m.servers)
	return cp
}

// Port returns the dashboard's HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// PollingInterval returns the default interval between polls of a server.
func (m *Monitor) PollingInterval() time.Duration {
	return m.pollingInterval
}

// Start begins polling servers and serving the dashboard.
//
// Start blocks until ctx is cancelled. Every server is polled immediately,
// then whenever its interval has elapsed. Returns nil on graceful shutdown
// and an error if the HTTP server fails to start.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("mcpulse starting", "server_count", len(m.servers))
	m.logger.Info("polling configured", "interval", m.pollingInterval.String())
	m.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", m.port))

	if ctx.Err() != nil {
		return nil
	}

	scheduler := poller.NewScheduler(m.schedulerServers(), m.pollingInterval, m.maxConcurrency, m.poll, m.logger)
	scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			m.handleResult(result)
		}
	}()

	cleanup := func() {
		scheduler.Stop()
		wg.Wait()
	}

	httpServer := server.NewServer(m.poller.cache.store, monitorBackend{m: m}, m.port, dashboard.Assets, m.title, m.logger,
		server.WithLookupLimit(rate.Limit(m.lookupRate), m.lookupBurst),
	)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	m.logger.Info("mcpulse stopped")
	return nil
}

// Refresh probes the named server once, outside its schedule, and returns
// what the probe observed. The cache is updated as for a scheduled poll.
func (m *Monitor) Refresh(ctx context.Context, name string) (StatusResult, error) {
	res, err := m.refresh(ctx, name)
	if err != nil {
		return StatusResult{}, err
	}
	return toPublicResult(res), nil
}

func (m *Monitor) refresh(ctx context.Context, name string) (status.Result, error) {
	s, ok := m.byName[name]
	if !ok {
		return status.Result{}, fmt.Errorf("%w: %q", ErrUnknownServer, name)
	}
	res, err := m.poller.ping(ctx, s.target, m.pingOpts...)
	m.recordErr(name, err)
	return res, err
}

// poll is the scheduler's probe.
func (m *Monitor) poll(ctx context.Context, name string) (status.Result, error) {
	s, ok := m.byName[name]
	if !ok {
		return status.Result{}, fmt.Errorf("%w: %q", ErrUnknownServer, name)
	}
	return m.poller.ping(ctx, s.target, m.pingOpts...)
}

func (m *Monitor) handleResult(result poller.Result) {
	m.recordErr(result.Name, result.Err)

	s := m.byName[result.Name]
	if len(m.statusCallbacks) > 0 {
		ev := PollEvent{Server: s, Err: result.Err, Duration: result.Duration}
		if result.Err == nil {
			ev.Result = toPublicResult(result.Status)
		}
		for _, cb := range m.statusCallbacks {
			invokeCallbackSafe(cb, ev, m.logger)
		}
	}

	logAttrs := []any{
		"server", result.Name,
		"address", result.Address,
		"duration_ms", result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		m.logger.Warn("poll failed", append(logAttrs, "error", result.Err.Error())...)
		return
	}
	m.logger.Debug("poll completed", append(logAttrs, "state", string(result.Status.State))...)
}

func (m *Monitor) recordErr(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.lastErr, name)
		return
	}
	m.lastErr[name] = err.Error()
}

func (m *Monitor) schedulerServers() []poller.ServerInfo {
	out := make([]poller.ServerInfo, len(m.servers))
	for i, s := range m.servers {
		out[i] = poller.ServerInfo{
			Name:     s.Name(),
			Address:  s.target.Address(),
			Interval: s.interval,
		}
	}
	return out
}

// invokeCallbackSafe calls a status callback with panic recovery.
func invokeCallbackSafe(cb func(PollEvent), ev PollEvent, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"server", ev.Server.Name(),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(ev)
}

// monitorBackend exposes a Monitor to the HTTP server.
type monitorBackend struct {
	m *Monitor
}

func (b monitorBackend) Servers() []server.ServerInfo {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()

	out := make([]server.ServerInfo, len(b.m.servers))
	for i, s := range b.m.servers {
		out[i] = server.ServerInfo{
			Name:      s.Name(),
			Address:   s.target.Address(),
			Protocol:  s.target.protocol.String(),
			Labels:    s.Labels(),
			LastError: b.m.lastErr[s.Name()],
		}
	}
	return out
}

func (b monitorBackend) Refresh(ctx context.Context, name string) error {
	_, err := b.m.refresh(ctx, name)
	return err
}

func (b monitorBackend) Lookup(ctx context.Context, protocol, address string) (server.LookupResult, error) {
	if protocol == "" {
		protocol = ProtocolJava.String()
	}
	p, err := ParseProtocol(protocol)
	if err != nil {
		return server.LookupResult{}, fmt.Errorf("%w: %v", server.ErrInvalidLookup, err)
	}
	t, err := ParseTarget(p, address)
	if err != nil {
		return server.LookupResult{}, fmt.Errorf("%w: %v", server.ErrInvalidLookup, err)
	}

	opts := append([]PingOption{WithoutCache()}, b.m.pingOpts...)
	res, err := b.m.poller.ping(ctx, t, opts...)
	if err != nil {
		return server.LookupResult{}, err
	}
	return server.LookupResult{Protocol: p.String(), Address: t.Address(), Status: res}, nil
}
