package mcpulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/mcpulse/internal/isolate"
	"github.com/jpalmerr/mcpulse/internal/protocol"
	"github.com/jpalmerr/mcpulse/internal/status"
)

const (
	defaultIsolationMargin = isolate.DefaultMargin
	defaultBedrockTimeout  = protocol.DefaultBedrockTimeout
	defaultPingAllLimit    = 10
)

// Poller probes game servers and keeps their last known status.
//
// A Poller is safe for concurrent use. Probes for distinct targets run
// independently; the only shared state is the [Cache], which serializes
// writes per address.
//
//	p, err := mcpulse.New()
//	if err != nil {
//	    return err
//	}
//	t, _ := mcpulse.ParseTarget(mcpulse.ProtocolJava, "play.example.com")
//	res, err := p.Ping(ctx, t)
type Poller struct {
	logger         *slog.Logger
	cache          *Cache
	runner         *isolate.Runner
	clients        map[Protocol]protocol.Client
	bedrockTimeout time.Duration
}

// New creates a [Poller].
//
// Defaults:
//   - Logger: slog.Default()
//   - Cache: a new private cache
//   - Isolation margin: 2 seconds
//   - Bedrock timeout: 5 seconds
//   - Java latency: measured
func New(opts ...Option) (*Poller, error) {
	cfg := &pollerConfig{
		isolationMargin: defaultIsolationMargin,
		bedrockTimeout:  defaultBedrockTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	cache := cfg.cache
	if cache == nil {
		cache = NewCache()
	}

	java := protocol.NewJavaClient()
	java.SkipLatency = cfg.skipLatency

	bedrock := protocol.NewBedrockClient()
	bedrock.Timeout = cfg.bedrockTimeout

	clients := map[Protocol]protocol.Client{
		ProtocolJava:    java,
		ProtocolBedrock: bedrock,
	}
	for p, c := range cfg.clients {
		clients[p] = c
	}

	return &Poller{
		logger:         logger,
		cache:          cache,
		runner:         isolate.New(logger, cfg.isolationMargin),
		clients:        clients,
		bedrockTimeout: cfg.bedrockTimeout,
	}, nil
}

// Cache returns the poller's status cache.
func (p *Poller) Cache() *Cache {
	return p.cache
}

// Ping runs exactly one probe against t.
//
// Unreachable or incompatible servers produce a normal result with
// [StateOffline]; the returned result is what this probe observed, while
// the cache entry it writes may keep descriptive fields from earlier
// observations (see [Cache]).
//
// The error is a *[ProbeExecutionError] when the probe panicked or never
// reported, or ctx.Err() when the caller gave up first. In both cases the
// cache is left untouched.
//
// By default the probe runs isolated in its own goroutine, bounded by the
// protocol timeout plus the isolation margin, and its result is cached.
// See [WithoutIsolation] and [WithoutCache].
func (p *Poller) Ping(ctx context.Context, t Target, opts ...PingOption) (StatusResult, error) {
	res, err := p.ping(ctx, t, opts...)
	if err != nil {
		return StatusResult{}, err
	}
	return toPublicResult(res), nil
}

// ping is Ping without the conversion to the public type.
func (p *Poller) ping(ctx context.Context, t Target, opts ...PingOption) (status.Result, error) {
	if t.IsZero() {
		return status.Result{}, errors.New("target is not initialized")
	}

	po := pingOptions{isolate: true, cache: true}
	for _, opt := range opts {
		opt(&po)
	}

	client, ok := p.clients[t.protocol]
	if !ok {
		return status.Result{}, fmt.Errorf("no client for protocol %q", t.protocol)
	}

	address := t.Address()
	job := isolate.Job{
		Address: address,
		Bound:   p.bound(t),
		Probe: func(ctx context.Context) status.Result {
			return client.Probe(ctx, t.host, t.port, t.timeout)
		},
	}

	var (
		res status.Result
		err error
	)
	if po.isolate {
		res, err = p.runner.Run(ctx, job)
	} else {
		res, err = p.runner.Inline(ctx, job)
	}
	if err != nil {
		return status.Result{}, asProbeExecutionError(err)
	}

	res = normalize(res)

	if po.cache {
		p.cache.store.Put(address, res)
	}

	logAttrs := []any{
		"address", address,
		"protocol", client.Name(),
		"state", string(res.State),
	}
	if res.Latency != nil {
		logAttrs = append(logAttrs, "latency_ms", res.Latency.Milliseconds())
	}
	p.logger.Debug("probe completed", logAttrs...)

	return res, nil
}

// PingAll probes every target with at most limit probes in flight and
// returns results in input order. A non-positive limit means 10.
//
// The error is the first failure encountered. The other probes still run
// to completion, so their entries in the result slice are valid; a failed
// target's entry is the zero value.
func (p *Poller) PingAll(ctx context.Context, targets []Target, limit int, opts ...PingOption) ([]StatusResult, error) {
	if limit <= 0 {
		limit = defaultPingAllLimit
	}

	results := make([]StatusResult, len(targets))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, t := range targets {
		g.Go(func() error {
			res, err := p.Ping(ctx, t, opts...)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	return results, g.Wait()
}

// Cached returns the cache entry for t.
func (p *Poller) Cached(t Target) (StatusResult, bool) {
	return p.cache.Get(t.Address())
}

// bound is the wall-clock time the probe itself may take.
func (p *Poller) bound(t Target) time.Duration {
	if t.protocol == ProtocolBedrock {
		return p.bedrockTimeout
	}
	return t.timeout
}

// normalize stamps the observation time and enforces zero counts offline.
func normalize(r status.Result) status.Result {
	if r.ObservedAt.IsZero() {
		r.ObservedAt = time.Now()
	}
	if r.State != status.Online {
		r.State = status.Offline
		r.OnlinePlayers = 0
		r.MaxPlayers = 0
	}
	return r
}
