// Package mcpulse polls Minecraft servers for their status over the Java
// (TCP) and Bedrock (UDP) status exchanges, and keeps the last known status
// of every address.
//
// mcpulse is SDK-first: values are immutable, configuration uses functional
// options, and the standalone binary in cmd/mcpulse is a thin layer over
// this package.
//
// # Quick Start
//
// Probe one server:
//
//	p, _ := mcpulse.New()
//	t, _ := mcpulse.ParseTarget(mcpulse.ProtocolJava, "play.example.com")
//
//	res, err := p.Ping(ctx, t)
//	if err != nil {
//	    // the probe itself failed; the server state is unknown
//	}
//	if res.Online() {
//	    fmt.Printf("%d/%d players\n", res.OnlinePlayers, res.MaxPlayers)
//	}
//
// # Results and errors
//
// Every reachability failure (refused connection, timeout, DNS failure,
// malformed or incompatible response) is reported as a normal
// [StatusResult] with [StateOffline]. [Poller.Ping] returns an error only
// when the probe could not be carried out, as a *[ProbeExecutionError], or
// when the caller's context ended first.
//
// # Isolation
//
// By default each probe runs in its own goroutine and the poller waits at
// most the protocol timeout plus an isolation margin for its one reply. A
// probe that panics or never replies becomes a [ProbeExecutionError]
// instead of stalling the caller. [WithoutIsolation] runs the probe inline.
//
// # Cache
//
// Each [Poller] writes its results to a [Cache] keyed by [Target.Address].
// When a server goes offline its cache entry keeps the last known version,
// MOTD, favicon and latency, with player counts set to zero. An online
// result replaces the entry.
//
// # Monitoring
//
// A [Monitor] polls a fixed list of [Server] values on an interval and
// serves a live dashboard:
//
//	m, _ := mcpulse.NewMonitor(p,
//	    mcpulse.WithServers(lobby, survival),
//	    mcpulse.WithPollingInterval(30*time.Second),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until context is cancelled
//
// # Architecture
//
//   - internal/protocol: the Java and Bedrock status clients
//   - internal/isolate: goroutine-per-probe execution with a wall-clock bound
//   - internal/store: the address-keyed cache with pub/sub for live views
//   - internal/poller: interval scheduler with a bounded worker pool
//   - internal/server: HTTP API, Server-Sent Events and the dashboard
//   - dashboard: embedded web UI assets
//
// The internal packages are not part of the public API.
package mcpulse
