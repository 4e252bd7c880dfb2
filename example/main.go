package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/mcpulse"
)

func main() {
	// start mock servers (see mock_server.go)
	go StartMockJavaServer("127.0.0.1:25601", "Lobby", 50)
	go StartMockJavaServer("127.0.0.1:25602", "Survival", 20)
	time.Sleep(100 * time.Millisecond)

	// grid: 2 shards from one declaration
	servers, err := mcpulse.NewServerGrid("Shard", mcpulse.ProtocolJava,
		mcpulse.WithAddressTemplate("127.0.0.1:{{.port}}"),
		mcpulse.WithDimensions(map[string][]string{
			"port": {"25601", "25602"},
		}),
		mcpulse.WithGridLabels("network", "demo"),
	)
	if err != nil {
		slog.Error("failed to create server grid", "error", err)
		os.Exit(1)
	}

	// a bedrock server nobody runs, to show an offline card
	target, _ := mcpulse.ParseTarget(mcpulse.ProtocolBedrock, "127.0.0.1:19199")
	missing, _ := mcpulse.NewServer("Bedrock (absent)", target, mcpulse.WithInterval(30*time.Second))
	servers = append(servers, missing)

	p, err := mcpulse.New()
	if err != nil {
		slog.Error("failed to create poller", "error", err)
		os.Exit(1)
	}

	m, err := mcpulse.NewMonitor(p,
		mcpulse.WithServers(servers...),
		mcpulse.WithPollingInterval(5*time.Second),
		mcpulse.WithHTTPPort(8080),
		mcpulse.WithTitle("mcpulse demo"),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  mcpulse demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Servers: 2 mock Java shards (grid), 1 absent Bedrock server")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("mcpulse error", "error", err)
		os.Exit(1)
	}
}
