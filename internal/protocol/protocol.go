package protocol

import (
	"context"
	"time"

	"github.com/jpalmerr/mcpulse/internal/status"
)

// Client performs one status exchange against one address.
//
// Probe must honour ctx cancellation and must not block longer than its own
// bound: timeout for clients with a configurable bound, a fixed internal
// bound otherwise. It always returns a result.
type Client interface {
	// Probe runs the exchange against host:port.
	Probe(ctx context.Context, host string, port int, timeout time.Duration) status.Result

	// Name returns the short protocol name used in logs.
	Name() string
}

var (
	_ Client = (*JavaClient)(nil)
	_ Client = (*BedrockClient)(nil)
)
