package mcpulse

import (
	"time"

	"github.com/jpalmerr/mcpulse/internal/status"
)

// State is the reachability of a server as seen by one probe.
//
// There are exactly two states. Refused connections, timeouts, DNS failures
// and malformed or incompatible responses are all [StateOffline].
type State string

const (
	// StateOnline means the server completed a status exchange.
	StateOnline State = "online"

	// StateOffline means the server could not be reached or did not answer
	// with a usable status.
	StateOffline State = "offline"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// StatusResult is the normalized outcome of one probe.
//
// An offline result always has zero player counts. Version, MOTD and
// Favicon may still be set on an offline entry read back from the cache,
// where they carry the last online observation for that address.
type StatusResult struct {
	// State is online or offline.
	State State

	// MaxPlayers is the advertised slot count; zero when offline.
	MaxPlayers int

	// OnlinePlayers is the current player count; zero when offline.
	OnlinePlayers int

	// Version is the advertised version name, nil when unknown.
	Version *string

	// Latency is the ping round trip. Only Java probes measure it.
	Latency *time.Duration

	// MOTD is the plain text of the server description, nil when empty.
	MOTD *string

	// Favicon is the decoded server icon (PNG). Only Java servers send one.
	Favicon []byte

	// ObservedAt is when the result was finalized.
	ObservedAt time.Time
}

// Online reports whether the state is [StateOnline].
func (r StatusResult) Online() bool {
	return r.State == StateOnline
}

// LatencyMillis returns the latency in whole milliseconds and whether it
// was measured.
func (r StatusResult) LatencyMillis() (int64, bool) {
	if r.Latency == nil {
		return 0, false
	}
	return r.Latency.Milliseconds(), true
}

// toPublicResult converts the internal result, copying pointer fields and
// the favicon so the caller owns what it receives.
func toPublicResult(r status.Result) StatusResult {
	cp := r.Clone()
	return StatusResult{
		State:         State(cp.State),
		MaxPlayers:    cp.MaxPlayers,
		OnlinePlayers: cp.OnlinePlayers,
		Version:       cp.Version,
		Latency:       cp.Latency,
		MOTD:          cp.MOTD,
		Favicon:       cp.Favicon,
		ObservedAt:    cp.ObservedAt,
	}
}
