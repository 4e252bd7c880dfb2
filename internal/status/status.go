// Package status holds the normalized probe outcome shared by the protocol
// clients, the isolated prober and the status store.
//
// It is a leaf package so that none of those packages need to import each
// other or the public mcpulse package.
package status

import "time"

// State is the reachability of a server as observed by one probe.
type State string

const (
	// Online means the server answered a status exchange.
	Online State = "online"

	// Offline covers every failure: refused, timed out, malformed or
	// incompatible responses are all reported the same way.
	Offline State = "offline"
)

// Result is the normalized outcome of one probe.
//
// When State is Offline the player counts are always zero. Version, MOTD,
// Favicon and Latency are optional and nil when unknown.
type Result struct {
	State         State
	MaxPlayers    int
	OnlinePlayers int
	Version       *string
	Latency       *time.Duration
	MOTD          *string
	Favicon       []byte
	ObservedAt    time.Time
}

// OfflineAt returns an offline result with every optional field empty.
func OfflineAt(t time.Time) Result {
	return Result{State: Offline, ObservedAt: t}
}

// Clone returns a deep copy, so callers can hand results across goroutines
// without sharing the favicon buffer or pointer fields.
func (r Result) Clone() Result {
	cp := r
	if r.Version != nil {
		v := *r.Version
		cp.Version = &v
	}
	if r.Latency != nil {
		l := *r.Latency
		cp.Latency = &l
	}
	if r.MOTD != nil {
		m := *r.MOTD
		cp.MOTD = &m
	}
	if r.Favicon != nil {
		cp.Favicon = append([]byte(nil), r.Favicon...)
	}
	return cp
}

// StringPtr returns nil for the empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
