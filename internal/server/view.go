package server

import (
	"time"

	"github.com/jpalmerr/mcpulse/internal/status"
)

// ServerInfo describes one configured server for presentation.
type ServerInfo struct {
	Name     string
	Address  string
	Protocol string
	Labels   map[string]string

	// LastError is the message of the most recent failed probe, empty
	// when the last probe produced a status.
	LastError string
}

// StatusView is the JSON shape of one server on the API and SSE stream.
//
// State is null until the server's address has been probed once.
type StatusView struct {
	Name          string            `json:"name"`
	Address       string            `json:"address"`
	Protocol      string            `json:"protocol"`
	Labels        map[string]string `json:"labels"`
	State         *string           `json:"state"`
	OnlinePlayers int               `json:"online_players"`
	MaxPlayers    int               `json:"max_players"`
	Version       *string           `json:"version"`
	MOTD          *string           `json:"motd"`
	LatencyMs     *int64            `json:"latency_ms"`
	HasFavicon    bool              `json:"has_favicon"`
	ObservedAt    *time.Time        `json:"observed_at"`
	Error         *string           `json:"error"`
}

// LookupView is the JSON shape of an ad-hoc lookup.
type LookupView struct {
	Protocol      string    `json:"protocol"`
	Address       string    `json:"address"`
	State         string    `json:"state"`
	OnlinePlayers int       `json:"online_players"`
	MaxPlayers    int       `json:"max_players"`
	Version       *string   `json:"version"`
	MOTD          *string   `json:"motd"`
	LatencyMs     *int64    `json:"latency_ms"`
	ObservedAt    time.Time `json:"observed_at"`
}

func newStatusView(info ServerInfo, r status.Result, known bool) StatusView {
	v := StatusView{
		Name:     info.Name,
		Address:  info.Address,
		Protocol: info.Protocol,
		Labels:   info.Labels,
	}
	if info.LastError != "" {
		msg := info.LastError
		v.Error = &msg
	}
	if !known {
		return v
	}

	state := string(r.State)
	observed := r.ObservedAt
	v.State = &state
	v.OnlinePlayers = r.OnlinePlayers
	v.MaxPlayers = r.MaxPlayers
	v.Version = r.Version
	v.MOTD = r.MOTD
	v.LatencyMs = latencyMillis(r.Latency)
	v.HasFavicon = len(r.Favicon) > 0
	v.ObservedAt = &observed
	return v
}

func newLookupView(protocol, address string, r status.Result) LookupView {
	return LookupView{
		Protocol:      protocol,
		Address:       address,
		State:         string(r.State),
		OnlinePlayers: r.OnlinePlayers,
		MaxPlayers:    r.MaxPlayers,
		Version:       r.Version,
		MOTD:          r.MOTD,
		LatencyMs:     latencyMillis(r.Latency),
		ObservedAt:    r.ObservedAt,
	}
}

func latencyMillis(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}
