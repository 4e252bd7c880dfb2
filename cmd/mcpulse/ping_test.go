package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/mcpulse"
)

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func strPtr(s string) *string { return &s }

func TestBuildTargets(t *testing.T) {
	targets, err := buildTargets("java", 2*time.Second, []string{"Play.Example.com", "b.example.com:25570"})
	if err != nil {
		t.Fatalf("buildTargets() error = %v", err)
	}
	if targets[0].Address() != "play.example.com:25565" || targets[1].Port() != 25570 {
		t.Errorf("targets = %v, %v", targets[0], targets[1])
	}
	if targets[0].Timeout() != 2*time.Second {
		t.Errorf("Timeout() = %v, want 2s", targets[0].Timeout())
	}

	bedrock, err := buildTargets("udp", 0, []string{"be.example.com"})
	if err != nil {
		t.Fatalf("buildTargets() error = %v", err)
	}
	if bedrock[0].Address() != "be.example.com:19132" {
		t.Errorf("Address() = %q", bedrock[0].Address())
	}
}

func TestBuildTargets_Errors(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		timeout  time.Duration
		addrs    []string
	}{
		{"unknown protocol", "quake3", 0, []string{"a.example.com"}},
		{"bad port", "java", 0, []string{"a.example.com:0"}},
		{"bedrock timeout", "bedrock", time.Second, []string{"be.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildTargets(tt.protocol, tt.timeout, tt.addrs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewPingReports(t *testing.T) {
	targets, err := buildTargets("java", 0, []string{"a.example.com", "b.example.com", "c.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	latency := 12 * time.Millisecond
	results := []mcpulse.StatusResult{
		{State: mcpulse.StateOnline, OnlinePlayers: 5, MaxPlayers: 20, Version: strPtr("1.20.1"), MOTD: strPtr("Hello"), Latency: &latency},
		{State: mcpulse.StateOffline},
		{},
	}

	reports := newPingReports(targets, results)

	if reports[0].State != "online" || reports[0].Online != 5 || *reports[0].LatencyMS != 12 {
		t.Errorf("reports[0] = %+v", reports[0])
	}
	if reports[1].State != "offline" || reports[1].LatencyMS != nil {
		t.Errorf("reports[1] = %+v", reports[1])
	}
	if reports[2].State != "unknown" {
		t.Errorf("reports[2].State = %q, want unknown", reports[2].State)
	}
}

func TestWriteText(t *testing.T) {
	ms := int64(12)
	reports := []pingReport{
		{Address: "a.example.com:25565", Protocol: "java", State: "online", Online: 5, Max: 20, Version: strPtr("1.20.1"), MOTD: strPtr("Hello"), LatencyMS: &ms},
		{Address: "b.example.com:19132", Protocol: "bedrock", State: "offline"},
	}

	var buf bytes.Buffer
	if err := writeText(&buf, reports); err != nil {
		t.Fatalf("writeText() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"a.example.com:25565", "5/20", "1.20.1", "12ms", "Hello"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("online line missing %q: %q", want, lines[1])
		}
	}
	if strings.Count(lines[2], "-") < 4 {
		t.Errorf("offline line should dash missing fields: %q", lines[2])
	}
}

func TestWriteJSON(t *testing.T) {
	reports := []pingReport{{Address: "b.example.com:19132", Protocol: "bedrock", State: "offline"}}

	var buf bytes.Buffer
	if err := writeJSON(&buf, reports); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got[0]["state"] != "offline" {
		t.Errorf("state = %v", got[0]["state"])
	}
	if _, ok := got[0]["version"]; ok {
		t.Error("nil version should be omitted")
	}
}

func TestRunPing_RefusedIsOffline(t *testing.T) {
	addr := fmt.Sprintf("127.0.0.1:%d", closedPort(t))

	output, err := executeCmd(t, "ping", "--json", "--timeout", "1s", addr)
	if err != nil {
		t.Fatalf("ping command error = %v", err)
	}

	var got []pingReport
	if err := json.Unmarshal([]byte(output), &got); err != nil {
		t.Fatalf("invalid JSON output %q: %v", output, err)
	}
	if len(got) != 1 || got[0].State != "offline" || got[0].Address != addr {
		t.Errorf("reports = %+v", got)
	}
}

func TestRunPing_RequiresAddress(t *testing.T) {
	if _, err := executeCmd(t, "ping"); err == nil {
		t.Error("ping without arguments should fail")
	}
}

// statusServer is a loopback Java status server that counts ping packets.
type statusServer struct {
	ln    net.Listener
	pings atomic.Int32
}

func startStatusServer(t *testing.T, doc string) *statusServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := &statusServer{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.handle(conn, doc)
		}
	}()
	return s
}

func (s *statusServer) addr() string {
	return s.ln.Addr().String()
}

func (s *statusServer) handle(conn net.Conn, doc string) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	rd := bufio.NewReader(conn)

	// handshake, then status request
	for i := 0; i < 2; i++ {
		if _, err := readTestFrame(rd); err != nil {
			return
		}
	}

	payload := append([]byte{0x00}, binary.AppendUvarint(nil, uint64(len(doc)))...)
	payload = append(payload, doc...)
	if err := writeTestFrame(conn, payload); err != nil {
		return
	}

	ping, err := readTestFrame(rd)
	if err != nil || len(ping) == 0 || ping[0] != 0x01 {
		return
	}
	s.pings.Add(1)
	_ = writeTestFrame(conn, ping)
}

func readTestFrame(rd *bufio.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(rd)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	_, err = io.ReadFull(rd, buf)
	return buf, err
}

func writeTestFrame(w io.Writer, payload []byte) error {
	frame := binary.AppendUvarint(nil, uint64(len(payload)))
	_, err := w.Write(append(frame, payload...))
	return err
}

func TestRunPing_LatencyFlag(t *testing.T) {
	const doc = `{"version":{"name":"1.20.1"},"players":{"online":5,"max":20},"description":"Welcome"}`

	tests := []struct {
		name        string
		flag        string
		wantPings   int32
		wantLatency bool
	}{
		{"measured", "--no-latency=false", 1, true},
		{"skipped", "--no-latency", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startStatusServer(t, doc)

			output, err := executeCmd(t, "ping", "--json", "--timeout", "2s", tt.flag, srv.addr())
			if err != nil {
				t.Fatalf("ping command error = %v", err)
			}

			var got []pingReport
			if err := json.Unmarshal([]byte(output), &got); err != nil {
				t.Fatalf("invalid JSON output %q: %v", output, err)
			}
			if len(got) != 1 || got[0].State != "online" || got[0].Online != 5 || got[0].Max != 20 {
				t.Fatalf("reports = %+v", got)
			}
			if (got[0].LatencyMS != nil) != tt.wantLatency {
				t.Errorf("LatencyMS = %v, want present=%v", got[0].LatencyMS, tt.wantLatency)
			}
			if n := srv.pings.Load(); n != tt.wantPings {
				t.Errorf("server saw %d pings, want %d", n, tt.wantPings)
			}
		})
	}
}
