package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"
)

// mockState tracks whether the mock server answers and when that changes.
type mockState struct {
	mu           sync.Mutex
	online       bool
	nextChangeAt time.Time
}

// StartMockJavaServer runs a loopback server speaking the Java status
// exchange. It flips between answering and dropping connections every
// 20-60 seconds, so the dashboard shows the offline backfill.
// Call this in a goroutine before creating the monitor.
func StartMockJavaServer(addr, motd string, maxPlayers int) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("mock server error", "error", err)
		return
	}

	state := &mockState{online: true, nextChangeAt: nextChange()}

	for {
		conn, err := ln.Accept()
		if err != nil {
			slog.Error("mock server accept", "error", err)
			return
		}
		go handleMockConn(conn, state, addr, motd, maxPlayers)
	}
}

func nextChange() time.Time {
	return time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
}

func handleMockConn(conn net.Conn, state *mockState, addr, motd string, maxPlayers int) {
	defer func() { _ = conn.Close() }()

	state.mu.Lock()
	if time.Now().After(state.nextChangeAt) {
		state.online = !state.online
		state.nextChangeAt = nextChange()
		slog.Info("mock server state change", "addr", addr, "online", state.online)
	}
	online := state.online
	state.mu.Unlock()

	if !online {
		return
	}

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	rd := bufio.NewReader(conn)

	// handshake, then status request
	for i := 0; i < 2; i++ {
		if _, err := readFrame(rd); err != nil {
			return
		}
	}

	doc, _ := json.Marshal(map[string]any{
		"version":     map[string]any{"name": "1.20.1", "protocol": 763},
		"players":     map[string]any{"online": rand.Intn(maxPlayers + 1), "max": maxPlayers},
		"description": map[string]any{"text": motd},
	})
	payload := binary.AppendUvarint(nil, uint64(len(doc)))
	payload = append(payload, doc...)
	if err := writeFrame(conn, 0x00, payload); err != nil {
		return
	}

	// ping: echo the payload back as the pong
	frame, err := readFrame(rd)
	if err != nil || len(frame) < 1 {
		return
	}
	time.Sleep(time.Duration(5+rand.Intn(40)) * time.Millisecond)
	_ = writeFrame(conn, 0x01, frame[1:])
}

// readFrame reads one length-prefixed frame: packet id plus payload.
func readFrame(rd *bufio.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(rd)
	if err != nil {
		return nil, err
	}
	if n > 1<<16 {
		return nil, errors.New("frame too large")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, id byte, payload []byte) error {
	body := append([]byte{id}, payload...)
	frame := binary.AppendUvarint(nil, uint64(len(body)))
	_, err := w.Write(append(frame, body...))
	return err
}
