package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// javaServerBehavior controls how fakeJavaServer answers.
type javaServerBehavior struct {
	// statusJSON is sent as the status response document.
	statusJSON string
	// rawStatus, when set, replaces the framed status response entirely.
	rawStatus []byte
	// pong controls the ping step: "echo", "close", "wrong" or "silent".
	pong string
	// stall makes the server accept and never answer.
	stall bool
}

// fakeJavaServer is a loopback TCP listener speaking just enough of the
// status protocol for the client tests.
type fakeJavaServer struct {
	ln        net.Listener
	behavior  javaServerBehavior
	wg        sync.WaitGroup
	mu        sync.Mutex
	handshake []byte
}

func startFakeJavaServer(t *testing.T, behavior javaServerBehavior) *fakeJavaServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &fakeJavaServer{ln: ln, behavior: behavior}
	s.wg.Add(1)
	go s.serve()

	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeJavaServer) hostPort(t *testing.T) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func (s *fakeJavaServer) lastHandshake() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.handshake...)
}

func (s *fakeJavaServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { _ = conn.Close() }()
			s.handle(conn)
		}()
	}
}

func (s *fakeJavaServer) handle(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	rd := bufio.NewReader(conn)

	id, payload, err := readPacket(rd, 1024)
	if err != nil || id != packetHandshake {
		return
	}
	s.mu.Lock()
	s.handshake = payload
	s.mu.Unlock()

	if id, _, err = readPacket(rd, 1024); err != nil || id != packetStatus {
		return
	}

	if s.behavior.stall {
		// hold the connection open until the client gives up
		_, _ = rd.ReadByte()
		return
	}

	if s.behavior.rawStatus != nil {
		_, _ = conn.Write(s.behavior.rawStatus)
		return
	}
	if err := writePacket(conn, packetStatus, appendString(nil, s.behavior.statusJSON)); err != nil {
		return
	}

	id, payload, err = readPacket(rd, 64)
	if err != nil || id != packetPing {
		return
	}

	switch s.behavior.pong {
	case "close":
		return
	case "wrong":
		_ = writePacket(conn, packetPing, appendInt64(nil, int64(binary.BigEndian.Uint64(payload))+1))
	case "silent":
		_, _ = rd.ReadByte()
	default:
		_ = writePacket(conn, packetPing, payload)
	}
}

// fakeBedrockServer answers unconnected pings with a fixed advertisement.
type fakeBedrockServer struct {
	conn  net.PacketConn
	reply func(ping []byte) []byte
	wg    sync.WaitGroup
	mu    sync.Mutex
	pings [][]byte
}

func startFakeBedrockServer(t *testing.T, reply func(ping []byte) []byte) *fakeBedrockServer {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	s := &fakeBedrockServer{conn: conn, reply: reply}
	s.wg.Add(1)
	go s.serve()

	t.Cleanup(func() {
		_ = conn.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeBedrockServer) hostPort(t *testing.T) (string, int) {
	t.Helper()
	addr := s.conn.LocalAddr().(*net.UDPAddr)
	return addr.IP.String(), addr.Port
}

func (s *fakeBedrockServer) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

func (s *fakeBedrockServer) serve() {
	defer s.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		ping := append([]byte(nil), buf[:n]...)
		s.mu.Lock()
		s.pings = append(s.pings, ping)
		s.mu.Unlock()

		if s.reply == nil {
			continue
		}
		if out := s.reply(ping); out != nil {
			_, _ = s.conn.WriteTo(out, addr)
		}
	}
}

// pongFor builds a well-formed unconnected pong answering ping.
func pongFor(ping []byte, advertisement string) []byte {
	var b bytes.Buffer
	b.WriteByte(raknetUnconnectedPong)
	if len(ping) >= 9 {
		b.Write(ping[1:9])
	} else {
		b.Write(make([]byte, 8))
	}
	_ = binary.Write(&b, binary.BigEndian, uint64(0xabcdef))
	b.Write(raknetMagic)
	_ = binary.Write(&b, binary.BigEndian, uint16(len(advertisement)))
	b.WriteString(advertisement)
	return b.Bytes()
}

// closedPort returns a loopback port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}
