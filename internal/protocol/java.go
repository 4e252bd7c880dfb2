package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/mcpulse/internal/status"
)

const (
	// DefaultJavaTimeout bounds the whole exchange when the caller passes zero.
	DefaultJavaTimeout = 5 * time.Second

	// DefaultJavaPort is the conventional Java edition port.
	DefaultJavaPort = 25565

	handshakeProtocolVersion = 47
	nextStateStatus          = 1

	packetHandshake = 0x00
	packetStatus    = 0x00
	packetPing      = 0x01

	// status payloads carry a base64 favicon, so allow far more than a chat
	// packet but still refuse absurd frames
	maxStatusPacketSize = 2 << 20
)

// JavaClient performs the TCP status exchange.
type JavaClient struct {
	// SkipLatency disables the ping/pong step after the status response.
	SkipLatency bool
}

// NewJavaClient returns a [JavaClient] that measures latency.
func NewJavaClient() *JavaClient {
	return &JavaClient{}
}

// Name returns "java".
func (c *JavaClient) Name() string {
	return "java"
}

// statusResponse is the JSON document carried by the status response.
// Players is a pointer so that a missing object can be told apart from
// an empty server.
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players *struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     json.RawMessage `json:"favicon"`
}

// Probe connects to host:port and runs handshake, status request and,
// unless SkipLatency is set, a ping. A failed ping keeps the status outcome
// and only drops the latency.
func (c *JavaClient) Probe(ctx context.Context, host string, port int, timeout time.Duration) status.Result {
	if timeout <= 0 {
		timeout = DefaultJavaTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return status.OfflineAt(time.Now())
	}
	defer func() { _ = conn.Close() }()

	// unblock pending reads when the caller goes away
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	rd := bufio.NewReader(conn)

	resp, err := requestStatus(conn, rd, host, port)
	if err != nil {
		return status.OfflineAt(time.Now())
	}

	result, ok := normalizeStatus(resp)
	if !ok {
		return status.OfflineAt(time.Now())
	}

	if !c.SkipLatency {
		if latency, err := measureLatency(conn, rd); err == nil {
			result.Latency = &latency
		}
	}

	result.ObservedAt = time.Now()
	return result
}

// requestStatus sends the handshake and status request and decodes the reply.
func requestStatus(conn net.Conn, rd *bufio.Reader, host string, port int) (*statusResponse, error) {
	handshake := appendVarInt(nil, handshakeProtocolVersion)
	handshake = appendString(handshake, host)
	handshake = appendUint16(handshake, uint16(port))
	handshake = appendVarInt(handshake, nextStateStatus)

	if err := writePacket(conn, packetHandshake, handshake); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}
	if err := writePacket(conn, packetStatus, nil); err != nil {
		return nil, fmt.Errorf("write status request: %w", err)
	}

	id, payload, err := readPacket(rd, maxStatusPacketSize)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if id != packetStatus {
		return nil, fmt.Errorf("unexpected packet id 0x%02x", id)
	}

	doc, err := readString(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("read status json: %w", err)
	}

	var resp statusResponse
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return nil, fmt.Errorf("decode status json: %w", err)
	}
	return &resp, nil
}

// measureLatency sends a ping carrying the current unix millis and waits
// for the pong echoing it.
func measureLatency(conn net.Conn, rd *bufio.Reader) (time.Duration, error) {
	sent := time.Now()
	token := sent.UnixMilli()

	if err := writePacket(conn, packetPing, appendInt64(nil, token)); err != nil {
		return 0, err
	}

	id, payload, err := readPacket(rd, 64)
	if err != nil {
		return 0, err
	}
	if id != packetPing || len(payload) != 8 {
		return 0, errors.New("malformed pong")
	}
	if int64(binary.BigEndian.Uint64(payload)) != token {
		return 0, errors.New("pong does not echo ping payload")
	}
	return time.Since(sent), nil
}

// normalizeStatus maps the decoded document onto a status.Result. A missing
// players object or negative counts are treated as unreachable.
func normalizeStatus(resp *statusResponse) (status.Result, bool) {
	if resp.Players == nil || resp.Players.Online < 0 || resp.Players.Max < 0 {
		return status.Result{}, false
	}

	return status.Result{
		State:         status.Online,
		MaxPlayers:    resp.Players.Max,
		OnlinePlayers: resp.Players.Online,
		Version:       status.StringPtr(resp.Version.Name),
		MOTD:          status.StringPtr(flattenDescription(resp.Description)),
		Favicon:       decodeFavicon(faviconString(resp.Favicon)),
	}, true
}

// chatComponent is the structured form of a description.
type chatComponent struct {
	Text  string            `json:"text"`
	Extra []json.RawMessage `json:"extra"`
}

// flattenDescription returns the plain text of a description, which is
// either a JSON string, a component object, or an array of either.
// Component text is concatenated with its extra children in order.
func flattenDescription(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(flattenDescription(p))
		}
		return b.String()
	case '{':
		var comp chatComponent
		if err := json.Unmarshal(raw, &comp); err != nil {
			return ""
		}
		var b strings.Builder
		b.WriteString(comp.Text)
		for _, e := range comp.Extra {
			b.WriteString(flattenDescription(e))
		}
		return b.String()
	default:
		return ""
	}
}

// faviconString returns the favicon field when it is a JSON string, and ""
// for anything else.
func faviconString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// decodeFavicon strips a data URL prefix and decodes the base64 image.
// Anything that does not decode is treated as no favicon.
func decodeFavicon(s string) []byte {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ";base64,")
		if idx == -1 {
			return nil
		}
		s = s[idx+len(";base64,"):]
	}
	// some servers wrap the encoded image
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)

	img, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(img) == 0 {
		return nil
	}
	return img
}
