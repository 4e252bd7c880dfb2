package protocol

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/mcpulse/internal/status"
)

const (
	// DefaultBedrockTimeout is the fixed bound on the single UDP round trip.
	DefaultBedrockTimeout = 5 * time.Second

	// DefaultBedrockPort is the conventional Bedrock edition port.
	DefaultBedrockPort = 19132

	raknetUnconnectedPing = 0x01
	raknetUnconnectedPong = 0x1c

	maxPongSize = 4096
)

// raknetMagic is the offline message id every unconnected RakNet packet carries.
var raknetMagic = []byte{
	0x00, 0xff, 0xff, 0x00, 0xfe, 0xfe, 0xfe, 0xfe,
	0xfd, 0xfd, 0xfd, 0xfd, 0x12, 0x34, 0x56, 0x78,
}

// BedrockClient performs a RakNet unconnected ping.
//
// The exchange is one datagram each way with no retry. It does not measure
// latency and servers do not advertise a favicon.
type BedrockClient struct {
	// Timeout is the fixed wait for the reply datagram. It is not taken from
	// the caller's target; zero means DefaultBedrockTimeout.
	Timeout time.Duration

	guid uint64
}

// NewBedrockClient returns a [BedrockClient] with a random client GUID.
func NewBedrockClient() *BedrockClient {
	return &BedrockClient{guid: rand.Uint64()}
}

// Name returns "bedrock".
func (c *BedrockClient) Name() string {
	return "bedrock"
}

// Bound returns the effective reply timeout.
func (c *BedrockClient) Bound() time.Duration {
	if c.Timeout <= 0 {
		return DefaultBedrockTimeout
	}
	return c.Timeout
}

// Probe sends one unconnected ping to host:port and parses the pong. The
// timeout argument is ignored in favour of the client's fixed bound.
func (c *BedrockClient) Probe(ctx context.Context, host string, port int, _ time.Duration) status.Result {
	ctx, cancel := context.WithTimeout(ctx, c.Bound())
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return status.OfflineAt(time.Now())
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(buildUnconnectedPing(time.Now().UnixMilli(), c.guid)); err != nil {
		return status.OfflineAt(time.Now())
	}

	buf := make([]byte, maxPongSize)
	n, err := conn.Read(buf)
	if err != nil {
		return status.OfflineAt(time.Now())
	}

	adv, ok := parseUnconnectedPong(buf[:n])
	if !ok {
		return status.OfflineAt(time.Now())
	}

	result, ok := parseAdvertisement(adv)
	if !ok {
		return status.OfflineAt(time.Now())
	}
	result.ObservedAt = time.Now()
	return result
}

// buildUnconnectedPing lays out id | time | magic | client guid.
func buildUnconnectedPing(timestamp int64, guid uint64) []byte {
	pkt := make([]byte, 0, 1+8+len(raknetMagic)+8)
	pkt = append(pkt, raknetUnconnectedPing)
	pkt = appendInt64(pkt, timestamp)
	pkt = append(pkt, raknetMagic...)
	return binary.BigEndian.AppendUint64(pkt, guid)
}

// parseUnconnectedPong validates id | time | server guid | magic | len | adv
// and returns the advertisement bytes.
func parseUnconnectedPong(pkt []byte) ([]byte, bool) {
	const header = 1 + 8 + 8
	if len(pkt) < header+len(raknetMagic)+2 || pkt[0] != raknetUnconnectedPong {
		return nil, false
	}
	if !bytes.Equal(pkt[header:header+len(raknetMagic)], raknetMagic) {
		return nil, false
	}

	off := header + len(raknetMagic)
	n := int(binary.BigEndian.Uint16(pkt[off : off+2]))
	off += 2
	if off+n > len(pkt) {
		return nil, false
	}
	return pkt[off : off+n], true
}

const (
	editionPocket    = "MCPE"
	editionEducation = "MCEE"
)

// parseAdvertisement reads the semicolon separated server list entry:
// edition;motd;protocol;version;online;max;server id;sub motd;game mode;...
func parseAdvertisement(adv []byte) (status.Result, bool) {
	fields := strings.Split(string(adv), ";")
	if len(fields) < 6 {
		return status.Result{}, false
	}
	switch fields[0] {
	case editionPocket, editionEducation:
	default:
		return status.Result{}, false
	}

	online, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil || online < 0 {
		return status.Result{}, false
	}
	maxPlayers, err := strconv.Atoi(strings.TrimSpace(fields[5]))
	if err != nil || maxPlayers < 0 {
		return status.Result{}, false
	}

	return status.Result{
		State:         status.Online,
		MaxPlayers:    maxPlayers,
		OnlinePlayers: online,
		Version:       status.StringPtr(fields[3]),
		MOTD:          status.StringPtr(fields[1]),
	}, true
}
