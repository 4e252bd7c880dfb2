package mcpulse

import (
	"fmt"
	"strings"

	"github.com/jpalmerr/mcpulse/internal/protocol"
)

// Protocol selects which status exchange is used to probe a server.
type Protocol string

const (
	// ProtocolJava is the TCP status exchange spoken by Java edition servers.
	ProtocolJava Protocol = "java"

	// ProtocolBedrock is the RakNet unconnected ping spoken by Bedrock
	// edition servers over UDP.
	ProtocolBedrock Protocol = "bedrock"
)

// String returns the protocol name.
func (p Protocol) String() string {
	return string(p)
}

// DefaultPort returns the port used when a [Target] omits one:
// 25565 for Java and 19132 for Bedrock. Unknown protocols return 0.
func (p Protocol) DefaultPort() int {
	switch p {
	case ProtocolJava:
		return protocol.DefaultJavaPort
	case ProtocolBedrock:
		return protocol.DefaultBedrockPort
	default:
		return 0
	}
}

// Valid reports whether p is one of the known protocols.
func (p Protocol) Valid() bool {
	return p == ProtocolJava || p == ProtocolBedrock
}

// ParseProtocol maps user input to a [Protocol]. It accepts "java", "tcp"
// and "tcp_status" for Java, and "bedrock", "udp" and "udp_status" for
// Bedrock, ignoring case and surrounding whitespace.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "java", "tcp", "tcp_status":
		return ProtocolJava, nil
	case "bedrock", "udp", "udp_status":
		return ProtocolBedrock, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (want java or bedrock)", s)
	}
}
