// Package protocol implements the two status exchanges mcpulse can perform.
//
// Each exchange is a [Client] variant:
//
//   - [JavaClient]: TCP status exchange (handshake, status request, optional
//     ping/pong for latency) against Java edition servers.
//   - [BedrockClient]: RakNet unconnected ping over UDP against Bedrock
//     edition servers.
//
// Clients never return errors. Every failure (DNS, refused connection,
// timeout, malformed payload) is reported as an offline [status.Result],
// because an unreachable server and an incompatible one look the same to a
// person reading a status page.
//
// This package is internal to mcpulse; callers use mcpulse.Poller.
package protocol
