// Package server provides the HTTP dashboard and JSON API for a monitor.
//
// Routes:
//
//   - GET /: the embedded dashboard
//   - GET /api/status: snapshot of every configured server joined with the cache
//   - GET /api/sse: Server-Sent Events stream of status updates
//   - GET /api/servers/{name}/favicon.png: last known server icon
//   - POST /api/servers/{name}/refresh: probe one server now
//   - GET /api/lookup?protocol=&address=: ad-hoc probe, rate limited per client IP
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
