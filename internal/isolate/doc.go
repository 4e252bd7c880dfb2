// Package isolate runs a single probe in its own goroutine with a hard
// wall-clock bound.
//
// The probe reports back through a one-slot channel. A probe that panics,
// exits its goroutine without replying, or stays silent past its bound is
// reported as a [*Fault] instead of a result, so the caller can tell an
// infrastructure failure apart from a server that is simply offline.
package isolate
