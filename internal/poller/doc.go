// Package poller schedules periodic status probes for a fixed set of named
// servers.
//
// The [Scheduler] polls every server once on start, then ticks at the GCD
// of the per-server intervals and polls only the servers that are due. A
// bounded worker pool runs the probes and results are emitted on a channel.
//
// The probe itself is supplied as a [PollFunc], so this package knows
// nothing about game protocols or the public mcpulse types.
package poller
