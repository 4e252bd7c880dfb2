// Package store is the status cache: the last known result per address.
//
// Writes go through [MemoryStore.Put], which applies the backfill rule. An
// offline result keeps the version, MOTD, favicon and latency from the entry
// it replaces while taking the new state, zero player counts and the new
// observation time. An online result replaces the entry outright. A write
// observed earlier than the stored entry is ignored.
//
// Each Put is an atomic read-modify-write for its address. Subscribers
// receive every applied entry via channels with non-blocking sends (slow
// subscribers miss updates rather than block the poller).
package store
