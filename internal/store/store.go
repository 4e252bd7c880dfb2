package store

import "github.com/jpalmerr/mcpulse/internal/status"

// Entry is one cached address and its last known result.
type Entry struct {
	Address string
	Result  status.Result
}

// Store defines the status cache operations.
//
// Implementations must be safe for concurrent access.
type Store interface {
	// Get returns a copy of the entry for address.
	Get(address string) (status.Result, bool)

	// Put merges r into the entry for address and returns what is stored
	// afterwards. applied is false when r was older than the stored entry.
	Put(address string, r status.Result) (stored status.Result, applied bool)

	// GetAll returns a snapshot of every entry. Order is not guaranteed.
	GetAll() []Entry

	// Len reports the number of cached addresses.
	Len() int

	// Subscribe returns a channel that receives every applied entry.
	// Caller must call Unsubscribe when done.
	Subscribe() <-chan Entry

	// Unsubscribe removes a subscription and closes the channel.
	Unsubscribe(ch <-chan Entry)
}

// Merge applies the backfill rule to a new observation.
//
// With no prior entry, or when next is online, next is returned as is. When
// next is offline the descriptive fields carry over from prior.
func Merge(prior status.Result, hasPrior bool, next status.Result) status.Result {
	if !hasPrior || next.State == status.Online {
		return next
	}

	return status.Result{
		State:         status.Offline,
		OnlinePlayers: 0,
		MaxPlayers:    0,
		Version:       prior.Version,
		MOTD:          prior.MOTD,
		Favicon:       prior.Favicon,
		Latency:       prior.Latency,
		ObservedAt:    next.ObservedAt,
	}
}
