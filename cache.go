package mcpulse

import (
	"sort"

	"github.com/jpalmerr/mcpulse/internal/store"
)

// Cache holds the last known [StatusResult] per address.
//
// A Cache is written only by the [Poller] it is given to. An offline probe
// keeps the version, MOTD, favicon and latency of the previous entry while
// zeroing the player counts; an online probe replaces the entry. Entries
// are never evicted.
//
// Share one Cache between pollers with [WithCache]. A Cache is safe for
// concurrent use.
type Cache struct {
	store *store.MemoryStore
}

// NewCache creates an empty [Cache].
func NewCache() *Cache {
	return &Cache{store: store.NewMemoryStore()}
}

// Get returns the cached entry for address, as produced by
// [Target.Address].
func (c *Cache) Get(address string) (StatusResult, bool) {
	r, ok := c.store.Get(address)
	if !ok {
		return StatusResult{}, false
	}
	return toPublicResult(r), true
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Addresses returns every cached address in sorted order.
func (c *Cache) Addresses() []string {
	entries := c.store.GetAll()
	addrs := make([]string, len(entries))
	for i, e := range entries {
		addrs[i] = e.Address
	}
	sort.Strings(addrs)
	return addrs
}
