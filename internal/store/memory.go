package store

import (
	"sync"

	"github.com/jpalmerr/mcpulse/internal/status"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Entries live for the lifetime of the store; there is no eviction.
// Results are cloned on the way in and out so callers never share the
// favicon buffer or pointer fields with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]status.Result
	subscribers map[chan Entry]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]status.Result),
		subscribers: make(map[chan Entry]struct{}),
	}
}

// Get returns the entry for address.
func (m *MemoryStore) Get(address string) (status.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.entries[address]
	if !ok {
		return status.Result{}, false
	}
	return r.Clone(), true
}

// Put merges r into the entry for address under the write lock, so
// concurrent puts for one address never interleave their read and write.
// Subscribers are notified only when the write is applied.
func (m *MemoryStore) Put(address string, r status.Result) (status.Result, bool) {
	m.mu.Lock()
	prior, ok := m.entries[address]
	if ok && r.ObservedAt.Before(prior.ObservedAt) {
		m.mu.Unlock()
		return prior.Clone(), false
	}
	merged := Merge(prior, ok, r.Clone())
	m.entries[address] = merged
	m.mu.Unlock()

	out := merged.Clone()
	m.notifySubscribers(Entry{Address: address, Result: merged.Clone()})
	return out, true
}

// GetAll returns a snapshot of all entries.
func (m *MemoryStore) GetAll() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.entries))
	for addr, r := range m.entries {
		entries = append(entries, Entry{Address: addr, Result: r.Clone()})
	}
	return entries
}

// Len reports the number of cached addresses.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Subscribe creates a subscription with a buffer of 100 entries. If the
// buffer fills, further entries are dropped for this subscriber.
func (m *MemoryStore) Subscribe() <-chan Entry {
	ch := make(chan Entry, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Entry) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(e Entry) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- e:
		default:
			// subscriber is slow, drop the message
		}
	}
}
