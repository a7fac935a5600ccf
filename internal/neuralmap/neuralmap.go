// Package neuralmap implements the intent-keyed cache of last-known element
// resolutions. It is the only mutable shared state in the core: many
// in-flight locate calls read it and high-confidence resolutions write it.
package neuralmap

import (
	"container/list"
	"sync"
	"time"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// Map caches one NeuralMapEntry per intent string. Intents are opaque keys;
// two different strings are never considered equal.
//
// Entries are superseded by newer writes with the same key. On top of that,
// the map applies an LRU bound plus a max-age check at read time: an entry
// older than maxAge is reported as a miss and left in place until the next
// write or eviction replaces it.
//
// A single mutex guards every operation. Hold time is bounded to one map
// read or write; the lock is never held across a perception-backend call.
type Map struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	capacity int
	maxAge   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

type record struct {
	intent string
	entry  schemas.NeuralMapEntry
}

// New constructs a Map. capacity <= 0 means unbounded; maxAge <= 0 disables
// expiry.
func New(capacity int, maxAge time.Duration) *Map {
	return &Map{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Get returns the cached entry for intent. A stale entry counts as a miss.
// A hit refreshes the entry's recency.
func (m *Map) Get(intent string) (schemas.NeuralMapEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[intent]
	if !ok {
		return schemas.NeuralMapEntry{}, false
	}

	rec := elem.Value.(*record)
	if m.maxAge > 0 && m.now().Sub(rec.entry.LastSeen) > m.maxAge {
		return schemas.NeuralMapEntry{}, false
	}

	m.order.MoveToFront(elem)
	return rec.entry, true
}

// Put upserts the entry for intent, stamping LastSeen, and evicts the least
// recently used entry if the capacity bound is exceeded.
func (m *Map) Put(intent string, location schemas.BoundingBox, embedding schemas.Embedding) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := schemas.NeuralMapEntry{
		Location:  location,
		Embedding: embedding,
		LastSeen:  m.now(),
	}

	if elem, ok := m.entries[intent]; ok {
		elem.Value.(*record).entry = entry
		m.order.MoveToFront(elem)
		return
	}

	m.entries[intent] = m.order.PushFront(&record{intent: intent, entry: entry})

	if m.capacity > 0 && m.order.Len() > m.capacity {
		oldest := m.order.Back()
		if oldest != nil {
			m.order.Remove(oldest)
			delete(m.entries, oldest.Value.(*record).intent)
		}
	}
}

// Len reports the number of cached entries, including any stale ones not yet
// superseded.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
