package neuralmap

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

func testBox(x int) schemas.BoundingBox {
	return schemas.BoundingBox{X: x, Y: 10, Width: 100, Height: 40}
}

func testEmbedding(seed float32) schemas.Embedding {
	e := make(schemas.Embedding, schemas.EmbeddingDim)
	e[0] = seed
	return e
}

func TestPutGetRoundTrip(t *testing.T) {
	m := New(10, 0)
	m.Put("Find the Checkout button", testBox(5), testEmbedding(0.7))

	entry, ok := m.Get("Find the Checkout button")
	require.True(t, ok)
	assert.Equal(t, testBox(5), entry.Location)
	assert.Equal(t, float32(0.7), entry.Embedding[0])
	assert.False(t, entry.LastSeen.IsZero())
}

func TestGetUnknownIntentMisses(t *testing.T) {
	m := New(10, 0)
	_, ok := m.Get("never seen")
	assert.False(t, ok)
}

func TestIntentsAreOpaqueKeys(t *testing.T) {
	m := New(10, 0)
	m.Put("Find the Checkout button", testBox(1), testEmbedding(0.1))

	// A semantically similar but distinct string is a different key.
	_, ok := m.Get("find the checkout button")
	assert.False(t, ok)
}

func TestPutSupersedesExistingEntry(t *testing.T) {
	m := New(10, 0)
	m.Put("intent", testBox(1), testEmbedding(0.1))
	m.Put("intent", testBox(2), testEmbedding(0.2))

	entry, ok := m.Get("intent")
	require.True(t, ok)
	assert.Equal(t, testBox(2), entry.Location)
	assert.Equal(t, 1, m.Len())
}

func TestStaleEntryIsAMiss(t *testing.T) {
	m := New(10, time.Minute)
	current := time.Now()
	m.now = func() time.Time { return current }

	m.Put("intent", testBox(1), testEmbedding(0.1))

	current = current.Add(30 * time.Second)
	_, ok := m.Get("intent")
	assert.True(t, ok, "fresh entry must hit")

	current = current.Add(45 * time.Second)
	_, ok = m.Get("intent")
	assert.False(t, ok, "entry past max age must miss")
}

func TestLRUEvictionDropsLeastRecentlyUsed(t *testing.T) {
	m := New(2, 0)
	m.Put("a", testBox(1), testEmbedding(0.1))
	m.Put("b", testBox(2), testEmbedding(0.2))

	// Touch "a" so "b" becomes the eviction victim.
	_, ok := m.Get("a")
	require.True(t, ok)

	m.Put("c", testBox(3), testEmbedding(0.3))

	_, ok = m.Get("a")
	assert.True(t, ok, "most recently used entry must survive")
	_, ok = m.Get("b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = m.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	m := New(64, 0)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Put(fmt.Sprintf("intent-%d", n), testBox(j), testEmbedding(float32(j)))
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Get(fmt.Sprintf("intent-%d", n))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, m.Len())
}
