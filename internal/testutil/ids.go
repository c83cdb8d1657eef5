package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same request id every time.
//
// Server responses echo the request id, so a fixed id keeps golden
// snapshots byte-identical between runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id.
// If id is empty, Generate returns "test-request".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-request"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns "req-1", "req-2", ... in call order.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDGenerator creates a generator whose first id is "req-1".
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("req-%d", g.seq)
}

// Reset restarts the sequence; the next id is "req-1" again.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
