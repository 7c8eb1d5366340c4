package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/dotareg/internal/dependencies/idgen"
)

// MockIDGenerator returns queued values, falling back to a per-prefix counter
type MockIDGenerator struct {
	mu       sync.Mutex
	queued   []string
	counters map[string]int
}

// Ensure MockIDGenerator implements Generator
var _ idgen.Generator = (*MockIDGenerator)(nil)

// NewMockIDGenerator creates a new MockIDGenerator
func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{counters: make(map[string]int)}
}

// NewID returns the next queued value, or prefix plus a counter
func (g *MockIDGenerator) NewID(prefix string) string {
	return g.next(prefix)
}

// Token returns the next queued value, or prefix plus a counter
func (g *MockIDGenerator) Token(prefix string) string {
	return g.next(prefix)
}

func (g *MockIDGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queued) > 0 {
		v := g.queued[0]
		g.queued = g.queued[1:]
		return v
	}
	g.counters[prefix]++
	return fmt.Sprintf("%s%d", prefix, g.counters[prefix])
}

// Queue adds values to be returned before counter-based ids
func (g *MockIDGenerator) Queue(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, values...)
}
