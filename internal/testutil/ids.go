package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDGenerator produces "<prefix>-0001", "<prefix>-0002", ...
//
// It stands in for the UUIDv7 operation IDs the registry mints in
// production, so logs and traces are reproducible.
//
// Thread-safety: safe for concurrent use.
type SequentialIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDGenerator creates a generator. An empty prefix becomes "op".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "op"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}
