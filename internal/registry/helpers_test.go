package registry

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/store"
	"github.com/roach88/prodreg/internal/testutil"
)

const (
	ownerA ir.Identity = "0xA11CE"
	ownerB ir.Identity = "0xB0B"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistry returns a registry over a fresh in-memory store with a
// deterministic clock.
func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *testutil.DeterministicClock) {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return newRegistryOver(t, st, opts...)
}

// newFileRegistry returns a registry over a file-backed store, which has a
// separate read pool.
func newFileRegistry(t *testing.T, opts ...Option) (*Registry, *testutil.DeterministicClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return newRegistryOver(t, st, opts...)
}

func newRegistryOver(t *testing.T, st Store, opts ...Option) (*Registry, *testutil.DeterministicClock) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequentialIDGenerator("op")),
		WithLogger(discardLogger()),
	}
	r := New(st, append(base, opts...)...)
	t.Cleanup(r.Close)
	return r, clock
}

func hashOf(t *testing.T, label string) ir.Hash {
	t.Helper()
	h, err := ir.EncodeBytes32String(label)
	require.NoError(t, err)
	return h
}
