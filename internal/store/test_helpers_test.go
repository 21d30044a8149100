package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/prodreg/internal/ir"
)

// baseTime is the fixed wall-clock origin used by store tests.
var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testHash encodes a short label as a bytes32 hash.
func testHash(t *testing.T, label string) ir.Hash {
	t.Helper()
	h, err := ir.EncodeBytes32String(label)
	if err != nil {
		t.Fatalf("EncodeBytes32String(%q) failed: %v", label, err)
	}
	return h
}

// mustCreate registers product id with a fixed quantity and hash.
func mustCreate(t *testing.T, s *Store, id ir.ProductID, owner ir.Identity) ir.Notification {
	t.Helper()
	note, err := s.CreateProduct(context.Background(), ir.ProductRecord{
		ID:       id,
		Quantity: 10,
		Hash:     testHash(t, "h"+id.String()),
		Owner:    owner,
	}, baseTime)
	if err != nil {
		t.Fatalf("CreateProduct(%d) failed: %v", id, err)
	}
	return note
}
