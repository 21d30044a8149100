package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyLog_Empty(t *testing.T) {
	s := createTestStore(t)

	v, err := s.VerifyLog(context.Background())
	require.NoError(t, err)
	assert.True(t, v.OK())
	assert.Equal(t, int64(0), v.Notifications)
}

func TestVerifyLog_Consistent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, 1, "alice")
	mustCreate(t, s, 2, "bob")
	for _, typ := range []string{"SHIPPED", "DELIVERED"} {
		_, _, err := s.AppendEvent(ctx, 1, "alice", typ, "x", baseTime)
		require.NoError(t, err)
	}
	_, _, err := s.AppendEvent(ctx, 2, "bob", "STORED", "y", baseTime)
	require.NoError(t, err)

	v, err := s.VerifyLog(ctx)
	require.NoError(t, err)
	assert.True(t, v.OK(), "problems: %v", v.Problems)
	assert.Equal(t, int64(5), v.Notifications)
	assert.Equal(t, int64(2), v.Products)
	assert.Equal(t, int64(3), v.Events)
}

func TestVerifyLog_DetectsTamperedPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, 1, "alice")
	_, _, err := s.AppendEvent(ctx, 1, "alice", "SHIPPED", "x", baseTime)
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE product_events SET event_data = 'forged' WHERE product_id = 1`)
	require.NoError(t, err)

	v, err := s.VerifyLog(ctx)
	require.NoError(t, err)
	assert.False(t, v.OK())
	assert.Contains(t, v.Problems[0], "differs from notification")
}

func TestVerifyLog_DetectsMissingNotification(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, 1, "alice")
	_, err := s.db.Exec(`
		INSERT INTO products (id, quantity, hash, owner, registered_at)
		VALUES (2, 1, zeroblob(32), 'mallory', 0)
	`)
	require.NoError(t, err)

	v, err := s.VerifyLog(ctx)
	require.NoError(t, err)
	assert.False(t, v.OK())
	assert.Contains(t, v.Problems, "2 products stored but 1 registrations logged")
}
