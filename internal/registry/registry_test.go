package registry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/testutil"
)

func TestRegisterProduct_EmitsProductRegistered(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	h1 := hashOf(t, "H1")

	got, err := r.RegisterProduct(ctx, 1, 10, h1, ownerA)
	require.NoError(t, err)
	assert.Equal(t, ir.ProductRegistered{ID: 1, Quantity: 10, Hash: h1, Owner: ownerA}, got)

	_, err = r.RegisterProduct(ctx, 1, 99, hashOf(t, "H2"), ownerB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrAlreadyRegistered))

	rec, err := r.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ir.ProductRecord{ID: 1, Quantity: 10, Hash: h1, Owner: ownerA}, rec)
}

func TestRegisterEvent_EmitsProductEvent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 2, 5, hashOf(t, "H2"), ownerA)
	require.NoError(t, err)

	got, err := r.RegisterEvent(ctx, 2, "SHIPPED", "to warehouse", ownerA)
	require.NoError(t, err)

	assert.Equal(t, ir.ProductID(2), got.ProductID)
	assert.Equal(t, "SHIPPED", got.EventType)
	assert.Equal(t, "to warehouse", got.EventData)
	assert.Equal(t, int64(1), got.Seq)
	assert.False(t, got.Timestamp.IsZero())
}

func TestRegisterEvent_UnknownProduct(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.RegisterEvent(context.Background(), 999, "X", "Y", "anyone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrNotFound))
}

func TestRegisterEvent_NonOwner(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 4, 5, hashOf(t, "H4"), ownerA)
	require.NoError(t, err)

	_, err = r.RegisterEvent(ctx, 4, "SHIPPED", "data", ownerB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrUnauthorized))

	events, err := r.ListEvents(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRegisterEvent_PreconditionOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 7, 1, hashOf(t, "H7"), ownerA)
	require.NoError(t, err)

	tests := []struct {
		name      string
		id        ir.ProductID
		eventType string
		eventData string
		caller    ir.Identity
		want      ir.ErrorCode
	}{
		{"unknown id beats unauthorized", 8, "SHIPPED", "x", ownerB, ir.CodeNotFound},
		{"unknown id beats blank input", 8, "", "", ownerA, ir.CodeNotFound},
		{"unauthorized beats blank input", 7, "", "", ownerB, ir.CodeUnauthorized},
		{"owner with blank type", 7, "", "x", ownerA, ir.CodeInvalidArgument},
		{"owner with blank data", 7, "SHIPPED", "", ownerA, ir.CodeInvalidArgument},
		{"owner with whitespace type", 7, "  ", "x", ownerA, ir.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RegisterEvent(ctx, tt.id, tt.eventType, tt.eventData, tt.caller)
			require.Error(t, err)
			assert.Equal(t, tt.want, ir.CodeOf(err))
		})
	}

	events, err := r.ListEvents(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, events, "rejected appends must not change history")
}

func TestRegisterProduct_InvalidArguments(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	h := hashOf(t, "H")

	tests := []struct {
		name     string
		id       ir.ProductID
		quantity uint64
		caller   ir.Identity
	}{
		{"zero id", 0, 1, ownerA},
		{"id beyond storage range", ir.MaxProductID + 1, 1, ownerA},
		{"quantity beyond storage range", 1, math.MaxInt64 + 1, ownerA},
		{"empty caller", 1, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RegisterProduct(ctx, tt.id, tt.quantity, h, tt.caller)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrInvalidArgument))
		})
	}

	ok, err := r.Exists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterProduct_ZeroQuantityAllowed(t *testing.T) {
	r, _ := newTestRegistry(t)

	got, err := r.RegisterProduct(context.Background(), 3, 0, hashOf(t, "H3"), ownerA)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.Quantity)
}

func TestGetProductAndExists_Unregistered(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.GetProduct(ctx, 55)
	assert.True(t, errors.Is(err, ir.ErrNotFound))

	ok, err := r.Exists(ctx, 55)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReads_Idempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)

	rec1, err1 := r.GetProduct(ctx, 1)
	rec2, err2 := r.GetProduct(ctx, 1)
	assert.Equal(t, rec1, rec2)
	assert.Equal(t, err1, err2)

	ex1, _ := r.Exists(ctx, 1)
	ex2, _ := r.Exists(ctx, 1)
	assert.Equal(t, ex1, ex2)

	_, miss1 := r.GetProduct(ctx, 2)
	_, miss2 := r.GetProduct(ctx, 2)
	assert.Equal(t, miss1, miss2)
}

func TestHistory_OrderAndTimestamps(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)

	types := []string{"CREATED", "SHIPPED", "DELIVERED", "STORED", "SOLD"}
	for _, typ := range types {
		_, err := r.RegisterEvent(ctx, 1, typ, "data for "+typ, ownerA)
		require.NoError(t, err)
	}

	events, err := r.ListEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, len(types))
	for i, ev := range events {
		assert.Equal(t, types[i], ev.EventType)
		assert.Equal(t, int64(i+1), ev.Seq)
		if i > 0 {
			assert.False(t, ev.Timestamp.Before(events[i-1].Timestamp))
		}
	}
}

func TestHistory_BackwardsClockStaysMonotonic(t *testing.T) {
	r, clock := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)
	first, err := r.RegisterEvent(ctx, 1, "SHIPPED", "a", ownerA)
	require.NoError(t, err)

	clock.Set(testutil.DefaultEpoch.Add(-24 * time.Hour))

	second, err := r.RegisterEvent(ctx, 1, "DELIVERED", "b", ownerA)
	require.NoError(t, err)
	assert.False(t, second.Timestamp.Before(first.Timestamp))
}

func TestHistory_LazyPagingRestartable(t *testing.T) {
	r, _ := newTestRegistry(t, WithPageSize(2))
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := r.RegisterEvent(ctx, 1, "STORED", "bay", ownerA)
		require.NoError(t, err)
	}

	seq := r.History(ctx, 1)

	collect := func() []int64 {
		var out []int64
		for ev, err := range seq {
			require.NoError(t, err)
			out = append(out, ev.Seq)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, collect())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, collect(), "second range restarts from the beginning")

	var firstTwo []int64
	for ev, err := range seq {
		require.NoError(t, err)
		firstTwo = append(firstTwo, ev.Seq)
		if len(firstTwo) == 2 {
			break
		}
	}
	assert.Equal(t, []int64{1, 2}, firstTwo)
}

func TestHistory_UnknownProduct(t *testing.T) {
	r, _ := newTestRegistry(t)

	var errs []error
	for _, err := range r.History(context.Background(), 404) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ir.ErrNotFound))

	_, err := r.ListEvents(context.Background(), 404)
	assert.True(t, errors.Is(err, ir.ErrNotFound))
}

func TestRegistries_AreIsolated(t *testing.T) {
	r1, _ := newTestRegistry(t)
	r2, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r1.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)

	ok, err := r2.Exists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r2.RegisterProduct(ctx, 1, 3, hashOf(t, "H1"), ownerB)
	require.NoError(t, err)
}

func TestRegistry_FileStoreReadsSeeCommittedWrites(t *testing.T) {
	r, _ := newFileRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)
	_, err = r.RegisterEvent(ctx, 1, "SHIPPED", "a", ownerA)
	require.NoError(t, err)

	rec, err := r.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ownerA, rec.Owner)

	events, err := r.ListEvents(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
