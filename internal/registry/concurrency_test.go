package registry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/prodreg/internal/ir"
)

func TestConcurrentRegistration_ExactlyOneWins(t *testing.T) {
	r, _ := newFileRegistry(t)
	ctx := context.Background()

	const callers = 16
	h := hashOf(t, "H42")
	var wins, dupes atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < callers; i++ {
		caller := ir.Identity(fmt.Sprintf("0xC%02d", i))
		g.Go(func() error {
			_, err := r.RegisterProduct(gctx, 42, 1, h, caller)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ir.ErrAlreadyRegistered):
				dupes.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(callers-1), dupes.Load())

	n := 0
	for note, err := range r.Notifications(ctx, 0) {
		require.NoError(t, err)
		assert.Equal(t, ir.KindProductRegistered, note.Kind)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestConcurrentAppends_ContiguousHistory(t *testing.T) {
	r, _ := newFileRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterProduct(ctx, 1, 10, hashOf(t, "H1"), ownerA)
	require.NoError(t, err)

	const writers, perWriter = 8, 10
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				data := fmt.Sprintf("writer %d step %d", w, i)
				if _, err := r.RegisterEvent(gctx, 1, "STORED", data, ownerA); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	events, err := r.ListEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, writers*perWriter)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
		if i > 0 {
			assert.False(t, ev.Timestamp.Before(events[i-1].Timestamp))
		}
	}
}

func TestConcurrentWrites_SubscriberSeesCommitOrder(t *testing.T) {
	r, _ := newTestRegistry(t, WithSubscriberBuffer(256))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := r.Subscribe(ctx)

	const products = 20
	h := hashOf(t, "H")
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= products; i++ {
		id := ir.ProductID(i)
		g.Go(func() error {
			_, err := r.RegisterProduct(gctx, id, uint64(i), h, ownerA)
			return err
		})
	}
	require.NoError(t, g.Wait())

	var last int64
	for i := 0; i < products; i++ {
		n := receive(t, sub)
		assert.Greater(t, n.Seq, last, "publishes must follow commit order")
		last = n.Seq
	}
}
