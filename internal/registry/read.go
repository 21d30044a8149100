package registry

import (
	"context"
	"iter"

	"github.com/roach88/prodreg/internal/ir"
)

// GetProduct returns the record snapshot (id, quantity, hash, owner).
// Fails with NOT_FOUND if the product was never registered.
func (r *Registry) GetProduct(ctx context.Context, id ir.ProductID) (ir.ProductRecord, error) {
	return r.store.ReadProduct(ctx, id)
}

// Exists reports whether id is registered. The error is non-nil only when
// the store cannot be read.
func (r *Registry) Exists(ctx context.Context, id ir.ProductID) (bool, error) {
	return r.store.Exists(ctx, id)
}

// History returns a lazy iterator over the events of id in insertion order.
//
// Each range re-reads the store page by page, so the sequence is restartable
// and ends at the last event committed when the final page was read. For an
// unregistered id it yields a single NOT_FOUND error.
func (r *Registry) History(ctx context.Context, id ir.ProductID) iter.Seq2[ir.ProductEvent, error] {
	return func(yield func(ir.ProductEvent, error) bool) {
		ok, err := r.store.Exists(ctx, id)
		if err != nil {
			yield(ir.ProductEvent{}, err)
			return
		}
		if !ok {
			yield(ir.ProductEvent{}, ir.NewNotFoundError(id))
			return
		}

		var after int64
		for {
			page, err := r.store.ReadEvents(ctx, id, after, r.pageSize)
			if err != nil {
				yield(ir.ProductEvent{}, err)
				return
			}
			for _, ev := range page {
				if !yield(ev, nil) {
					return
				}
				after = ev.Seq
			}
			if len(page) < r.pageSize {
				return
			}
		}
	}
}

// ListEvents collects History into a slice.
func (r *Registry) ListEvents(ctx context.Context, id ir.ProductID) ([]ir.ProductEvent, error) {
	events := []ir.ProductEvent{}
	for ev, err := range r.History(ctx, id) {
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Notifications returns a lazy iterator over the notification log after
// afterSeq, in commit order. Pass 0 to replay from the beginning.
func (r *Registry) Notifications(ctx context.Context, afterSeq int64) iter.Seq2[ir.Notification, error] {
	return func(yield func(ir.Notification, error) bool) {
		after := afterSeq
		for {
			page, err := r.store.ReadNotifications(ctx, after, r.pageSize)
			if err != nil {
				yield(ir.Notification{}, err)
				return
			}
			for _, n := range page {
				if !yield(n, nil) {
					return
				}
				after = n.Seq
			}
			if len(page) < r.pageSize {
				return
			}
		}
	}
}

// Subscribe returns a channel of notifications committed after the call.
// The channel closes when ctx is done or the registry is closed. A slow
// subscriber may miss notifications; use Follow for gap-free delivery.
func (r *Registry) Subscribe(ctx context.Context) <-chan ir.Notification {
	return r.broker.Subscribe(ctx)
}

// Follow delivers every notification after afterSeq to fn, in seq order,
// then keeps delivering new ones until ctx is done, the registry is closed,
// or fn returns an error.
//
// Late listeners use this to catch up from the durable log and switch to
// live delivery without gaps or duplicates. Returns ctx.Err() on
// cancellation and nil when the registry is closed.
func (r *Registry) Follow(ctx context.Context, afterSeq int64, fn func(ir.Notification) error) error {
	// Subscribe before replaying so nothing committed in between is lost.
	live := r.Subscribe(ctx)

	last := afterSeq
	catchUp := func(ctx context.Context) error {
		for n, err := range r.Notifications(ctx, last) {
			if err != nil {
				return err
			}
			if err := fn(n); err != nil {
				return err
			}
			last = n.Seq
		}
		return nil
	}

	if err := catchUp(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-live:
			if !ok {
				return ctx.Err()
			}
			// A live message is only a wake-up. Queued ones may predate the
			// last catch-up while a newer publish was dropped for lack of
			// room, so every wake-up drains the queue and re-reads the log.
			open := drain(live)
			if err := catchUp(ctx); err != nil {
				return err
			}
			if !open {
				return ctx.Err()
			}
		}
	}
}

// drain discards queued messages and reports whether ch is still open.
func drain(ch <-chan ir.Notification) bool {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
