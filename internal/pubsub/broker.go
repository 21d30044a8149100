// Package pubsub fans committed values out to in-process listeners.
//
// Delivery is best effort. The registry publishes every notification after
// it is already durable, so a listener that falls behind loses nothing it
// cannot re-read from the notification log; registry.Follow does exactly
// that.
package pubsub

import (
	"context"
	"sync"
)

// DefaultBufferSize is the per-subscriber queue length used by NewBroker.
const DefaultBufferSize = 64

// Broker delivers each published value to every open subscription.
//
// Publish never waits on a subscriber. A subscription whose queue is full
// skips the value, so consumers that must see everything track the last
// sequence they handled and re-read the source of truth on each wake-up.
type Broker[T any] struct {
	mu     sync.RWMutex
	queues map[chan T]struct{}
	closed chan struct{}
	size   int
}

// NewBroker returns a broker with DefaultBufferSize queues.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](DefaultBufferSize)
}

// NewBrokerWithBuffer returns a broker whose subscriptions queue up to size
// values. A size below 1 is treated as 1.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	if size < 1 {
		size = 1
	}
	return &Broker[T]{
		queues: make(map[chan T]struct{}),
		closed: make(chan struct{}),
		size:   size,
	}
}

// Subscribe opens a subscription that lives until ctx is done or the broker
// is closed, whichever comes first; the returned channel is then closed.
// Subscribing to a closed broker yields an already-closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := make(chan T, b.size)
	if b.isClosed() {
		close(q)
		return q
	}
	b.queues[q] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(q)
		case <-b.closed:
			// Close already closed q.
		}
	}()
	return q
}

// unsubscribe removes q and closes it, unless Close got there first.
func (b *Broker[T]) unsubscribe(q chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[q]; ok {
		delete(b.queues, q)
		close(q)
	}
}

// Publish offers v to every subscription. Full queues skip it.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.isClosed() {
		return
	}
	for q := range b.queues {
		select {
		case q <- v:
		default:
		}
	}
}

// Close ends every subscription. Later calls are no-ops.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed() {
		return
	}
	close(b.closed)
	for q := range b.queues {
		delete(b.queues, q)
		close(q)
	}
}

// SubscriberCount reports how many subscriptions are open.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.queues)
}

// isClosed must be called with mu held.
func (b *Broker[T]) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}
