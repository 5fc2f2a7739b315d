package slotclock

import "sync"

// Subscription is one consumer's view of a Dispatcher[T] feed. Callers read
// ticks off Channel() and call Unsubscribe() when done; a dropped or slow
// consumer never blocks the dispatcher when the subscription was created
// non-blocking.
type Subscription[T any] struct {
	ch        chan T
	blocking  bool
	dispatch  *Dispatcher[T]
	unsubOnce sync.Once
}

// Channel returns the channel this subscription delivers ticks on.
func (s *Subscription[T]) Channel() <-chan T {
	return s.ch
}

// Unsubscribe detaches the subscription from its dispatcher and closes its
// channel. Safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.unsubOnce.Do(func() {
		s.dispatch.remove(s)
		close(s.ch)
	})
}

// Dispatcher fans a value out to every current subscriber. The zero value
// is ready to use.
type Dispatcher[T any] struct {
	mu   sync.Mutex
	subs []*Subscription[T]
}

// Subscribe registers a new subscriber with the given channel capacity. When
// blocking is true, Fire blocks while the subscriber's channel is full; when false, a
// full channel silently drops the tick for that subscriber rather than
// stalling the rest.
func (d *Dispatcher[T]) Subscribe(capacity int, blocking bool) *Subscription[T] {
	sub := &Subscription[T]{
		ch:       make(chan T, capacity),
		blocking: blocking,
		dispatch: d,
	}

	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()

	return sub
}

// Fire delivers value to every current subscriber.
func (d *Dispatcher[T]) Fire(value T) {
	d.mu.Lock()
	subs := make([]*Subscription[T], len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, sub := range subs {
		if sub.blocking {
			sub.ch <- value
			continue
		}

		select {
		case sub.ch <- value:
		default:
		}
	}
}

func (d *Dispatcher[T]) remove(target *Subscription[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, sub := range d.subs {
		if sub == target {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}
