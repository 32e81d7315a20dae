package bus

import (
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// deliveryCapacity is the fixed per-subscriber buffer size.
const deliveryCapacity = 100

// subscription is a single registry entry: an id, a compiled topic
// pattern, and the send side of its delivery queue. The broker is the
// sole producer on ch; whoever called Subscribe owns the receive end.
type subscription struct {
	id      uuid.UUID
	pattern *regexp.Regexp
	ch      chan Envelope
}

// registry is an ordered, many-reader/one-writer set of subscriptions.
// Iteration order is insertion order, and that order is observable: for
// a single message, earlier subscriptions are offered it before later
// ones (§4.2, §8 fan-out order).
type registry struct {
	mu   sync.RWMutex
	subs []*subscription
}

func newRegistry() *registry {
	return &registry{}
}

// add compiles pattern and appends a new subscription, returning its id
// and the receive end of its delivery queue.
func (r *registry) add(pattern string) (uuid.UUID, <-chan Envelope, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return uuid.UUID{}, nil, &PatternError{Pattern: pattern, Err: err}
	}

	sub := &subscription{
		id:      uuid.New(),
		pattern: re,
		ch:      make(chan Envelope, deliveryCapacity),
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	return sub.id, sub.ch, nil
}

// remove deletes at most one entry by id and closes its delivery queue.
// Not-found is reported rather than silently ignored, per §4.2.
func (r *registry) remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.id == id {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub.ch)
			return nil
		}
	}
	return ErrNotFound
}

// snapshot returns the current subscriptions in registry order. Callers
// must not retain the slice across a subsequent add/remove; it is a
// shallow copy safe for iteration under a read lock that has already
// been released.
func (r *registry) snapshot() []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

// count returns the current number of live subscriptions.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// closeAll closes every delivery queue, used on broker shutdown.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		close(sub.ch)
	}
	r.subs = nil
}
