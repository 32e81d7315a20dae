package bus

import (
	"github.com/google/uuid"

	"github.com/cuemby/busline/pkg/log"
	"github.com/cuemby/busline/pkg/metrics"
)

// ingressCapacity is the fixed capacity of the broker's single ingress
// queue, shared by every publisher including the request/reply overlay
// and every actor.
const ingressCapacity = 100

// Broker is a single-writer, multi-subscriber dispatcher keyed by
// regular-expression topic patterns. A Broker must be started with Run
// (typically in its own goroutine) before any Send is guaranteed to be
// drained.
type Broker struct {
	ingress  chan Envelope
	registry *registry
	life     lifecycle
	stopped  chan struct{}
}

// NewBroker constructs a Broker in the Unstarted state. Call Run to begin
// dispatching.
func NewBroker() *Broker {
	return &Broker{
		ingress:  make(chan Envelope, ingressCapacity),
		registry: newRegistry(),
		stopped:  make(chan struct{}),
	}
}

// Status returns a snapshot of the broker's lifecycle state.
func (b *Broker) Status() State {
	return b.life.get()
}

// Run starts the dispatcher loop and blocks until a Stop body is
// consumed. Callers typically invoke Run in its own goroutine.
func (b *Broker) Run() {
	b.life.set(Running)
	log.WithComponent("bus").Info().Msg("broker running")

	for e := range b.ingress {
		if _, ok := e.Body.(Stop); ok {
			b.life.set(Stopping)
			break
		}
		b.dispatch(e)
	}

	b.registry.closeAll()
	b.life.set(Stopped)
	close(b.stopped)
	log.WithComponent("bus").Info().Msg("broker stopped")
}

// Send publishes an envelope fire-and-forget. It suspends the caller
// cooperatively when the ingress queue is full, and fails only once the
// broker has stopped.
func (b *Broker) Send(e Envelope) error {
	select {
	case b.ingress <- e:
		metrics.MessagesPublishedTotal.WithLabelValues(e.Topic).Inc()
		return nil
	case <-b.stopped:
		return ErrClosed
	}
}

// SubscriptionCount returns the number of subscriptions currently in
// the registry. Intended for metrics collection.
func (b *Broker) SubscriptionCount() int {
	return b.registry.count()
}

// Subscribe compiles pattern and installs a new subscription, returning
// its id and the receive end of its delivery queue.
func (b *Broker) Subscribe(pattern string) (uuid.UUID, <-chan Envelope, error) {
	return b.registry.add(pattern)
}

// Unsubscribe removes a subscription by id. A second call for the same
// id reports ErrNotFound.
func (b *Broker) Unsubscribe(id uuid.UUID) error {
	return b.registry.remove(id)
}

// dispatch matches one envelope against every current subscription, in
// registry order, and enqueues a copy onto each match's delivery queue.
// No-topic envelopes are dropped silently; a send to a queue whose
// subscriber has since unsubscribed is logged and skipped rather than
// left to panic on a closed channel.
func (b *Broker) dispatch(e Envelope) {
	if e.Topic == "" {
		return
	}

	for _, sub := range b.registry.snapshot() {
		if sub.pattern.MatchString(e.Topic) {
			b.deliver(sub, e)
		}
	}
}

func (b *Broker) deliver(sub *subscription, e Envelope) {
	defer func() {
		if r := recover(); r != nil {
			metrics.MessagesDroppedTotal.WithLabelValues(e.Topic).Inc()
			logger := log.WithSubscription(sub.id.String()).With().
				Str("component", "bus").
				Str("topic", e.Topic).
				Logger()
			logger.Warn().Msg("dropped delivery to closed subscription")
		}
	}()
	sub.ch <- e
}
