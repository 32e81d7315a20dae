package actor

import (
	"time"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/log"
)

// tickInterval is the fixed wall-clock period between ticks. A var, not
// a const, so tests can shrink it instead of waiting out the real
// 1000 ms cadence.
var tickInterval = 1000 * time.Millisecond

// Ticker publishes Tick bodies on the shared "ticks" topic at a fixed
// interval. It never subscribes to anything.
type Ticker struct {
	broker *bus.Broker
	stop   chan struct{}
}

// NewTicker constructs a Ticker bound to broker.
func NewTicker(broker *bus.Broker) *Ticker {
	return &Ticker{broker: broker, stop: make(chan struct{})}
}

// Run fires ticks until Stop is called or the broker rejects a publish
// because it has stopped. A publish failure is logged, not fatal: a
// slow or gone subscriber must not halt the heartbeat.
func (t *Ticker) Run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var seq uint64
	logger := log.WithComponent("actor.ticker")

	for {
		select {
		case now := <-ticker.C:
			seq++
			err := t.broker.Send(bus.NewEnvelope("ticks", bus.Tick{Seq: seq, Timestamp: now.UnixMilli()}))
			if err != nil {
				logger.Warn().Err(err).Msg("failed to publish tick")
				if err == bus.ErrClosed {
					return
				}
			}
		case <-t.stop:
			return
		}
	}
}

// Stop halts the ticker. Safe to call once; a second call panics on a
// closed channel, matching the broker's own single-shutdown contract.
func (t *Ticker) Stop() {
	close(t.stop)
}
