package metrics

import "time"

// collectInterval is how often the Collector polls broker state. A
// var, not a const, so tests can shrink it instead of waiting out the
// real 5 second cadence.
var collectInterval = 5 * time.Second

// Collector periodically samples broker state into the package's
// gauges. It depends only on two accessor functions rather than the
// bus package directly, so pkg/metrics never imports pkg/bus, which
// itself imports pkg/metrics to update its counters. Counters (published, dropped,
// request/reply duration) are updated inline by their callers instead
// of here, since a poll would lose precision between ticks.
type Collector struct {
	state             func() int
	subscriptionCount func() int
	stopCh            chan struct{}
}

// NewCollector creates a Collector. state should return the broker's
// current lifecycle state as an int (bus.State's underlying type);
// subscriptionCount should return the registry's current size.
func NewCollector(state func() int, subscriptionCount func() int) *Collector {
	return &Collector{
		state:             state,
		subscriptionCount: subscriptionCount,
		stopCh:            make(chan struct{}),
	}
}

// Start begins collecting in its own goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(collectInterval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector. Safe to call once.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	BrokerState.Set(float64(c.state()))
	SubscriptionsActive.Set(float64(c.subscriptionCount()))
}
