// Package metrics defines and registers the Prometheus metrics that
// describe the bus's own behavior: publish/drop counters, the active
// subscription gauge, the broker's lifecycle state, and request/reply
// latency. Handler exposes them for scraping; Collector samples the
// broker's point-in-time state on an interval.
package metrics
