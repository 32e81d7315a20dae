package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_published_total",
			Help: "Total number of envelopes accepted onto the broker's ingress queue, by topic",
		},
		[]string{"topic"},
	)

	MessagesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_dropped_total",
			Help: "Total number of deliveries dropped because a subscriber's queue had already closed",
		},
		[]string{"topic"},
	)

	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_subscriptions_active",
			Help: "Current number of live subscriptions in the broker's registry",
		},
	)

	BrokerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_broker_state",
			Help: "Broker lifecycle state: 0=unstarted 1=running 2=stopping 3=stopped",
		},
	)

	RequestReplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bus_request_reply_duration_seconds",
			Help:    "Time from Request's publish to its reply, timeout, or cancellation",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesPublishedTotal)
	prometheus.MustRegister(MessagesDroppedTotal)
	prometheus.MustRegister(SubscriptionsActive)
	prometheus.MustRegister(BrokerState)
	prometheus.MustRegister(RequestReplyDuration)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations, typically a Request call.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
