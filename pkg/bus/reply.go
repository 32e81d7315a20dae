package bus

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cuemby/busline/pkg/log"
	"github.com/cuemby/busline/pkg/metrics"
)

// replyTimeout is the fixed deadline for a Request call, measured from
// the moment the reply subscription is installed. A var, not a const,
// so tests can shrink it instead of waiting out the real 30 seconds.
var replyTimeout = 30 * time.Second

// Request turns a publish into a synchronous-looking call. If e is not
// flagged as a request it behaves exactly like Send and returns (nil,
// nil). Otherwise it subscribes to e's reply topic *before* publishing
// e — a deliberate deviation from naively subscribing after the publish,
// which would race a fast responder — awaits the first delivery with a
// 30 second timeout, and always unsubscribes before returning.
func (b *Broker) Request(ctx context.Context, e Envelope) (*Envelope, error) {
	if !e.IsRequest {
		if err := b.Send(e); err != nil {
			return nil, err
		}
		return nil, nil
	}

	topic := ReplyTopic(e.ID)
	subID, ch, err := b.Subscribe("^" + regexp.QuoteMeta(topic) + "$")
	if err != nil {
		logger := log.WithRequestID(e.ID.String()).With().
			Str("component", "bus").
			Str("topic", e.Topic).
			Logger()
		logger.Warn().Err(err).Msg("failed to install reply subscription")
		return nil, fmt.Errorf("%w: %v", ErrCleanup, err)
	}
	defer b.Unsubscribe(subID)

	wait := time.NewTimer(replyTimeout)
	defer wait.Stop()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RequestReplyDuration)

	if err := b.Send(e); err != nil {
		return nil, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, nil
		}
		return &reply, nil
	case <-wait.C:
		logger := log.WithTopic(e.Topic).With().
			Str("component", "bus").
			Str("request_id", e.ID.String()).
			Logger()
		logger.Warn().Msg("request timed out waiting for reply")
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
