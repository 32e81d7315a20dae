package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/busline/pkg/bus"
)

func TestTickerPublishesIncreasingSequence(t *testing.T) {
	old := tickInterval
	tickInterval = 20 * time.Millisecond
	t.Cleanup(func() { tickInterval = old })

	b := startTestBroker(t)

	id, ch, err := b.Subscribe("^ticks$")
	require.NoError(t, err)
	defer b.Unsubscribe(id)

	ticker := NewTicker(b)
	go ticker.Run()
	t.Cleanup(ticker.Stop)

	var seqs []uint64
	for i := 0; i < 2; i++ {
		select {
		case e := <-ch:
			tick := e.Body.(bus.Tick)
			seqs = append(seqs, tick.Seq)
		case <-time.After(3 * time.Second):
			t.Fatal("did not receive expected tick")
		}
	}

	assert.Equal(t, uint64(1), seqs[0])
	assert.Equal(t, uint64(2), seqs[1])
}
