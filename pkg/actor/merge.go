package actor

import (
	"sync"

	"github.com/cuemby/busline/pkg/bus"
)

// Merge fans multiple delivery queues into a single stream, preserving
// each source's own ordering but not their interleaving. The returned
// channel closes once every input channel has closed.
func Merge(chans ...<-chan bus.Envelope) <-chan bus.Envelope {
	out := make(chan bus.Envelope)
	var wg sync.WaitGroup
	wg.Add(len(chans))

	for _, c := range chans {
		go func(c <-chan bus.Envelope) {
			defer wg.Done()
			for e := range c {
				out <- e
			}
		}(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
