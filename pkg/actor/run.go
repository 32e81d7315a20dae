package actor

import "github.com/cuemby/busline/pkg/bus"

// Run is the common actor skeleton: subscribe to pattern, invoke handle
// for every envelope delivered until the delivery queue closes, then
// unsubscribe. Most actors are this loop and nothing else.
func Run(broker *bus.Broker, pattern string, handle func(bus.Envelope)) error {
	id, ch, err := broker.Subscribe(pattern)
	if err != nil {
		return err
	}
	defer broker.Unsubscribe(id)

	for e := range ch {
		handle(e)
	}
	return nil
}
