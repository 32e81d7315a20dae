/*
Package bus implements an in-process, actor-style message bus.

A Broker accepts envelopes on a single ingress queue and fans them out to
subscriptions whose topic pattern matches, in the order subscriptions were
registered. Request builds a synchronous-looking call out of two
asynchronous publishes: it subscribes to an ephemeral reply topic derived
from the request's id, publishes the request, and waits for the first
reply or a timeout.

The broker carries no opinion about message content beyond the envelope
and the closed set of Body variants in this package; new variants are the
extension point.
*/
package bus
