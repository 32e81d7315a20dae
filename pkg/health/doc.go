// Package health tracks the liveness of the long-running components
// behind the HTTP surface's /health endpoint: the broker and the
// persistence gateway. A Checker wraps a simple boolean probe; a
// Status accumulates consecutive results the way a container health
// check would, so one flaky probe doesn't flip the reported state.
package health
