// Package actor holds the concrete workers built on top of pkg/bus:
// the auth actor, the per-inventory actor, and the ticker, plus the
// small skeleton and fan-in helpers they share.
package actor
