// Package log wraps zerolog with the bus daemon's conventions: a global
// logger configured once via Init, and component loggers created with
// WithComponent for the broker, actors, and the persistence gateway.
package log
