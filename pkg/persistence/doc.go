// Package persistence is the durable backing store behind the bus's
// persistence gateway actor: users, inventories, and buildings, kept in
// a single BoltDB file.
package persistence
