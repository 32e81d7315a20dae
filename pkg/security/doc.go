// Package security provides the two cryptographic primitives the auth
// actor depends on: salted password hashing and opaque session tokens.
// Both are treated as external primitives by the message bus itself —
// the bus only ever sees an opaque token string, never a key or a hash.
package security
