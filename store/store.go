// Package store provides the persistent key-value collaborator backing
// one-time-event flags, user properties, and install bookkeeping.
//
// The store is fail-open: read and write failures are logged and degrade to
// absent values or lost writes, never to errors at the call site. Analytics
// bookkeeping must not be able to crash the host application.
package store

import "strings"

// namespace is the fixed library prefix applied to every key.
const namespace = "pulse"

// Store is the injected persistence collaborator. Keys are flat strings
// produced by Key; values are strings or booleans with no transactional
// grouping between keys.
type Store interface {
	// GetString returns the value for key and whether it was present.
	GetString(key string) (string, bool)

	// PutString stores value under key, overwriting any prior value.
	PutString(key, value string)

	// GetBool returns the boolean for key, or def when absent or malformed.
	GetBool(key string, def bool) bool

	// PutBool stores a boolean under key.
	PutBool(key string, value bool)

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string)
}

// Key builds a namespaced store key from sub-namespace parts, e.g.
// Key("onlyOnce", "pulse_first_open") → "pulse.onlyOnce.pulse_first_open".
func Key(parts ...string) string {
	return namespace + "." + strings.Join(parts, ".")
}
