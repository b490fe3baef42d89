// Package sink defines the delivery contract every analytics backend
// implements, plus the optional capability interfaces a backend may support.
// The facade and the dispatch buffer only ever talk to a backend through
// these interfaces.
package sink

import (
	"context"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/store"
)

// Sink is the narrow contract between the dispatch pipeline and one
// delivery backend. Start blocks until the backend is usable and may fail;
// a sink that fails or times out during Start is excluded for the rest of
// the process. Track and Set are called only with names the sink itself
// trimmed, and their errors are contained by the caller.
type Sink interface {
	// Name identifies the sink in log lines and stats.
	Name() string

	// Start prepares the sink for delivery. It is called once, concurrently
	// with other sinks, under the configured startup timeout.
	Start(ctx context.Context, install types.InstallType, st store.Store) error

	// TrimEvent shortens an event name to this sink's limits.
	TrimEvent(e types.Event) types.TrimmedEvent

	// TrimProperty shortens a property name to this sink's limits.
	TrimProperty(p types.Property) types.TrimmedProperty

	// Track delivers one event.
	Track(e types.TrimmedEvent, params map[string]types.Value) error

	// Set delivers one user property. A nil value clears the property.
	Set(p types.TrimmedProperty, value *types.Value) error
}

// PseudoIDProvider is implemented by sinks that expose a stable
// backend-generated pseudonymous identifier.
type PseudoIDProvider interface {
	PseudoID() (string, error)
}

// UserIDSetter is implemented by sinks that accept an application user ID.
type UserIDSetter interface {
	SetUserID(id string) error
}

// UserIDProvider is implemented by sinks that can read back the user ID
// previously set on them.
type UserIDProvider interface {
	UserID() (string, bool)
}

// Closer is implemented by sinks that hold resources (open files,
// connections, background workers) which the facade releases on Close.
type Closer interface {
	Close() error
}
