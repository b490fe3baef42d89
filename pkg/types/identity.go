package types

// Event identifies an analytics event by its raw name plus an origin flag.
// Identities are immutable; the effective (prefixed) form sent to sinks is
// derived per send via WithPrefix and then discarded.
type Event struct {
	name     string
	internal bool
}

// NewEvent returns the identity of a manually issued event.
func NewEvent(name string) Event {
	return Event{name: name}
}

// NewInternalEvent returns the identity of an event generated by the library
// itself. Internal and manual identities receive different prefixes at send
// time.
func NewInternalEvent(name string) Event {
	return Event{name: name, internal: true}
}

// Name returns the raw, unprefixed event name.
func (e Event) Name() string {
	return e.name
}

// Internal reports whether the library generated this event.
func (e Event) Internal() bool {
	return e.internal
}

// WithPrefix derives the effective identity for a send. An empty prefix
// returns the identity unchanged.
func (e Event) WithPrefix(prefix string) Event {
	if prefix == "" {
		return e
	}
	return Event{name: prefix + e.name, internal: e.internal}
}

// Property identifies a user property by its raw name plus an origin flag.
type Property struct {
	name     string
	internal bool
}

// NewProperty returns the identity of a manually issued user property.
func NewProperty(name string) Property {
	return Property{name: name}
}

// NewInternalProperty returns the identity of a property maintained by the
// library itself.
func NewInternalProperty(name string) Property {
	return Property{name: name, internal: true}
}

// Name returns the raw, unprefixed property name.
func (p Property) Name() string {
	return p.name
}

// Internal reports whether the library maintains this property.
func (p Property) Internal() bool {
	return p.internal
}

// WithPrefix derives the effective identity for a send. An empty prefix
// returns the identity unchanged.
func (p Property) WithPrefix(prefix string) Property {
	if prefix == "" {
		return p
	}
	return Property{name: prefix + p.name, internal: p.internal}
}

// TrimmedEvent is an event name already shortened to one sink's limits.
// Trimmed names are derived per sink per send and never persisted.
type TrimmedEvent struct {
	name string
}

// NewTrimmedEvent wraps a name that has been trimmed to a sink's limits.
func NewTrimmedEvent(name string) TrimmedEvent {
	return TrimmedEvent{name: name}
}

// Name returns the trimmed event name.
func (t TrimmedEvent) Name() string {
	return t.name
}

// TrimmedProperty is a property name already shortened to one sink's limits.
type TrimmedProperty struct {
	name string
}

// NewTrimmedProperty wraps a name that has been trimmed to a sink's limits.
func NewTrimmedProperty(name string) TrimmedProperty {
	return TrimmedProperty{name: name}
}

// Name returns the trimmed property name.
func (t TrimmedProperty) Name() string {
	return t.name
}
