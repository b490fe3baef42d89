package sink

import "github.com/arkilian/pulse/pkg/types"

// Limits holds one sink's platform name-length limits. A zero field means
// unlimited.
type Limits struct {
	// EventName is the maximum accepted event name length, in bytes.
	EventName int

	// PropertyName is the maximum accepted property name length, in bytes.
	PropertyName int
}

// TrimEvent shortens an event name to the sink's event-name limit.
func (l Limits) TrimEvent(e types.Event) types.TrimmedEvent {
	return types.NewTrimmedEvent(trim(e.Name(), l.EventName))
}

// TrimProperty shortens a property name to the sink's property-name limit.
func (l Limits) TrimProperty(p types.Property) types.TrimmedProperty {
	return types.NewTrimmedProperty(trim(p.Name(), l.PropertyName))
}

func trim(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	return name[:max]
}
