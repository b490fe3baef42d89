package pulse

// LogCondition controls how often an event may be dispatched.
type LogCondition int

const (
	// Always admits every call.
	Always LogCondition = iota

	// OncePerLifetime admits the first call ever, durably recorded in the
	// persistent store; every later call in any process run is suppressed.
	OncePerLifetime

	// OncePerSession admits the first call in this process; suppression
	// resets only on process restart.
	OncePerSession
)

// String returns the string representation of the LogCondition.
func (c LogCondition) String() string {
	switch c {
	case Always:
		return "always"
	case OncePerLifetime:
		return "oncePerLifetime"
	case OncePerSession:
		return "oncePerSession"
	default:
		return "unknown"
	}
}
