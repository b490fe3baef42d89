package types

// InstallType classifies how the running build was distributed. It is
// computed once during facade startup and handed to every sink's Start.
type InstallType int

const (
	// InstallStore marks a build distributed through an application store.
	InstallStore InstallType = iota

	// InstallDebug marks a locally built debug binary.
	InstallDebug

	// InstallSideload marks a release build installed outside a store.
	InstallSideload
)

// String returns the string representation of the InstallType.
func (t InstallType) String() string {
	switch t {
	case InstallStore:
		return "store"
	case InstallDebug:
		return "debug"
	case InstallSideload:
		return "sideload"
	default:
		return "unknown"
	}
}

// ParseInstallType maps a configuration string onto an InstallType.
// Unrecognized values report ok=false.
func ParseInstallType(s string) (InstallType, bool) {
	switch s {
	case "store":
		return InstallStore, true
	case "debug":
		return InstallDebug, true
	case "sideload":
		return InstallSideload, true
	default:
		return InstallDebug, false
	}
}
