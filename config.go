// Package pulse is a product-analytics facade: one typed API (Track, Set,
// Get) fanning events and user properties out to pluggable delivery sinks.
// Calls issued before the sinks finish their asynchronous startup are
// buffered and flushed in order once startup settles; nothing in the
// library ever propagates a failure into the host application.
package pulse

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/pulse/pkg/types"
)

// FilterFunc is the caller-supplied predicate consulted for every event
// after prefixing and log-condition checks. Returning false drops the
// event silently.
type FilterFunc func(event types.Event, params map[string]types.Value) bool

// Config holds the facade configuration.
type Config struct {
	// InternalPrefix is prepended to every library-generated event and
	// property name.
	InternalPrefix string `json:"internal_prefix" yaml:"internal_prefix"`

	// ManualPrefix is prepended to every manually issued event and
	// property name.
	ManualPrefix string `json:"manual_prefix" yaml:"manual_prefix"`

	// AnalyticsVersion names the event-taxonomy revision in use. It is set
	// as a user property on every start and must be bumped whenever the
	// standard name catalog changes.
	AnalyticsVersion string `json:"analytics_version" yaml:"analytics_version"`

	// StartTimeout bounds each sink's startup. A sink exceeding it is
	// excluded for the rest of the process.
	StartTimeout time.Duration `json:"start_timeout" yaml:"start_timeout"`

	// AppVersion is the host application version, used for version-change
	// detection and install bookkeeping.
	AppVersion string `json:"app_version" yaml:"app_version"`

	// OSVersion is the host OS version string.
	OSVersion string `json:"os_version" yaml:"os_version"`

	// InstallType overrides install-type detection when set to one of
	// store, debug, sideload.
	InstallType string `json:"install_type" yaml:"install_type"`

	// Logger receives all fault lines. Defaults to the standard logger.
	Logger *log.Logger `json:"-" yaml:"-"`

	// Filter is the caller-supplied event predicate. Nil admits everything.
	Filter FilterFunc `json:"-" yaml:"-"`
}

// DefaultConfig returns the default facade configuration.
func DefaultConfig() *Config {
	return &Config{
		InternalPrefix:   "pulse_",
		ManualPrefix:     "",
		AnalyticsVersion: "1",
		StartTimeout:     5 * time.Second,
	}
}

// LoadConfig loads configuration from a YAML or JSON file, applying
// defaults for anything the file leaves unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadConfigFromEnv overrides cfg fields from PULSE_-prefixed environment
// variables.
func LoadConfigFromEnv(cfg *Config) {
	if v := os.Getenv("PULSE_INTERNAL_PREFIX"); v != "" {
		cfg.InternalPrefix = v
	}
	if v := os.Getenv("PULSE_MANUAL_PREFIX"); v != "" {
		cfg.ManualPrefix = v
	}
	if v := os.Getenv("PULSE_ANALYTICS_VERSION"); v != "" {
		cfg.AnalyticsVersion = v
	}
	if v := os.Getenv("PULSE_START_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StartTimeout = d
		}
	}
	if v := os.Getenv("PULSE_APP_VERSION"); v != "" {
		cfg.AppVersion = v
	}
	if v := os.Getenv("PULSE_OS_VERSION"); v != "" {
		cfg.OSVersion = v
	}
	if v := os.Getenv("PULSE_INSTALL_TYPE"); v != "" {
		cfg.InstallType = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.AnalyticsVersion == "" {
		return fmt.Errorf("analytics_version is required")
	}
	if c.StartTimeout <= 0 {
		return fmt.Errorf("start_timeout must be positive, got %v", c.StartTimeout)
	}
	if c.InstallType != "" {
		if _, ok := types.ParseInstallType(c.InstallType); !ok {
			return fmt.Errorf("invalid install_type: %s (must be store, debug, or sideload)", c.InstallType)
		}
	}
	return nil
}

// prefixFor returns the configured prefix for an event or property origin.
func (c *Config) prefixFor(internal bool) string {
	if internal {
		return c.InternalPrefix
	}
	return c.ManualPrefix
}
