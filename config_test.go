package pulse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	content := `
internal_prefix: abc_
analytics_version: "7"
start_timeout: 2s
app_version: 3.1.4
install_type: store
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "abc_", cfg.InternalPrefix)
	assert.Equal(t, "7", cfg.AnalyticsVersion)
	assert.Equal(t, 2*time.Second, cfg.StartTimeout)
	assert.Equal(t, "3.1.4", cfg.AppVersion)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.json")
	content := `{"manual_prefix": "app_", "analytics_version": "2"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "app_", cfg.ManualPrefix)
	// File leaves the timeout unset; the default survives.
	assert.Equal(t, 5*time.Second, cfg.StartTimeout)
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PULSE_MANUAL_PREFIX", "m_")
	t.Setenv("PULSE_START_TIMEOUT", "750ms")
	t.Setenv("PULSE_INSTALL_TYPE", "debug")

	cfg := DefaultConfig()
	LoadConfigFromEnv(cfg)

	assert.Equal(t, "m_", cfg.ManualPrefix)
	assert.Equal(t, 750*time.Millisecond, cfg.StartTimeout)
	assert.Equal(t, "debug", cfg.InstallType)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.InstallType = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.AnalyticsVersion = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.StartTimeout = 0
	assert.Error(t, cfg.Validate())
}
